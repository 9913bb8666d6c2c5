package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"INPUT_FILE", "OUTPUT_FILE", "CONCURRENCY", "RETRIES", "TIMEOUT",
	"OXYLABS_USERNAME", "OXYLABS_PASSWORD", "OXYLABS_ENDPOINT",
	"URL_TEMPLATE", "PROXY_URL", "RATE_LIMIT", "LOG_LEVEL", "LOG_FILE",
}

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

// platform answers 404 for /alice/ and 200 for everything else, counting
// every request it sees.
func platform(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Path == "/alice/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("profile"))
	}))
	t.Cleanup(s.Close)
	return s
}

func writeInput(t *testing.T, dir string, content string) string {
	t.Helper()
	path := filepath.Join(dir, "usernames.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_DirectEndToEnd(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	var requests int32
	s := platform(t, &requests)

	input := writeInput(t, dir, "alice\nalice\nbob!\n")
	out := filepath.Join(dir, "hits.txt")

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{
		"-i", input,
		"-o", out,
		"-c", "2",
		"--timeout", "5",
		"--url-template", s.URL + "/{}/",
		"--no-color",
	}, &stdout, &stderr)

	require.Equal(t, 0, code, "stderr: %s", stderr.String())

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "alice\n", string(b))

	// "bob!" is rejected before any request; "alice" is probed once.
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
	assert.Contains(t, stdout.String(), "[i] Skipping 1 invalid usernames")
	assert.Contains(t, stdout.String(), "Falling back to direct requests")
	assert.Contains(t, stdout.String(), "[AVAILABLE] "+s.URL+"/alice/")
	assert.Contains(t, stdout.String(), "1 checked, 1 available")
}

func TestRun_PositionalNamesReplaceInput(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	var requests int32
	s := platform(t, &requests)
	out := filepath.Join(dir, "hits.txt")

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{
		"-o", out,
		"--url-template", s.URL + "/{}/",
		"--no-color",
		"alice", "bob", "alice",
	}, &stdout, &stderr)
	require.Equal(t, 0, code)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "alice\n", string(b))
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
	assert.Contains(t, stdout.String(), "(status=200)")
}

func TestRun_MediatedEndToEnd(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "u" || pass != "p" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Unauthorized"}`))
			return
		}
		var q struct {
			URL string `json:"url"`
		}
		_ = json.NewDecoder(r.Body).Decode(&q)
		switch q.URL {
		case "https://www.instagram.com/alice/":
			_, _ = w.Write([]byte(`{"results":[{"status_code":404}]}`))
		case "https://www.instagram.com/bob/":
			_, _ = w.Write([]byte(`{"status_code":200}`))
		default:
			_, _ = w.Write([]byte(`{"results":[{"content":"?"}]}`))
		}
	}))
	defer relay.Close()

	input := writeInput(t, dir, "alice\nbob\ncarol\n")
	out := filepath.Join(dir, "hits.txt")
	t.Setenv("OXYLABS_USERNAME", "u")
	t.Setenv("OXYLABS_PASSWORD", "p")

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{
		"-i", input,
		"-o", out,
		"--oxylabs-endpoint", relay.URL,
		"--no-color",
	}, &stdout, &stderr)
	require.Equal(t, 0, code, "stderr: %s", stderr.String())

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "alice\n", string(b))
	assert.Contains(t, stdout.String(), "Using Oxylabs Real-Time Crawler API")
	assert.Contains(t, stdout.String(), "[UNAVAILABLE] https://www.instagram.com/bob/ (status=200)")
	assert.Contains(t, stdout.String(), "Unknown status for carol")
}

func TestRun_MissingInputEndsGracefully(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "hits.txt")

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{
		"-i", filepath.Join(dir, "absent.txt"),
		"-o", out,
		"--no-color",
	}, &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "Input file not found")
	assert.Contains(t, stdout.String(), "No valid usernames to check.")
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_Interrupted(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	var stdout, stderr bytes.Buffer
	done := make(chan int, 1)
	go func() {
		done <- Run(ctx, []string{
			"-o", filepath.Join(dir, "hits.txt"),
			"--url-template", s.URL + "/{}/",
			"--no-color",
			"alice", "bob", "carol",
		}, &stdout, &stderr)
	}()

	select {
	case code := <-done:
		assert.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after interrupt")
	}
	assert.Contains(t, stdout.String(), "[!] Interrupted by user")
	assert.NotContains(t, stdout.String(), "[ERROR]")
}

func TestRun_Help(t *testing.T) {
	isolateEnv(t)
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, Run(context.Background(), []string{"-h"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "usage:")
}

func TestRun_BadFlag(t *testing.T) {
	isolateEnv(t)
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, Run(context.Background(), []string{"--nope"}, &stdout, &stderr))
}
