package output

import (
	"os"
	"sync"

	"github.com/pkg/errors"
)

// FileSink appends one line per identifier to a file. The file is opened in
// append mode on the first write, so repeated runs accumulate and a run
// without hits leaves nothing behind.
type FileSink struct {
	path string

	mu sync.Mutex
	f  *os.File
}

func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Append writes line plus a newline as one write.
func (s *FileSink) Append(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return errors.Wrap(err, "open output")
		}
		s.f = f
	}

	if _, err := s.f.Write([]byte(line + "\n")); err != nil {
		return errors.Wrapf(err, "append to %s", s.path)
	}
	return nil
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
