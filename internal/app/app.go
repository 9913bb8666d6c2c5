package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tdh8316/namecheck/internal/cli"
	"github.com/tdh8316/namecheck/internal/config"
	"github.com/tdh8316/namecheck/internal/handle"
	"github.com/tdh8316/namecheck/internal/logging"
	"github.com/tdh8316/namecheck/internal/output"
	"github.com/tdh8316/namecheck/internal/retry"
	"github.com/tdh8316/namecheck/internal/scan"
	"github.com/tdh8316/namecheck/internal/transport"
)

// EnvFile is read from the working directory to seed the environment.
const EnvFile = ".env"

func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fmt.Fprintln(stdout, "namecheck - Username Availability Checker.")

	cfg, err := config.Load(EnvFile)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 2
	}

	opts, names, err := cli.Parse(args, cfg, stdout, stderr)
	if err != nil {
		if errors.Is(err, cli.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err.Error())
		return 2
	}

	color.NoColor = opts.NoColor

	logger, logCloser, err := logging.NewLogger(opts.LogLevel, opts.LogFile, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return 2
	}
	defer logCloser.Close()
	log := logger.WithField("batch", uuid.NewString())

	sink := output.NewFileSink(opts.Output)
	defer sink.Close()
	printer := output.NewPrinter(stdout, opts.NoColor, sink, log)

	ids := loadIdentifiers(opts, names, printer)

	valid, skipped := handle.Filter(ids)
	if skipped > 0 {
		printer.Info(fmt.Sprintf("Skipping %d invalid usernames", skipped))
	}
	if len(valid) == 0 {
		printer.Info("No valid usernames to check.")
		return 0
	}

	tr, err := newTransport(opts, printer, log)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize transport: %v\n", err)
		return 1
	}
	defer tr.Close()

	scanner := scan.NewScanner(tr, retry.New(opts.Retries), scan.Config{
		URLTemplate: opts.URLTemplate,
		Concurrency: opts.Concurrency,
		RateLimit:   opts.RateLimit,
	}, log)

	log.WithFields(logrus.Fields{
		"identifiers": len(valid),
		"skipped":     skipped,
		"concurrency": opts.Concurrency,
		"retries":     opts.Retries,
	}).Info("batch started")

	if err := scanner.Scan(ctx, valid, printer.Result); err != nil {
		if errors.Is(err, context.Canceled) {
			printer.Warn("Interrupted by user")
			log.Warn("batch interrupted")
			return 0
		}
		fmt.Fprintf(stderr, "scan error: %v\n", err)
		return 1
	}

	printer.Summary()
	return 0
}

// loadIdentifiers prefers names given on the command line over the input
// file. A missing or unreadable file is reported and treated as empty.
func loadIdentifiers(opts cli.Options, names []string, printer *output.Printer) []string {
	if len(names) > 0 {
		return handle.Dedupe(names)
	}

	ids, err := handle.ReadFile(opts.Input)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			printer.Error(fmt.Sprintf("Input file not found: %s", opts.Input))
		} else {
			printer.Error(err.Error())
		}
		return nil
	}
	return ids
}

// newTransport picks the relay when both credentials are present and falls
// back to direct requests otherwise.
func newTransport(opts cli.Options, printer *output.Printer, log logrus.FieldLogger) (transport.Transport, error) {
	if opts.Mediated() {
		printer.Info("Using Oxylabs Real-Time Crawler API")
		log.WithField("endpoint", opts.OxylabsEndpoint).Info("transport selected: mediated")
		m, err := transport.NewMediated(transport.MediatedConfig{
			Endpoint: opts.OxylabsEndpoint,
			Username: opts.OxylabsUsername,
			Password: opts.OxylabsPassword,
			Timeout:  opts.Timeout,
			Logger:   log,
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	}

	printer.Warn("Oxylabs credentials not provided. Falling back to direct requests (may be inaccurate).")
	log.WithField("proxy", opts.ProxyURL != "").Info("transport selected: direct")
	d, err := transport.NewDirect(transport.DirectConfig{
		Timeout:  opts.Timeout,
		ProxyURL: opts.ProxyURL,
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}
