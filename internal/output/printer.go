package output

import (
	"fmt"
	"io"
	"log"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/tdh8316/namecheck/internal/scan"
)

// Sink receives the identifiers found available.
type Sink interface {
	Append(line string) error
}

// Printer turns check results into report lines and persists hits. Every
// report line is a single Write on the underlying log.Logger, so lines from
// concurrent callers never interleave.
type Printer struct {
	noColor bool

	logger *log.Logger
	sink   Sink
	diag   logrus.FieldLogger

	counts struct {
		hit, miss, unknown, errored atomic.Int64
	}
}

func NewPrinter(stdout io.Writer, noColor bool, sink Sink, diag logrus.FieldLogger) *Printer {
	if diag == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		diag = l
	}
	return &Printer{
		noColor: noColor,
		logger:  log.New(stdout, "", 0),
		sink:    sink,
		diag:    diag,
	}
}

func (p *Printer) paint(c *color.Color, s string) string {
	if p.noColor {
		return s
	}
	return c.Sprint(s)
}

var (
	green   = color.New(color.FgGreen, color.Bold)
	red     = color.New(color.FgRed, color.Bold)
	yellow  = color.New(color.FgHiYellow)
	blue    = color.New(color.FgHiBlue)
	magenta = color.New(color.FgHiMagenta)
)

// Result reports r and, for a hit, appends the bare identifier to the sink.
func (p *Printer) Result(r scan.Result) {
	switch r.Verdict {
	case scan.Hit:
		p.counts.hit.Add(1)
		p.logger.Printf("%s %s", p.paint(green, "[AVAILABLE]"), r.URL)
		if p.sink == nil {
			return
		}
		if err := p.sink.Append(r.Identifier); err != nil {
			p.diag.WithError(err).WithField("identifier", r.Identifier).Error("failed to persist hit")
			p.Error(fmt.Sprintf("%s: could not write to output: %v", r.Identifier, err))
		}

	case scan.Miss:
		p.counts.miss.Add(1)
		p.logger.Printf("%s %s (status=%d)", p.paint(red, "[UNAVAILABLE]"), r.URL, r.StatusCode)

	case scan.Unknown:
		p.counts.unknown.Add(1)
		p.logger.Printf("[%s] Unknown status for %s, response malformed: %q",
			p.paint(yellow, "!"), r.Identifier, r.Payload)

	case scan.Errored:
		p.counts.errored.Add(1)
		p.Error(fmt.Sprintf("%s: %v", r.Identifier, r.Err))
	}
}

func (p *Printer) Info(msg string) {
	p.logger.Printf("[%s] %s", p.paint(blue, "i"), msg)
}

func (p *Printer) Warn(msg string) {
	p.logger.Printf("[%s] %s", p.paint(yellow, "!"), msg)
}

func (p *Printer) Error(msg string) {
	p.logger.Printf("[%s] %s", p.paint(magenta, "ERROR"), msg)
}

// Counts returns hits, misses, unknowns and errors reported so far.
func (p *Printer) Counts() (hit, miss, unknown, errored int64) {
	return p.counts.hit.Load(), p.counts.miss.Load(), p.counts.unknown.Load(), p.counts.errored.Load()
}

// Summary prints one line with the batch totals.
func (p *Printer) Summary() {
	hit, miss, unknown, errored := p.Counts()
	p.Info(fmt.Sprintf("Done: %d checked, %d available, %d unavailable, %d unknown, %d errors",
		hit+miss+unknown+errored, hit, miss, unknown, errored))
	p.diag.WithFields(logrus.Fields{
		"hit":     hit,
		"miss":    miss,
		"unknown": unknown,
		"errored": errored,
	}).Info("batch finished")
}
