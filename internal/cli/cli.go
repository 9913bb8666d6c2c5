package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/tdh8316/namecheck/internal/config"
	"github.com/tdh8316/namecheck/internal/httpx"
)

var ErrHelp = errors.New("help requested")

type Options struct {
	NoColor bool
	Verbose bool

	Input       string
	Output      string
	Concurrency int
	Retries     int
	Timeout     time.Duration
	RateLimit   float64

	OxylabsUsername string
	OxylabsPassword string
	OxylabsEndpoint string

	URLTemplate string
	ProxyURL    string

	LogLevel string
	LogFile  string
}

// Mediated reports whether both relay credentials were supplied.
func (o Options) Mediated() bool {
	return o.OxylabsUsername != "" && o.OxylabsPassword != ""
}

const usageText = `
usage:
  namecheck [flags] [USERNAME...]

positional arguments:
  USERNAME                  usernames to check instead of the input file

flags:
  -h, --help                show this help message and exit
  -i, --input PATH          input usernames file (env INPUT_FILE, default: usernames.txt)
  -o, --output PATH         file available usernames are appended to (env OUTPUT_FILE, default: hits.txt)
  -c, --concurrency N       max concurrent checks (env CONCURRENCY, default: 50)
      --retries N           retry attempts on transient errors (env RETRIES, default: 3)
      --timeout SECONDS     request timeout (env TIMEOUT, default: 30)
      --oxylabs-username U  Oxylabs API username (env OXYLABS_USERNAME)
      --oxylabs-password P  Oxylabs API password (env OXYLABS_PASSWORD)
      --oxylabs-endpoint U  Oxylabs realtime endpoint (env OXYLABS_ENDPOINT)
      --url-template T      profile URL, {} is replaced by the username (env URL_TEMPLATE)
      --proxy URL           proxy for direct requests, socks5:// or http:// (env PROXY_URL)
  -t, --tor                 route direct requests through tor (socks5://127.0.0.1:9050)
      --rate N              max probes started per second, 0 = unlimited (env RATE_LIMIT)
      --log-level LEVEL     diagnostic log level (env LOG_LEVEL, default: warn)
      --log-file PATH       also write diagnostics to a rotated file (env LOG_FILE)
      --no-color            disable colored output
  -v, --verbose             debug diagnostics
`

// Parse applies args on top of defaults, which carry the environment layer.
func Parse(args []string, defaults config.Config, stdout, stderr io.Writer) (Options, []string, error) {
	opts := Options{
		Input:           defaults.InputFile,
		Output:          defaults.OutputFile,
		Concurrency:     defaults.Concurrency,
		Retries:         defaults.Retries,
		RateLimit:       defaults.RateLimit,
		OxylabsUsername: defaults.OxylabsUsername,
		OxylabsPassword: defaults.OxylabsPassword,
		OxylabsEndpoint: defaults.OxylabsEndpoint,
		URLTemplate:     defaults.URLTemplate,
		ProxyURL:        defaults.ProxyURL,
		LogLevel:        defaults.LogLevel,
		LogFile:         defaults.LogFile,
	}
	var (
		timeoutS = defaults.Timeout
		withTor  bool
	)

	fs := pflag.NewFlagSet("namecheck", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SortFlags = false

	fs.Usage = func() {
		_, _ = fmt.Fprint(stdout, usageText)
	}

	fs.StringVarP(&opts.Input, "input", "i", opts.Input, "input usernames file")
	fs.StringVarP(&opts.Output, "output", "o", opts.Output, "output file for available usernames")
	fs.IntVarP(&opts.Concurrency, "concurrency", "c", opts.Concurrency, "max concurrent checks")
	fs.IntVar(&opts.Retries, "retries", opts.Retries, "retry attempts on transient errors")
	fs.IntVar(&timeoutS, "timeout", timeoutS, "request timeout in seconds")
	fs.StringVar(&opts.OxylabsUsername, "oxylabs-username", opts.OxylabsUsername, "Oxylabs API username")
	fs.StringVar(&opts.OxylabsPassword, "oxylabs-password", opts.OxylabsPassword, "Oxylabs API password")
	fs.StringVar(&opts.OxylabsEndpoint, "oxylabs-endpoint", opts.OxylabsEndpoint, "Oxylabs realtime endpoint")
	fs.StringVar(&opts.URLTemplate, "url-template", opts.URLTemplate, "profile URL template")
	fs.StringVar(&opts.ProxyURL, "proxy", opts.ProxyURL, "proxy for direct requests")
	fs.BoolVarP(&withTor, "tor", "t", false, "use tor proxy")
	fs.Float64Var(&opts.RateLimit, "rate", opts.RateLimit, "max probes per second")
	fs.StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "diagnostic log level")
	fs.StringVar(&opts.LogFile, "log-file", opts.LogFile, "diagnostic log file")
	fs.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	fs.BoolVarP(&opts.Verbose, "verbose", "v", false, "debug diagnostics")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return Options{}, nil, ErrHelp
		}
		return Options{}, nil, err
	}

	if timeoutS <= 0 {
		// Don't allow zero or negative timeouts; reset to default.
		timeoutS = 30
		if opts.NoColor {
			fmt.Fprintf(stdout, "[!] Invalid timeout value; using default of 30 seconds.\n")
		} else {
			fmt.Fprintf(stdout, "[%s] Invalid timeout value; using default of %s.\n",
				color.HiRedString("!"),
				color.HiYellowString("30 seconds"),
			)
		}
	}
	opts.Timeout = time.Duration(timeoutS) * time.Second

	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RateLimit < 0 {
		opts.RateLimit = 0
	}
	if withTor {
		opts.ProxyURL = httpx.DefaultTorProxyURL
	}
	if opts.Verbose {
		opts.LogLevel = "debug"
	}

	return opts, fs.Args(), nil
}
