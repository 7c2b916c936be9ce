package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"dompet/internal/client"
	"dompet/internal/config"
	"dompet/internal/core"
)

// Exit codes of dompet-cli.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// API is the part of the HTTP client the terminal app uses.
type API interface {
	List(ctx context.Context) ([]core.LedgerItem, error)
	Create(ctx context.Context, req client.CreateRequest) (core.LedgerItem, error)
}

// App is the dompet-cli program.
type App struct {
	Stdout io.Writer
	Stderr io.Writer
	Config config.ClientConfig
	NewAPI func(baseURL string) API
	Now    func() time.Time
}

// NewApp returns an App talking HTTP to the configured API.
func NewApp(stdout, stderr io.Writer, cfg config.ClientConfig) *App {
	return &App{
		Stdout: stdout,
		Stderr: stderr,
		Config: cfg,
		NewAPI: func(baseURL string) API { return client.New(baseURL) },
		Now:    time.Now,
	}
}

type session struct {
	app   *App
	api   API
	loc   *time.Location
	color bool
}

const usage = `usage: dompet-cli [-api URL] [-tz ZONE] [-no-color] <command>

commands:
  add [-at 2006-01-02T15:04] [-d description] "<+|-Rp amount label>"
  list
  export [-o ledger.xlsx]
`

// Run executes one command and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("dompet-cli", flag.ContinueOnError)
	fs.SetOutput(a.Stderr)
	fs.Usage = func() { fmt.Fprint(a.Stderr, usage) }
	apiURL := fs.String("api", a.Config.APIURL, "API base URL")
	tz := fs.String("tz", a.Config.Timezone, "time zone for dates")
	noColor := fs.Bool("no-color", a.Config.NoColor, "disable colours")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		return ExitUsage
	}

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		return a.fail(ExitUsage, "unknown time zone %q", *tz)
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return ExitUsage
	}

	s := &session{app: a, api: a.NewAPI(*apiURL), loc: loc, color: !*noColor}
	switch rest[0] {
	case "add":
		return s.add(ctx, rest[1:])
	case "list":
		return s.list(ctx)
	case "export":
		return s.export(ctx, rest[1:])
	}
	fs.Usage()
	return a.fail(ExitUsage, "unknown command %q", rest[0])
}

func (a *App) fail(code int, format string, args ...any) int {
	fmt.Fprintf(a.Stderr, "error: "+format+"\n", args...)
	return code
}

// splitPriceArgs keeps a leading "-Rp" token from being read as a flag.
func splitPriceArgs(args []string) (flags, text []string) {
	for i, arg := range args {
		if arg == "--" {
			return args[:i], args[i+1:]
		}
		if strings.HasPrefix(arg, "-Rp") || strings.HasPrefix(arg, "+Rp") {
			return args[:i], args[i:]
		}
	}
	return args, nil
}

func (s *session) add(ctx context.Context, args []string) int {
	a := s.app
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(a.Stderr)
	at := fs.String("at", "", "date and time, e.g. 2024-01-02T15:04 (default now)")
	desc := fs.String("d", "", "description")

	flagArgs, textArgs := splitPriceArgs(args)
	if err := fs.Parse(flagArgs); err != nil {
		return ExitUsage
	}
	text := strings.Join(append(fs.Args(), textArgs...), " ")

	if strings.TrimSpace(text) == "" {
		return a.fail(ExitUsage, "%s", core.UserMessage(core.ErrRequiredFields))
	}
	tok, err := core.ParsePriceToken(text)
	if err != nil {
		return a.fail(ExitUsage, "%s", core.UserMessage(err))
	}

	when := a.Now()
	if *at != "" {
		when, err = core.ParseDatetime(*at, s.loc)
		if err != nil {
			return a.fail(ExitUsage, "%s", core.UserMessage(err))
		}
	}

	_, err = s.api.Create(ctx, client.CreateRequest{
		Name:        tok.Label,
		Description: *desc,
		Datetime:    when,
		Price:       tok.Price(),
	})
	if err != nil {
		return a.fail(ExitFailure, "Failed to add transaction: %v", err)
	}
	return s.list(ctx)
}

func (s *session) list(ctx context.Context) int {
	items, err := s.api.List(ctx)
	if err != nil {
		return s.app.fail(ExitFailure, "Failed to fetch transactions: %v", err)
	}
	RenderLedger(s.app.Stdout, core.BuildLedger(items, s.loc), s.color)
	return ExitOK
}

func (s *session) export(ctx context.Context, args []string) int {
	a := s.app
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(a.Stderr)
	out := fs.String("o", "ledger.xlsx", "output file")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	items, err := s.api.List(ctx)
	if err != nil {
		return a.fail(ExitFailure, "Failed to fetch transactions: %v", err)
	}
	if err := WriteWorkbook(*out, items, s.loc); err != nil {
		return a.fail(ExitFailure, "export: %v", err)
	}
	fmt.Fprintf(a.Stdout, "exported %d transactions to %s\n", len(items), *out)
	return ExitOK
}
