// Package appctx provides application context helpers.
package appctx

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/sellhub/shopctl/internal/access"
	"github.com/sellhub/shopctl/internal/api"
	"github.com/sellhub/shopctl/internal/auth"
	"github.com/sellhub/shopctl/internal/config"
	"github.com/sellhub/shopctl/internal/credstore"
	"github.com/sellhub/shopctl/internal/observability"
	"github.com/sellhub/shopctl/internal/output"
)

// contextKey is a private type for context keys.
type contextKey string

const appKey contextKey = "app"

// App holds the shared application context for all commands.
type App struct {
	Config *config.Config
	Creds  *credstore.Store
	Auth   *auth.Manager
	API    *api.Client
	Access *access.Resolver
	Output *output.Writer

	// Observability
	Log       *observability.Log
	Collector *observability.SessionCollector
	Trace     *observability.TraceWriter

	// Flags holds the global flag values
	Flags GlobalFlags
}

// GlobalFlags holds values for global CLI flags.
type GlobalFlags struct {
	// Output format flags
	JSON   bool
	Quiet  bool
	Styled bool

	// Context flags
	Store   string
	Branch  string
	Profile string

	// Behavior flags
	Verbose int // 0=off, 1=requests, 2=requests+bodies (stacks with -v -v or -vv)
	Stats   bool
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg *config.Config) *App {
	creds := credstore.NewStore(config.GlobalConfigDir())

	// Collector always runs to gather stats; the trace writer stays
	// silent until ApplyFlags raises its level.
	collector := observability.NewSessionCollector()
	trace := observability.NewTraceWriter()
	log := observability.NewLog(collector, trace)

	httpClient := &http.Client{Timeout: 30 * time.Second}
	authMgr := auth.NewManager(cfg, creds, httpClient, log)
	client := api.NewClient(cfg, authMgr, creds, log, collector)

	format := output.FormatAuto
	switch cfg.Format {
	case "json":
		format = output.FormatJSON
	case "styled":
		format = output.FormatStyled
	case "quiet":
		format = output.FormatQuiet
	}

	return &App{
		Config:    cfg,
		Creds:     creds,
		Auth:      authMgr,
		API:       client,
		Access:    access.NewResolver(client, log),
		Log:       log,
		Collector: collector,
		Trace:     trace,
		Output: output.New(output.Options{
			Format: format,
			Writer: os.Stdout,
		}),
	}
}

// ApplyFlags applies global flag values to the app configuration.
func (a *App) ApplyFlags() {
	if a.Flags.Quiet {
		a.Output = output.New(output.Options{Format: output.FormatQuiet, Writer: os.Stdout})
	} else if a.Flags.JSON {
		a.Output = output.New(output.Options{Format: output.FormatJSON, Writer: os.Stdout})
	} else if a.Flags.Styled {
		a.Output = output.New(output.Options{Format: output.FormatStyled, Writer: os.Stdout})
	}

	// SHOPCTL_DEBUG can be "1", "2", or "true" (treated as 2)
	verboseLevel := a.Flags.Verbose
	if debugEnv := os.Getenv("SHOPCTL_DEBUG"); debugEnv != "" {
		if level, err := strconv.Atoi(debugEnv); err == nil {
			if level > verboseLevel {
				verboseLevel = level
			}
		} else if debugEnv == "true" {
			verboseLevel = 2
		}
	}
	if a.Trace != nil {
		a.Trace.SetLevel(verboseLevel)
	}
}

// OK outputs a success response, attaching session stats when the
// --stats flag is set.
func (a *App) OK(data any, opts ...output.ResponseOption) error {
	if a.Flags.Stats && a.Collector != nil {
		opts = append(opts, output.WithMeta("stats", a.Collector.Summary()))
	}
	return a.Output.OK(data, opts...)
}

// Err outputs an error response.
func (a *App) Err(err error) error {
	return a.Output.Err(err)
}

// WithApp stores the app in the context.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey, app)
}

// FromContext retrieves the app from the context.
func FromContext(ctx context.Context) *App {
	if app, ok := ctx.Value(appKey).(*App); ok {
		return app
	}
	return nil
}
