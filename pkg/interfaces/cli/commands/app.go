package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/vsinha/agrostock/pkg/application/services"
	"github.com/vsinha/agrostock/pkg/domain/entities"
	"github.com/vsinha/agrostock/pkg/domain/repositories"
	domain "github.com/vsinha/agrostock/pkg/domain/services"
	"github.com/vsinha/agrostock/pkg/infrastructure/config"
	"github.com/vsinha/agrostock/pkg/infrastructure/events"
	"github.com/vsinha/agrostock/pkg/infrastructure/repositories/gormstore"
	"github.com/vsinha/agrostock/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/agrostock/pkg/interfaces/cli/output"
	"github.com/vsinha/agrostock/pkg/interfaces/httpapi"
)

// ErrUsage is returned when the command line cannot be parsed
var ErrUsage = errors.New("usage error")

// App dispatches subcommands against one store
type App struct {
	config *config.Config
	log    zerolog.Logger
	stdout io.Writer
	now    func() time.Time
}

// NewApp creates the CLI. now may be nil.
func NewApp(cfg *config.Config, log zerolog.Logger, stdout io.Writer, now func() time.Time) *App {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &App{config: cfg, log: log, stdout: stdout, now: now}
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *App, args []string) error
}

func commandTable() []command {
	return []command{
		{"load", "load a CSV scenario directory and rule file into the store", runLoad},
		{"products", "list catalog products", runProducts},
		{"lots", "list lots with balances", runLots},
		{"movements", "show the ledger of one lot", runMovements},
		{"allocate", "show which lots FIFO would take a quantity from", runAllocate},
		{"withdraw", "take stock out by FIFO", runWithdraw},
		{"active-stock", "total stock of an active substance in kg", runActiveStock},
		{"summary", "stock quantity and value per product and location", runSummary},
		{"mix", "check the compatibility of actives or products", runMix},
		{"rules", "list compatibility rules or load them from YAML", runRules},
		{"apply", "record a field application", runApply},
		{"applications", "list recorded applications", runApplications},
		{"export", "write the store to a msgpack snapshot", runExport},
		{"import", "restore a msgpack snapshot into an empty store", runImport},
		{"serve", "serve the HTTP API", runServe},
	}
}

// Run executes the subcommand named by args[0]
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-help" || args[0] == "--help" {
		a.showHelp()
		return nil
	}
	for _, cmd := range commandTable() {
		if cmd.name == args[0] {
			return cmd.run(ctx, a, args[1:])
		}
	}
	a.showHelp()
	return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
}

func (a *App) showHelp() {
	fmt.Fprintf(a.stdout, `agrostock - agrochemical lot stock, FIFO consumption and tank-mix checks

USAGE:
    agrostock <command> [options]

COMMANDS:
`)
	for _, cmd := range commandTable() {
		fmt.Fprintf(a.stdout, "    %-14s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintf(a.stdout, `
COMMON OPTIONS:
    -scenario <dir>   load a CSV scenario before running (useful without a database)
    -rules <file>     load compatibility rules from YAML before running
    -format <fmt>     text, json, csv or xlsx (default: text)
    -output <dir>     write results to a file in dir instead of stdout
    -verbose          log domain events as they happen

ENVIRONMENT:
    AGROSTOCK_DB_PATH              SQLite file; in-memory store when empty
    AGROSTOCK_LOG_LEVEL            debug, info, warn, error
    AGROSTOCK_LOG_FORMAT           console or json
    AGROSTOCK_EXPIRY_WARNING_DAYS  lots expiring within this many days are flagged
    AGROSTOCK_HTTP_ADDR            listen address of serve
    AGROSTOCK_RULES_FILE           rule file loaded at startup

EXAMPLES:
    agrostock lots -scenario example/farm -expiring 90
    agrostock active-stock -scenario example/farm -name glifosato
    agrostock apply -scenario example/farm -parcel "North 12" -area 10 -items "Roundup:1.5:L/ha"
    AGROSTOCK_DB_PATH=farm.db agrostock load -scenario example/farm
`)
}

// options are the flags every subcommand accepts
type options struct {
	scenario string
	rules    string
	format   string
	output   string
	verbose  bool
}

func newFlagSet(name string, opts *options) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.scenario, "scenario", "", "CSV scenario directory to load first")
	fs.StringVar(&opts.rules, "rules", "", "YAML rule file to load first")
	fs.StringVar(&opts.format, "format", output.FormatText, "output format: text, json, csv, xlsx")
	fs.StringVar(&opts.output, "output", "", "output directory")
	fs.BoolVar(&opts.verbose, "verbose", false, "log domain events")
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUsage, fs.Name(), err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: %s: unexpected argument %q", ErrUsage, fs.Name(), fs.Arg(0))
	}
	return nil
}

// session is an open store with its services, ready for one command
type session struct {
	store  repositories.Store
	svc    *httpapi.Services
	events *events.InMemoryEventStore
	close  func() error
}

// open connects the configured store, wires the services and loads any
// configured rule file and requested scenario
func (a *App) open(ctx context.Context, opts options) (*session, error) {
	s := &session{close: func() error { return nil }}
	if a.config.DBPath != "" {
		db, err := gormstore.Open(a.config.DBPath, a.log)
		if err != nil {
			return nil, err
		}
		s.store = db
		s.close = db.Close
	} else {
		s.store = memory.NewStore()
	}

	s.events = events.NewInMemoryEventStore(a.log)
	closeStore := s.close
	s.close = func() error {
		s.events.Wait()
		return closeStore()
	}
	if opts.verbose {
		if err := s.events.Subscribe(auditedEvents, a.auditHandler()); err != nil {
			s.close()
			return nil, err
		}
	}
	s.svc = httpapi.NewServices(services.Deps{
		Store:             s.store,
		Events:            s.events,
		Logger:            a.log,
		Now:               a.now,
		ExpiryWarningDays: a.config.ExpiryWarningDays,
	})

	for _, file := range []string{a.config.RulesFile, opts.rules} {
		if file == "" {
			continue
		}
		if _, err := loadRules(ctx, s.svc, file); err != nil {
			s.close()
			return nil, err
		}
	}
	if opts.scenario != "" {
		if _, err := loadScenario(ctx, s.svc, opts.scenario); err != nil {
			s.close()
			return nil, err
		}
	}
	return s, nil
}

var auditedEvents = []string{
	events.LotReceivedEvent,
	events.StockWithdrawnEvent,
	events.ApplicationRecordedEvent,
	events.MovementAppendedEvent,
	events.RuleSavedEvent,
}

func (a *App) auditHandler() events.EventHandler {
	return &events.HandlerFunc{
		Types: auditedEvents,
		Fn: func(e events.Event) error {
			a.log.Info().Str("event", e.Type()).Str("stream", e.StreamID()).Int("version", e.Version()).Msg("event")
			return nil
		},
	}
}

func (a *App) render(report output.Report, opts options) error {
	return output.Generate(report, output.Config{
		Format:    opts.format,
		OutputDir: opts.output,
		Verbose:   opts.verbose,
		Stdout:    a.stdout,
	})
}

// resolveProduct accepts a product id or trade name
func resolveProduct(ctx context.Context, s *session, ref string) (string, error) {
	if ref == "" {
		return "", entities.NewValidationError("product", "cannot be empty")
	}
	repos := s.store.Repositories()
	if p, err := repos.Catalog.GetProduct(ctx, entities.ProductID(ref)); err == nil {
		return string(p.ID), nil
	} else if !errors.Is(err, entities.ErrNotFound) {
		return "", err
	}
	p, err := repos.Catalog.FindProductByName(ctx, domain.NormalizeName(ref))
	if err != nil {
		return "", err
	}
	return string(p.ID), nil
}

func parseDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, entities.NewValidationError(field, fmt.Sprintf("invalid date %q (expected YYYY-MM-DD)", s))
	}
	return t, nil
}

const dateLayout = "2006-01-02"

// scenarioRulesFile is picked up from a scenario directory when present
const scenarioRulesFile = "rules.yaml"

func scenarioRules(dir string) string {
	path := filepath.Join(dir, scenarioRulesFile)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
