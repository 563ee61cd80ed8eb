package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/gmsas95/healthplan/internal/app"
	"github.com/gmsas95/healthplan/internal/config"
	"github.com/gmsas95/healthplan/internal/plan"
	"github.com/gmsas95/healthplan/internal/store"
	"go.uber.org/zap"
)

var Version = "dev"

// ErrUsage is returned after help text has been printed for bad arguments.
var ErrUsage = errors.New("invalid usage")

// ErrHelp is returned when -h or --help was given. The flag set has already
// printed its usage and the command did nothing.
var ErrHelp = flag.ErrHelp

// globalFlags are accepted by every subcommand.
type globalFlags struct {
	configPath string
	dataDir    string
}

func newFlagSet(name string, out io.Writer) (*flag.FlagSet, *globalFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	g := &globalFlags{}
	fs.StringVar(&g.configPath, "config", "", "Path to config file")
	fs.StringVar(&g.dataDir, "data", "", "Path to data directory")
	return fs, g
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ErrHelp
		}
		return ErrUsage
	}
	return nil
}

// openApp loads config and storage and wires the services. The returned
// func releases both.
func openApp(g *globalFlags) (*app.App, func(), error) {
	cfg, err := config.Load(g.configPath, g.dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := app.NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}

	st, err := store.New(cfg)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	a, err := app.New(cfg, st, logger, Version)
	if err != nil {
		_ = st.Close()
		_ = logger.Sync()
		return nil, nil, err
	}

	closeFn := func() {
		if err := st.Close(); err != nil {
			logger.Warn("Failed to close store", zap.Error(err))
		}
		_ = logger.Sync()
	}
	return a, closeFn, nil
}

// HandleServeCommand runs the HTTP API and job runner until interrupted.
func HandleServeCommand(args []string, out io.Writer) error {
	fs, g := newFlagSet("serve", out)
	if err := parse(fs, args); err != nil {
		return err
	}

	a, closeFn, err := openApp(g)
	if err != nil {
		return err
	}
	defer closeFn()

	configPath := g.configPath
	if configPath == "" {
		configPath = filepath.Join(a.Config.Storage.DataDir, "healthplan.yaml")
	}
	a.RunServer(configPath, g.dataDir)
	return nil
}

// HandleGenerateCommand prints tomorrow's schedule for a user, generating
// it when today's progress allows. --date shows a stored day instead.
func HandleGenerateCommand(args []string, out io.Writer) error {
	fs, g := newFlagSet("generate", out)
	userID := fs.String("user", "", "User ID (required)")
	date := fs.String("date", "", "Show the schedule for this date (YYYY-MM-DD)")
	asJSON := fs.Bool("json", false, "Print JSON instead of a table")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *userID == "" {
		fmt.Fprintln(out, "Usage: healthplan generate --user <id> [--date YYYY-MM-DD] [--json]")
		return ErrUsage
	}

	a, closeFn, err := openApp(g)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := context.Background()
	var sched *plan.DailySchedule
	if *date != "" {
		sched, err = a.Scheduler.GetUserSchedule(ctx, *userID, *date)
	} else {
		sched, err = a.Scheduler.CheckAndGenerateNextDay(ctx, *userID)
	}
	if err != nil {
		return err
	}

	if sched == nil {
		fmt.Fprintln(out, "No schedule available yet. Complete at least one activity today with an active weekly plan.")
		return nil
	}
	if *asJSON {
		return writeJSON(out, sched)
	}
	newRenderer(out).schedule(*sched)
	return nil
}

// HandleWeeklyCommand prints the weekly progress summary.
func HandleWeeklyCommand(args []string, out io.Writer) error {
	fs, g := newFlagSet("weekly", out)
	userID := fs.String("user", "", "User ID (required)")
	week := fs.String("week", "", "First day of the week (YYYY-MM-DD), default six days ago")
	asJSON := fs.Bool("json", false, "Print JSON instead of a table")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *userID == "" {
		fmt.Fprintln(out, "Usage: healthplan weekly --user <id> [--week YYYY-MM-DD] [--json]")
		return ErrUsage
	}

	a, closeFn, err := openApp(g)
	if err != nil {
		return err
	}
	defer closeFn()

	start := *week
	if start == "" {
		start = plan.FormatDate(a.Planner.Today().AddDate(0, 0, -6))
	}

	summary, err := a.Scheduler.GetWeeklyProgressSummary(context.Background(), *userID, start)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(out, summary)
	}
	newRenderer(out).weekly(*summary)
	return nil
}

// HandleAdjustCommand shows the difficulty the next day would get. It reads
// the thresholds from config and touches no storage.
func HandleAdjustCommand(args []string, out io.Writer) error {
	fs, g := newFlagSet("adjust", out)
	current := fs.String("difficulty", "", "Current difficulty: easy, moderate or hard")
	rateArg := fs.String("rate", "", "Completion rate, 0-100")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *current == "" || *rateArg == "" {
		fmt.Fprintln(out, "Usage: healthplan adjust --difficulty <easy|moderate|hard> --rate <0-100>")
		return ErrUsage
	}

	d, err := plan.ParseDifficulty(*current)
	if err != nil {
		return err
	}
	rate, err := strconv.ParseFloat(*rateArg, 64)
	if err != nil {
		return fmt.Errorf("invalid rate %q: %w", *rateArg, err)
	}

	cfg, err := config.Load(g.configPath, g.dataDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	adj := plan.AdjustConfig{
		Enabled:           cfg.Scheduler.AdjustDifficulty,
		IncreaseThreshold: cfg.Scheduler.IncreaseThreshold,
		DecreaseThreshold: cfg.Scheduler.DecreaseThreshold,
	}

	newRenderer(out).adjustment(d, plan.AdjustDifficulty(d, rate, adj), rate, adj)
	return nil
}

// HandleConfigCommand manages the config file.
func HandleConfigCommand(args []string, out io.Writer) error {
	if len(args) == 0 {
		PrintConfigHelp(out)
		return nil
	}

	fs, g := newFlagSet("config "+args[0], out)
	force := fs.Bool("force", false, "Overwrite an existing file")
	if err := parse(fs, args[1:]); err != nil {
		return err
	}

	path := g.configPath
	if path == "" {
		cfg, err := config.Load("", g.dataDir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		path = filepath.Join(cfg.Storage.DataDir, "healthplan.yaml")
	}

	switch args[0] {
	case "init":
		if err := config.WriteDefault(path, *force); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Wrote default config to %s\n", path)
		fmt.Fprintln(out, "Set llm.providers.openai.api_key (or OPENAI_API_KEY) to enable AI schedules.")
	case "path":
		fmt.Fprintln(out, path)
	default:
		PrintConfigHelp(out)
		return ErrUsage
	}
	return nil
}

// HandleVersionCommand prints the build version.
func HandleVersionCommand(out io.Writer) {
	fmt.Fprintf(out, "healthplan %s\n", Version)
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintHelp prints top-level usage.
func PrintHelp(out io.Writer) {
	fmt.Fprint(out, `healthplan - adaptive daily health schedules

Usage:
  healthplan <command> [flags]

Commands:
  serve      Run the HTTP API and the next-day job runner
  generate   Generate or show a user's next daily schedule
  weekly     Show a user's weekly progress summary
  adjust     Preview a difficulty adjustment
  config     Manage the config file (init, path)
  version    Print the version

Global flags:
  --config <path>   Config file (default <data>/healthplan.yaml)
  --data <dir>      Data directory (default ~/.local/share/healthplan)
`)
}

// PrintConfigHelp prints config subcommand usage.
func PrintConfigHelp(out io.Writer) {
	fmt.Fprint(out, `Usage: healthplan config <init|path> [--force] [--config <path>] [--data <dir>]

  init    Write the default config file
  path    Print the config file location
`)
}
