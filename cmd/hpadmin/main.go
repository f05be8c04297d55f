package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hirepurchase/hpadmin/cmd/hpadmin/cli"
	"github.com/hirepurchase/hpadmin/internal/app"
	"github.com/hirepurchase/hpadmin/internal/backend"
	"github.com/hirepurchase/hpadmin/internal/importer"
	"github.com/hirepurchase/hpadmin/internal/installment"
	"github.com/hirepurchase/hpadmin/internal/observability"
	"github.com/hirepurchase/hpadmin/internal/platform/cache"
	"github.com/hirepurchase/hpadmin/internal/platform/db"
	"github.com/hirepurchase/hpadmin/internal/reference"
	"github.com/hirepurchase/hpadmin/jobs"
	"github.com/hirepurchase/hpadmin/report"
)

const usage = `usage: hpadmin <command> [flags]

commands:
  serve      run the HTTP API (default)
  template   write the import workbook template
  validate   check a workbook without submitting it
  import     validate and submit a workbook
  plan       quote an installment plan
  jobs       inspect or trigger background jobs
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	args := os.Args[1:]
	command := "serve"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		command, args = args[0], args[1:]
	}

	code := run(ctx, command, args)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, command string, args []string) int {
	switch command {
	case "serve":
		return serve(ctx)
	case "template":
		return templateCmd(ctx, args)
	case "validate":
		return validateCmd(args)
	case "import":
		return importCmd(ctx, args)
	case "plan":
		return planCmd(args)
	case "jobs":
		return jobsCmd(ctx, args)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
		return cli.ExitOK
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		return cli.ExitFailure
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func loadConfig() (*app.Config, *slog.Logger, bool) {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return nil, nil, false
	}
	return cfg, app.NewLogger(cfg), true
}

func newBackend(cfg *app.Config) *backend.Client {
	return backend.NewClient(backend.Config{
		BaseURL:       cfg.BackendURL,
		Token:         cfg.BackendToken,
		Timeout:       cfg.BackendTimeout,
		RatePerSecond: cfg.BackendRateLimit,
	})
}

func serve(ctx context.Context) int {
	cfg, logger, ok := loadConfig()
	if !ok {
		return cli.ExitFailure
	}

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		return cli.ExitFailure
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	var pool *pgxpool.Pool
	if cfg.PGDSN != "" {
		pool, err = db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			return cli.ExitFailure
		}
		defer pool.Close()
	} else {
		logger.Info("PG_DSN not set, import history disabled")
	}

	metrics := observability.NewMetrics()
	backendClient := newBackend(cfg)
	if err := backendClient.Ping(ctx); err != nil {
		logger.Warn("backend ping", slog.Any("error", err))
	}

	referenceService := reference.NewService(backendClient, reference.NewCache(redisClient, cfg.ReferenceCacheTTL), logger)
	importService := importer.NewService(
		importer.NewSessionStore(redisClient, cfg.ImportSessionTTL),
		importer.NewExecutor(backendClient, logger, metrics.Jobs()),
		importer.NewHistory(pool),
		referenceService,
		logger,
	)

	redisOpts := cfg.AsynqRedis()
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		return cli.ExitFailure
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	reportClient := report.NewClient(cfg.GotenbergURL)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		ImportHandler:      importer.NewHandler(logger, importService, referenceService, jobClient, report.NewRenderer(reportClient), cfg.ImportMaxUploadBytes),
		InstallmentHandler: installment.NewHandler(logger),
		JobHandler:         jobs.NewHandler(inspector, logger),
		ReportHandler:      report.NewHandler(reportClient, logger),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	code := cli.ExitOK
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		logger.Error("http server", slog.Any("error", err))
		code = cli.ExitFailure
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return code
}

func templateCmd(ctx context.Context, args []string) int {
	fs := newFlagSet("template")
	out := fs.String("out", "", "output path (default import_template.xlsx)")
	blank := fs.Bool("blank", false, "write headers only, without contacting the backend")
	if err := fs.Parse(args); err != nil {
		return cli.ExitFailure
	}
	opts := cli.TemplateOptions{Out: *out, Now: time.Now()}
	if !*blank {
		cfg, logger, ok := loadConfig()
		if !ok {
			return cli.ExitFailure
		}
		opts.Source = reference.NewService(newBackend(cfg), nil, logger)
	}
	return cli.TemplateCommand(ctx, opts)
}

func validateCmd(args []string) int {
	fs := newFlagSet("validate")
	file := fs.String("file", "", "workbook to validate")
	jsonOut := fs.Bool("json", false, "emit JSON output")
	if err := fs.Parse(args); err != nil {
		return cli.ExitFailure
	}
	return cli.ValidateCommand(cli.ValidateOptions{File: *file, JSONOutput: *jsonOut})
}

func importCmd(ctx context.Context, args []string) int {
	fs := newFlagSet("import")
	file := fs.String("file", "", "workbook to import")
	mode := fs.String("mode", string(cli.ImportModeDry), "dry or apply")
	jsonOut := fs.Bool("json", false, "emit JSON output")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return cli.ExitFailure
	}
	opts := cli.ImportOptions{File: *file, Mode: cli.ImportMode(*mode), JSONOutput: *jsonOut}
	if *yes {
		opts.Confirm = func(io.Reader, io.Writer) (bool, error) { return true, nil }
	}
	if opts.Mode == cli.ImportModeApply {
		cfg, logger, ok := loadConfig()
		if !ok {
			return cli.ExitFailure
		}
		opts.Executor = importer.NewExecutor(newBackend(cfg), logger, nil)
	}
	return cli.ImportCommand(ctx, opts)
}

func planCmd(args []string) int {
	fs := newFlagSet("plan")
	price := fs.String("price", "", "product price")
	down := fs.String("down", "0", "down payment")
	rate := fs.String("rate", "0", "annual interest rate in percent")
	months := fs.Int("months", 12, "number of installments")
	start := fs.String("start", "", "contract start date (YYYY-MM-DD)")
	jsonOut := fs.Bool("json", false, "emit JSON output")
	if err := fs.Parse(args); err != nil {
		return cli.ExitFailure
	}
	return cli.PlanCommand(cli.PlanOptions{
		Price:      *price,
		Down:       *down,
		Rate:       *rate,
		Months:     *months,
		Start:      *start,
		JSONOutput: *jsonOut,
	})
}

func jobsCmd(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: hpadmin jobs stats|trigger|scheduled [flags]")
		return cli.ExitFailure
	}
	sub, args := args[0], args[1:]
	fs := newFlagSet("jobs " + sub)
	jsonOut := fs.Bool("json", false, "emit JSON output")
	session := fs.String("session", "", "import session id for import:execute")
	if err := fs.Parse(args); err != nil {
		return cli.ExitFailure
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}
	jobsCLI, err := cli.NewJobsCLI(redisAddr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return cli.ExitFailure
	}
	defer func() {
		_ = jobsCLI.Close()
	}()

	switch sub {
	case "stats":
		return cli.StatsCommand(cli.StatsOptions{Inspector: jobsCLI.Inspector(), JSONOutput: *jsonOut})
	case "trigger":
		if fs.NArg() == 0 {
			fmt.Fprintln(os.Stderr, "jobs trigger: task name required")
			return cli.ExitFailure
		}
		info, err := jobsCLI.Trigger(ctx, fs.Arg(0), *session)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jobs trigger: %v\n", err)
			return cli.ExitFailure
		}
		fmt.Fprintf(os.Stdout, "enqueued %s as %s\n", info.Type, info.ID)
		return cli.ExitOK
	case "scheduled":
		infos, err := jobsCLI.ListScheduled(ctx, 20)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jobs scheduled: %v\n", err)
			return cli.ExitFailure
		}
		for _, info := range infos {
			fmt.Fprintf(os.Stdout, "%s %s next=%s\n", info.ID, info.Type, info.NextProcessAt.Format(time.RFC3339))
		}
		return cli.ExitOK
	default:
		fmt.Fprintf(os.Stderr, "jobs: unknown subcommand %q\n", sub)
		return cli.ExitFailure
	}
}
