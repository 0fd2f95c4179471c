package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nightgate/nightgate/pkg/admission"
	"github.com/nightgate/nightgate/pkg/config"
	"github.com/nightgate/nightgate/pkg/eventbus"
	"github.com/nightgate/nightgate/pkg/journal"
	"github.com/nightgate/nightgate/pkg/logging"
	"github.com/nightgate/nightgate/pkg/metrics"
	"github.com/nightgate/nightgate/pkg/model"
	"github.com/nightgate/nightgate/pkg/policy"
	"github.com/nightgate/nightgate/pkg/store/postgres"
	redisclient "github.com/nightgate/nightgate/pkg/store/redis"
)

type globalOptions struct {
	policy      string
	logLevel    string
	logFormat   string
	metricsAddr string
	record      bool
}

// app holds what every subcommand needs once config is loaded.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	opts    *globalOptions
	closers []func()
}

func newApp(opts *globalOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.policy != "" {
		cfg.Policy.Name = opts.policy
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Logging.Format = opts.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, opts: opts}
	a.closers = append(a.closers, func() { _ = logger.Sync() })
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-quit:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(quit)
	}()
	return ctx, cancel
}

func (a *app) serveMetrics() {
	if a.opts.metricsAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: a.opts.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.logger.Info("serving metrics", zap.String("addr", a.opts.metricsAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server error", zap.Error(err))
		}
	}()
	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
}

// observers connects the optional run journal and event publisher.
func (a *app) observers(ctx context.Context) ([]admission.Observer, error) {
	if !a.opts.record {
		return nil, nil
	}

	var observers []admission.Observer
	if a.cfg.Database.Enabled {
		db, err := postgres.NewStore(&a.cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		if err := db.AutoMigrate(); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		observers = append(observers, journal.New(postgres.NewRunRepository(db.DB()), a.logger, journal.DefaultBatchSize))
	}
	if a.cfg.Redis.Enabled {
		client, err := redisclient.NewClient(ctx, &a.cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		observers = append(observers, eventbus.NewObserver(eventbus.NewBus(client.Client()), a.logger, true))
	}
	return observers, nil
}

type runSpec struct {
	game     *model.Game
	scenario int
	playerID string
	source   admission.Source
	sink     admission.Sink
}

// play runs one game to its end and prints the outcome.
func (a *app) play(ctx context.Context, out io.Writer, run runSpec) error {
	pol, err := policy.New(a.cfg.Policy.Name, a.cfg.Policy.Params)
	if err != nil {
		return err
	}

	observers, err := a.observers(ctx)
	if err != nil {
		return err
	}
	a.serveMetrics()

	opts := admission.DefaultOptions()
	opts.Scenario = run.scenario
	opts.PlayerID = run.playerID
	opts.Params = a.cfg.Policy.Params
	opts.Report = a.cfg.Report
	opts.Recorder = metrics.NewRecorder()
	opts.Observers = observers

	ctrl, err := admission.NewController(run.game, pol, a.logger, opts)
	if err != nil {
		return err
	}

	outcome, err := ctrl.Run(ctx, run.source, run.sink)
	if outcome != nil {
		printOutcome(out, outcome)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func printOutcome(out io.Writer, outcome *admission.Outcome) {
	switch outcome.Status {
	case model.RunCompleted:
		fmt.Fprintf(out, "Completed! Rejected: %d (admitted %d of %d processed)\n",
			outcome.Rejected, outcome.Admitted, outcome.Processed)
	case model.RunAborted:
		fmt.Fprintf(out, "Aborted after %d candidates (admitted %d)\n", outcome.Processed, outcome.Admitted)
	default:
		fmt.Fprintf(out, "Failed: %s\n", outcome.Reason)
	}
}
