package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"larch/internal/directory"
	dirhttp "larch/internal/directory/store/httpapi"
	dirpg "larch/internal/directory/store/postgres"
	"larch/internal/licence/ports"
	appstore "larch/internal/licence/store/application"
	"larch/internal/notify"
	"larch/internal/platform/config"
	"larch/internal/platform/logger"
	"larch/internal/register"
	"larch/internal/sweep"
	sweepmetrics "larch/internal/sweep/metrics"
	"larch/pkg/platform/audit/publisher"
	auditpg "larch/pkg/platform/audit/store/postgres"
	"larch/pkg/platform/audit/worker"
	"larch/pkg/platform/tx"
)

// main runs a single withdrawal sweep over applications sitting with the
// applicant past the configured threshold. Schedule it externally (cron or a
// Kubernetes CronJob); the process exits non-zero if the sweep itself fails.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}

	auditPub := publisher.New(cfg.AuditBuffer, publisher.WithLogger(log))
	auditWorker := worker.New(auditpg.New(db), auditPub.Events(), log)

	accounts, err := directory.New(dirpg.New(db), dirhttp.New(cfg.DirectoryBaseURL), directory.WithLogger(log))
	if err != nil {
		log.Error("build directory service", "error", err)
		os.Exit(1)
	}

	applications := appstore.NewPostgresStore(db)
	dispatcher := notify.NewDispatcher(notify.NewHTTPSender(cfg.NotifyBaseURL), log)

	registers, err := register.New(
		register.NewHTTPClient(cfg.RegisterBaseURL, 10*time.Second),
		applications,
		ports.SystemClock{},
		cfg.ConsultationPeriod,
		cfg.DecisionPeriod,
		register.WithLogger(log),
		register.WithAuditPublisher(auditPub),
	)
	if err != nil {
		log.Error("build register service", "error", err)
		os.Exit(1)
	}

	sweeper, err := sweep.New(applications, tx.NewRunner(db), registers, ports.SystemClock{}, cfg.WithdrawalThreshold,
		sweep.WithLogger(log),
		sweep.WithAuditPublisher(auditPub),
		sweep.WithMetrics(sweepmetrics.New()),
		sweep.WithDispatcher(dispatcher, accounts),
	)
	if err != nil {
		log.Error("build sweeper", "error", err)
		os.Exit(1)
	}

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	g, _ := errgroup.WithContext(workerCtx)
	g.Go(func() error {
		err := auditWorker.Run(workerCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	result, sweepErr := sweeper.Run(ctx)

	// Give the audit worker a moment to drain before shutting it down.
	time.Sleep(time.Second)
	cancelWorker()
	if err := g.Wait(); err != nil {
		log.Error("audit worker exited", "error", err)
	}

	if sweepErr != nil {
		log.Error("sweep failed", "error", sweepErr)
		os.Exit(1)
	}
	log.Info("sweep complete",
		"examined", result.Examined,
		"withdrawn", result.Withdrawn,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	if result.Failed > 0 {
		os.Exit(1)
	}
}
