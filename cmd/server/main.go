package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"larch/internal/directory"
	dircache "larch/internal/directory/cache"
	dirhttp "larch/internal/directory/store/httpapi"
	dirmem "larch/internal/directory/store/memory"
	dirpg "larch/internal/directory/store/postgres"
	"larch/internal/licence/handler"
	licencemetrics "larch/internal/licence/metrics"
	"larch/internal/licence/ports"
	appstore "larch/internal/licence/store/application"
	"larch/internal/licence/transition"
	"larch/internal/notify"
	"larch/internal/platform/config"
	"larch/internal/platform/httpserver"
	"larch/internal/platform/logger"
	"larch/internal/platform/middleware"
	platformredis "larch/internal/platform/redis"
	"larch/internal/register"
	registermetrics "larch/internal/register/metrics"
	httptransport "larch/internal/transport/http"
	audit "larch/pkg/platform/audit"
	"larch/pkg/platform/audit/publisher"
	kafkasink "larch/pkg/platform/audit/sink/kafka"
	auditmem "larch/pkg/platform/audit/store/memory"
	auditpg "larch/pkg/platform/audit/store/postgres"
	"larch/pkg/platform/audit/worker"
)

// main wires dependencies and runs the HTTP server plus the audit worker.
// Business logic lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Without a database the process runs on in-memory stores. Useful for
	// local development; state does not survive a restart.
	var (
		applications ports.Repository
		dirInternal  directory.AccountStore
		auditStore   audit.Store
	)
	if cfg.DatabaseURL == "" {
		log.Warn("no database configured, state is in-memory only")
		applications = appstore.NewInMemoryStore()
		dirInternal = dirmem.New()
		auditStore = auditmem.NewInMemoryStore()
	} else {
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
		applications = appstore.NewPostgresStore(db)
		dirInternal = dirpg.New(db)
		auditStore = auditpg.New(db)
	}

	// Audit pipeline: events flow through a buffered publisher into a worker
	// that persists them. With Kafka configured the worker fans out to both
	// the store and the topic.
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := kafkasink.New(cfg.KafkaBrokers, "")
		if err != nil {
			log.Error("connect kafka audit sink", "error", err)
			os.Exit(1)
		}
		defer sink.Close()
		auditStore = audit.Tee(auditStore, sink)
	}
	auditPub := publisher.New(cfg.AuditBuffer, publisher.WithLogger(log))
	auditWorker := worker.New(auditStore, auditPub.Events(), log)

	// Directory: internal staff accounts live in our database, applicant
	// accounts come from the external directory, optionally cached in Redis.
	dirOpts := []directory.Option{directory.WithLogger(log)}
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		dirOpts = append(dirOpts, directory.WithCache(dircache.New(redisClient.Client, dircache.DefaultTTL)))
	}
	accounts, err := directory.New(dirInternal, dirhttp.New(cfg.DirectoryBaseURL), dirOpts...)
	if err != nil {
		log.Error("build directory service", "error", err)
		os.Exit(1)
	}

	dispatcher := notify.NewDispatcher(notify.NewHTTPSender(cfg.NotifyBaseURL), log)

	registers, err := register.New(
		register.NewHTTPClient(cfg.RegisterBaseURL, 10*time.Second),
		applications,
		ports.SystemClock{},
		cfg.ConsultationPeriod,
		cfg.DecisionPeriod,
		register.WithLogger(log),
		register.WithAuditPublisher(auditPub),
		register.WithMetrics(registermetrics.New()),
		register.WithDispatcher(dispatcher, accounts),
	)
	if err != nil {
		log.Error("build register service", "error", err)
		os.Exit(1)
	}

	transitions, err := transition.New(applications, nil, ports.SystemClock{},
		transition.WithLogger(log),
		transition.WithAuditPublisher(auditPub),
		transition.WithMetrics(licencemetrics.New()),
		transition.WithRegisterSynchronizer(registers),
		transition.WithDispatcher(dispatcher, accounts),
	)
	if err != nil {
		log.Error("build transition service", "error", err)
		os.Exit(1)
	}

	validator := middleware.NewJWTValidator(cfg.JWTSigningKey)
	licenceHandler := handler.New(transitions, applications, accounts, validator, log)
	router := httptransport.NewRouter(log, licenceHandler)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting larch", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := auditWorker.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
