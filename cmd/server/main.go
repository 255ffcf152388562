// Command server runs the ledger HTTP API: partitioned balances, supply
// caps, snapshots, scheduled corporate actions and protected partitions
// behind the module resolver.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	_ "github.com/jackc/pgx/v5/stdlib"

	"custodia/internal/access"
	"custodia/internal/access/allowdeny"
	accessmodels "custodia/internal/access/models"
	"custodia/internal/access/pause"
	"custodia/internal/access/roles"
	allowdenystore "custodia/internal/access/store/allowdeny"
	pausestore "custodia/internal/access/store/pause"
	rolesstore "custodia/internal/access/store/roles"
	"custodia/internal/actions"
	actionmemory "custodia/internal/actions/store/memory"
	actionpostgres "custodia/internal/actions/store/postgres"
	"custodia/internal/ledger"
	"custodia/internal/ledger/caps"
	ledgermetrics "custodia/internal/ledger/metrics"
	ledgermodels "custodia/internal/ledger/models"
	ledgerstore "custodia/internal/ledger/store/memory"
	"custodia/internal/platform/config"
	"custodia/internal/platform/httpserver"
	kafkaproducer "custodia/internal/platform/kafka/producer"
	"custodia/internal/platform/logger"
	platformredis "custodia/internal/platform/redis"
	"custodia/internal/protection"
	protectionstore "custodia/internal/protection/store/memory"
	"custodia/internal/resolver"
	"custodia/internal/router"
	"custodia/internal/schedule"
	schedulestore "custodia/internal/schedule/store/memory"
	"custodia/internal/snapshots"
	httptransport "custodia/internal/transport/http"
	"custodia/pkg/domain"
	audit "custodia/pkg/platform/audit"
	auditpublisher "custodia/pkg/platform/audit/publisher"
	auditmemory "custodia/pkg/platform/audit/store/memory"
	auditpostgres "custodia/pkg/platform/audit/store/postgres"
	auditworker "custodia/pkg/platform/audit/worker"
	"custodia/pkg/requestcontext"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	admin, err := domain.ParseAccountID(cfg.Ledger.AdminAccount)
	if err != nil {
		return fmt.Errorf("parse admin account: %w", err)
	}
	mode := ledgermodels.ModeMultiPartition
	if cfg.Ledger.Mode == "single" {
		mode = ledgermodels.ModeSinglePartition
	}

	// Durable infrastructure. Both Postgres and Redis are optional; absent
	// configuration falls back to in-memory stores.
	var db *sql.DB
	if cfg.Postgres.DSN != "" {
		db, err = sql.Open("pgx", cfg.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
	}
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Audit pipeline: structured log always; postgres outbox plus Kafka
	// relay when both are configured.
	var auditStore audit.Store
	if db != nil {
		auditStore = auditpostgres.New(db)
	} else {
		auditStore = auditmemory.NewInMemoryStore()
	}
	publisher := auditpublisher.NewPublisher(auditStore,
		auditpublisher.WithAsyncBuffer(1024),
		auditpublisher.WithLogger(log),
	)
	defer publisher.Close()

	// Access control stack.
	roleSvc, err := roles.New(rolesstore.New(), admin,
		roles.WithLogger(log), roles.WithAuditPublisher(publisher))
	if err != nil {
		return err
	}
	pauseSvc, err := pause.New(pausestore.New(), roleSvc,
		pause.WithLogger(log), pause.WithAuditPublisher(publisher))
	if err != nil {
		return err
	}
	var listStore allowdeny.Store = allowdenystore.New()
	if redisClient != nil {
		listStore = allowdenystore.NewRedis(redisClient.Client)
	}
	listSvc, err := allowdeny.New(listStore, roleSvc, accessmodels.ModeDenyList,
		allowdeny.WithLogger(log), allowdeny.WithAuditPublisher(publisher))
	if err != nil {
		return err
	}
	guard := access.NewGuard(roleSvc, pauseSvc, listSvc)

	// Ledger core and its satellite services share one state machine.
	store := ledgerstore.New()
	ledgerSvc, err := ledger.New(store, guard, mode,
		ledger.WithLogger(log),
		ledger.WithAuditPublisher(publisher),
		ledger.WithMetrics(ledgermetrics.New()),
	)
	if err != nil {
		return err
	}
	capSvc, err := caps.New(store, guard, mode,
		caps.WithLogger(log), caps.WithAuditPublisher(publisher))
	if err != nil {
		return err
	}
	snapshotSvc, err := snapshots.New(store, guard,
		snapshots.WithLogger(log), snapshots.WithAuditPublisher(publisher))
	if err != nil {
		return err
	}
	scheduleSvc, err := schedule.New(schedulestore.New(), guard, snapshotSvc,
		schedule.WithLogger(log))
	if err != nil {
		return err
	}

	var actionStore actions.Store = actionmemory.New()
	if db != nil {
		actionStore = actionpostgres.New(db)
	}
	actionSvc, err := actions.New(actionStore, guard, scheduleSvc, snapshotSvc,
		actions.WithLogger(log), actions.WithAuditPublisher(publisher))
	if err != nil {
		return err
	}
	scheduleSvc.Register(actions.TaskKindDividend, actionSvc)

	protectionSvc, err := protection.New(protectionstore.New(), guard, ledgerSvc,
		protection.WithLogger(log), protection.WithAuditPublisher(publisher))
	if err != nil {
		return err
	}
	ledgerSvc.BindProtectionPolicy(protectionSvc)

	// Module resolver: capability keys bind to service versions; the
	// bootstrap registrations run as the admin account.
	resolverSvc, err := resolver.New(guard, resolver.WithLogger(log))
	if err != nil {
		return err
	}
	adminCtx := requestcontext.WithCaller(ctx, admin)
	if _, err := resolverSvc.Register(adminCtx, domain.CapabilityLedger, router.NewLedgerModule(ledgerSvc)); err != nil {
		return fmt.Errorf("register ledger module: %w", err)
	}
	if _, err := resolverSvc.Register(adminCtx, domain.CapabilitySnapshots, router.NewSnapshotModule(snapshotSvc)); err != nil {
		return fmt.Errorf("register snapshot module: %w", err)
	}
	if _, err := resolverSvc.Register(adminCtx, domain.CapabilityCorporateActions, router.NewActionsModule(actionSvc)); err != nil {
		return fmt.Errorf("register actions module: %w", err)
	}
	if _, err := resolverSvc.Register(adminCtx, domain.CapabilityProtection, router.NewProtectionModule(protectionSvc)); err != nil {
		return fmt.Errorf("register protection module: %w", err)
	}
	dispatcher, err := router.New(resolverSvc, router.WithLogger(log))
	if err != nil {
		return err
	}

	api := httptransport.NewRouter(httptransport.NewHandler(httptransport.Deps{
		Ledger:     ledgerSvc,
		Caps:       capSvc,
		Snapshots:  snapshotSvc,
		Schedule:   scheduleSvc,
		Actions:    actionSvc,
		Protection: protectionSvc,
		Roles:      roleSvc,
		Pause:      pauseSvc,
		List:       listSvc,
		Resolver:   resolverSvc,
		Dispatcher: dispatcher,
		Logger:     log,
	}))

	root := chi.NewRouter()
	root.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	root.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				http.Error(w, "postgres unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	root.Handle("/metrics", promhttp.Handler())
	root.Mount("/", api)

	srv := httpserver.New(cfg.HTTP, root)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting server", "addr", cfg.HTTP.Addr, "mode", cfg.Ledger.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Kafka relay: drains the postgres outbox to the audit topic.
	if db != nil && len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkaproducer.New(cfg.Kafka.Brokers)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer producer.Close()
		worker := auditworker.NewWorker(db, producer, log)
		group.Go(func() error {
			if err := worker.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
