package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"fakturo/internal/events"
	"fakturo/internal/format"
	httpapi "fakturo/internal/http"
	invmetrics "fakturo/internal/invoicing/metrics"
	"fakturo/internal/invoicing/numbering"
	"fakturo/internal/invoicing/service"
	invoicestore "fakturo/internal/invoicing/store/invoice"
	partystore "fakturo/internal/invoicing/store/party"
	"fakturo/internal/mapping"
	"fakturo/internal/platform/config"
	"fakturo/internal/platform/httpserver"
	"fakturo/internal/platform/logger"
	platformredis "fakturo/internal/platform/redis"
	"fakturo/internal/validation"
)

// main wires the invoicing service against its configured backends and serves
// the ops endpoints. Backends degrade gracefully: without a database the
// in-memory stores run, without Redis numbering falls back to the in-process
// allocator, and without Kafka events are dropped.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	var (
		invoices service.InvoiceStore
		parties  service.PartyStore
		checks   []httpapi.Check
	)

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		if err := bootstrapSchema(ctx, pool); err != nil {
			return err
		}
		invoices = invoicestore.NewPostgres(pool)
		parties = partystore.NewPostgres(pool)
		checks = append(checks, httpapi.Check{Name: "postgres", Probe: pool.Ping})
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		invoices = invoicestore.NewInMemory()
		parties = partystore.NewInMemory()
	}

	var numbers numbering.Strategy = numbering.NewSequential()
	rdb, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		numbers = numbering.NewRedis(rdb.Client)
		checks = append(checks, httpapi.Check{Name: "redis", Probe: rdb.Health})
	} else {
		log.Warn("REDIS_URL not set, invoice numbers are not durable across restarts")
	}

	// With Kafka configured, services enqueue into a channel and the worker
	// absorbs broker latency. Without it, events are dropped.
	var publisher events.Publisher = events.Noop{}
	var worker *events.Worker
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer kafka.Close()
		queue := events.NewQueue(256)
		worker = events.NewWorker(kafka, queue.Inbox(), log)
		publisher = queue
	}

	svc := service.New(invoices, parties, numbers,
		validation.NewService(log),
		format.NewService(mapping.NewRegistry(log), log),
		service.WithLogger(log),
		service.WithPublisher(publisher),
		service.WithMetrics(invmetrics.New()),
		service.WithSeries(cfg.Series),
	)

	// Readiness exercises the full service-to-store path, not just a ping.
	checks = append(checks, httpapi.Check{Name: "directory", Probe: func(ctx context.Context) error {
		_, err := svc.ListParties(ctx, partystore.Filter{}, partystore.Page{Number: 1, Size: 1})
		return err
	}})

	srv := httpserver.New(cfg.Addr, httpapi.NewRouter(httpapi.NewHandler(checks...)))

	g, ctx := errgroup.WithContext(ctx)
	if worker != nil {
		g.Go(func() error {
			if err := worker.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		log.Info("starting fakturo", "addr", cfg.Addr, "series", cfg.Series)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// bootstrapSchema applies the store DDL. Every statement is idempotent, so
// running it on each start is safe.
func bootstrapSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, ddl := range []string{invoicestore.Schema, partystore.Schema} {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
