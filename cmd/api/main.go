package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Smart3990/Kiyumart-sub000/internal/config"
	"github.com/Smart3990/Kiyumart-sub000/internal/handler"
	"github.com/Smart3990/Kiyumart-sub000/internal/infra/auditlog"
	"github.com/Smart3990/Kiyumart-sub000/internal/infra/cache"
	"github.com/Smart3990/Kiyumart-sub000/internal/infra/db"
	"github.com/Smart3990/Kiyumart-sub000/internal/infra/gateway"
	"github.com/Smart3990/Kiyumart-sub000/internal/infra/memory"
	infraRepo "github.com/Smart3990/Kiyumart-sub000/internal/infra/repository"
	"github.com/Smart3990/Kiyumart-sub000/internal/logger"
	"github.com/Smart3990/Kiyumart-sub000/internal/realtime"
	repo "github.com/Smart3990/Kiyumart-sub000/internal/repository"
	"github.com/Smart3990/Kiyumart-sub000/internal/server"
	"github.com/Smart3990/Kiyumart-sub000/internal/usecase"

	"go.uber.org/zap"
)

const orderNumberPrefix = "KM"

// 起動時に組み立てる永続化まわり
type storage struct {
	tx    repo.TransactionManager
	users repo.UserRepository
	audit repo.AuditLogRepository

	closers []func(ctx context.Context) error
}

func (s *storage) close(ctx context.Context, log *zap.Logger) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := logger.New(cfg.Log, cfg.GoEnv)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		st.close(closeCtx, log)
	}()

	//現在地キャッシュ（REDIS_ADDRが空なら使わない）
	var locations usecase.LocationCache
	if cfg.Redis.Addr != "" {
		lc := cache.NewLocationCache(cfg.Redis)
		if err := lc.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		st.closers = append(st.closers, func(context.Context) error { return lc.Close() })
		locations = lc
	}

	hub := realtime.NewHub(log)
	defer hub.Stop()

	gw := gateway.NewPaystack(cfg.Payment, log)
	if !cfg.Payment.Configured() {
		log.Warn("PAYSTACK_SECRET_KEY is empty; payment endpoints will reject requests")
	}

	//Usecase生成
	orderUC := usecase.NewOrderUsecase(st.tx, usecase.NewOrderNumberGenerator(orderNumberPrefix), nil, usecase.OrderSettings{
		Currency:             cfg.Payment.Currency,
		ProcessingFeePercent: cfg.Payment.ProcessingFeePercent,
	})
	cartUC := usecase.NewCartUsecase(st.tx)
	statusUC := usecase.NewOrderStatusUsecase(st.tx, st.audit, hub, nil, cfg.StrictTransitions)
	trackingUC := usecase.NewTrackingUsecase(st.tx, locations, hub, nil, log)
	reconciler := usecase.NewPaymentReconciler(st.tx, gw, hub, st.audit, nil, log)
	paymentUC := usecase.NewPaymentUsecase(st.tx, gw, reconciler, nil, log)

	//Handler生成
	srv := server.New(cfg, log, st.users,
		handler.NewCartHandler(cartUC),
		handler.NewOrderHandler(orderUC, statusUC),
		handler.NewTrackingHandler(trackingUC),
		handler.NewPaymentHandler(paymentUC),
		handler.NewAdminOrderHandler(orderUC),
		handler.NewAdminAuditHandler(usecase.NewAuditUsecase(st.audit)),
		handler.NewWSHandler(hub, log),
	)

	log.Info("starting",
		zap.String("addr", cfg.Addr()),
		zap.String("store", cfg.StoreDriver),
		zap.String("audit_sink", cfg.AuditSink),
		zap.Bool("location_cache", locations != nil),
		zap.Bool("strict_transitions", cfg.StrictTransitions),
	)
	return srv.Run(ctx)
}

func openStorage(ctx context.Context, cfg config.Config, log *zap.Logger) (*storage, error) {
	st := &storage{}

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		store := memory.NewStore()
		seedDemo(store, log)
		st.tx = store
		st.users = store.Users()
		st.audit = store.AuditLogs()

	default:
		gormDB, err := db.Connect(cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := db.Migrate(gormDB); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		sqlDB, err := gormDB.DB()
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		st.closers = append(st.closers, func(context.Context) error { return sqlDB.Close() })

		st.tx = infraRepo.NewTxManagerGorm(gormDB)
		st.users = infraRepo.NewUserGormRepository(gormDB)
		st.audit = infraRepo.NewAuditLogGormRepository(gormDB)
	}

	if cfg.AuditSink == config.AuditSinkMongo {
		sink, err := auditlog.NewMongoSink(ctx, cfg.Mongo)
		if err != nil {
			st.close(context.Background(), log)
			return nil, fmt.Errorf("mongo: %w", err)
		}
		st.closers = append(st.closers, sink.Close)
		st.audit = sink
	}

	return st, nil
}
