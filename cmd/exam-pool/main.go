package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"

	"github.com/avialabs/exam-pool-service/internal/config"
	"github.com/avialabs/exam-pool-service/internal/ledger"
	"github.com/avialabs/exam-pool-service/internal/notification"
	"github.com/avialabs/exam-pool-service/internal/repository/postgres"
	"github.com/avialabs/exam-pool-service/internal/service"
	myhttp "github.com/avialabs/exam-pool-service/internal/transport/http"
	"github.com/avialabs/exam-pool-service/pkg/logger/sl"
	"github.com/avialabs/exam-pool-service/pkg/logger/slogpretty"
	"github.com/shopspring/decimal"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := config.MustLoad()
	log := slogpretty.SetupLogger(cfg.Env)

	log.Info("starting exam-pool-service", slog.String("env", cfg.Env))

	seatCredit, err := decimal.NewFromString(cfg.Billing.SeatCredit)
	if err != nil {
		return fmt.Errorf("invalid billing.seat_credit: %v", err)
	}

	db, err := postgres.NewDB(cfg.Postgres, log)
	if err != nil {
		return fmt.Errorf("failed to init db: %v", err)
	}
	defer func() {
		if err := db.DB().Close(); err != nil {
			log.Error("db close failed", sl.Err(err))
		}
	}()

	poolRepo := postgres.NewPoolRepository(db.DB(), log)
	seatLedger := ledger.NewLogLedger(log)
	dispatcher := notification.NewLogDispatcher(log)

	poolService := service.NewPoolService(db.DB(), log, poolRepo, poolRepo)
	confirmationService := service.NewConfirmationService(db.DB(), log, poolRepo, poolRepo, seatLedger, dispatcher, seatCredit)
	mergeService := service.NewMergeService(db.DB(), log, poolRepo, poolRepo, dispatcher)

	srv := myhttp.NewServer(log, poolService, confirmationService, mergeService)
	httpServer := &http.Server{
		Addr:        net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:     srv.Routes(),
		ReadTimeout: cfg.Server.Timeout,
	}

	errChan := make(chan error, 1)

	go startServer(log, httpServer, errChan)

	select {
	case err := <-errChan:
		return fmt.Errorf("http server error: %v", err)

	case <-ctx.Done():
		log.Info("stopping server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down http server: %v", err)
	}

	return nil
}

func startServer(log *slog.Logger, httpServer *http.Server, errChan chan error) {
	defer close(errChan)

	log.Info("service started", slog.String("addr", httpServer.Addr))

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		errChan <- fmt.Errorf("error listening and serving: %v", err)
	}
}
