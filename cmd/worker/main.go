// The worker consumes queued notification tasks and runs the periodic
// auto-release sweep over timed-out held balances.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/otlob-dev/otlob-wallet/internal/config"
	"github.com/otlob-dev/otlob-wallet/internal/db"
	"github.com/otlob-dev/otlob-wallet/internal/escrow"
	"github.com/otlob-dev/otlob-wallet/internal/notify"
	"github.com/otlob-dev/otlob-wallet/internal/store/postgres"
	"github.com/otlob-dev/otlob-wallet/internal/wallet"
)

func main() {
	cfg := config.Load()

	db.Init(cfg.DSN())
	defer db.Close()

	st := postgres.New(db.Conn)
	notifier := notify.NewClient(cfg.RedisAddr)
	defer notifier.Close()

	ledger := wallet.NewLedger(st, cfg.Currency)
	escrowSvc := escrow.NewService(st, ledger, notifier, cfg.AutoReleaseDays)

	processor := notify.NewProcessor(st, escrowSvc)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"notifications": 10,
				"escrow":        5,
			},
		},
	)

	stop := make(chan struct{})
	if cfg.SweepEnabled {
		go scheduleSweeps(notifier, cfg, stop)
	} else {
		log.Println("auto-release sweep disabled")
	}

	go func() {
		if err := srv.Run(processor.Mux()); err != nil {
			log.Fatalf("asynq server stopped: %v", err)
		}
	}()
	log.Printf("worker started (redis=%s)", cfg.RedisAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	close(stop)
	srv.Shutdown()
}

// scheduleSweeps enqueues one sweep task per interval until stopped.
func scheduleSweeps(client *notify.Client, cfg config.Config, stop <-chan struct{}) {
	interval := time.Duration(cfg.SweepInterval) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run one pass at startup so restarts never delay overdue releases.
	if err := client.EnqueueSweep(cfg.SweepBatchSize); err != nil {
		log.Printf("enqueue sweep failed: %v", err)
	}
	for {
		select {
		case <-ticker.C:
			if err := client.EnqueueSweep(cfg.SweepBatchSize); err != nil {
				log.Printf("enqueue sweep failed: %v", err)
			}
		case <-stop:
			return
		}
	}
}
