package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/otlob-dev/otlob-wallet/internal/config"
	"github.com/otlob-dev/otlob-wallet/internal/db"
	"github.com/otlob-dev/otlob-wallet/internal/escrow"
	appmw "github.com/otlob-dev/otlob-wallet/internal/middleware"
	"github.com/otlob-dev/otlob-wallet/internal/notify"
	"github.com/otlob-dev/otlob-wallet/internal/payments"
	"github.com/otlob-dev/otlob-wallet/internal/store/postgres"
	"github.com/otlob-dev/otlob-wallet/internal/wallet"
	"github.com/otlob-dev/otlob-wallet/internal/withdraw"
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
	provider := payments.NewHTTPProvider(cfg.ProviderBaseURL, cfg.ProviderAPIKey)
	paymentsSvc := payments.NewService(st, ledger, provider, cfg.Currency)
	withdrawSvc := withdraw.NewService(st, ledger)

	walletH := wallet.NewHandler(ledger)
	escrowH := escrow.NewHandler(escrowSvc)
	paymentsH := payments.NewHandler(paymentsSvc, cfg.WebhookSecret)
	withdrawH := withdraw.NewHandler(withdrawSvc)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Health
	e.GET("/health", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// Provider callback, guarded by signature instead of a session.
	e.POST("/payments/webhook", paymentsH.Webhook)

	// Authenticated group
	g := e.Group("")
	g.Use(appmw.JWTAuth(cfg.JWTSecret))

	// Wallet
	g.GET("/wallet/balance", walletH.Balance)
	g.GET("/wallet/transactions", walletH.Transactions)
	g.POST("/wallet/topup", paymentsH.TopUp)
	g.GET("/payments/verify/:invoiceId", paymentsH.Verify)
	g.POST("/payments/verify/:invoiceId", paymentsH.Verify)

	// Buyer protection
	g.POST("/orders/:id/confirm-delivery", escrowH.ConfirmDelivery)
	g.POST("/orders/:id/dispute", escrowH.OpenDispute)
	g.GET("/orders/:id/protection", escrowH.Protection)
	g.GET("/orders/:id/delivery-otp", escrowH.DeliveryOTP)
	g.POST("/disputes/:id/driver-response", escrowH.DriverResponse, appmw.RequireRoles("driver"))

	// Withdrawals
	g.POST("/wallet/withdrawals", withdrawH.Create)
	g.GET("/wallet/withdrawals", withdrawH.ListMine)

	// Admin routes
	adminGroup := e.Group("/admin")
	adminGroup.Use(appmw.JWTAuth(cfg.JWTSecret))
	adminGroup.Use(appmw.AdminGuard)
	adminGroup.GET("/disputes", escrowH.AdminDisputes)
	adminGroup.POST("/disputes/:id/resolve", escrowH.AdminResolve)
	adminGroup.GET("/withdrawals/pending", withdrawH.AdminListPending)
	adminGroup.POST("/withdrawals/:id/approve", withdrawH.AdminApprove)
	adminGroup.POST("/withdrawals/:id/reject", withdrawH.AdminReject)
	adminGroup.POST("/withdrawals/:id/complete", withdrawH.AdminComplete)
	adminGroup.GET("/transactions/:role/:id", walletH.AdminTransactions)
	adminGroup.GET("/wallets/:role/:id/reconcile", walletH.AdminReconcile)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
