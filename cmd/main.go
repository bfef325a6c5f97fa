package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/options-desk/internal/api"
	"github.com/amirphl/options-desk/internal/broker"
	"github.com/amirphl/options-desk/internal/config"
	"github.com/amirphl/options-desk/internal/notifier"
	"github.com/amirphl/options-desk/internal/state"
	"github.com/amirphl/options-desk/internal/trading"
	"github.com/amirphl/options-desk/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.GetLogger().Fatalf("Failed to load config: %v", err)
	}

	mode, err := state.ParseMode(cfg.Mode)
	if err != nil {
		utils.GetLogger().Fatalf("Invalid trading mode: %v", err)
	}

	var n notifier.Notifier = notifier.Noop{}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		n = notifier.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, cfg.NotificationRetries, cfg.NotificationDelay)
	}

	brokers := map[state.Mode]broker.Broker{
		state.Live: broker.NewTradierBroker(cfg.Broker.LiveBaseURL, cfg.Broker.Token, cfg.Broker.AccountID, "tradier-live", cfg.Broker.RequestTimeout),
	}
	// Without sandbox credentials the paper account falls back to the fully
	// simulated broker so the desk stays usable for UI development.
	if cfg.Broker.PaperToken != "" {
		brokers[state.Paper] = broker.NewTradierBroker(cfg.Broker.PaperBaseURL, cfg.Broker.PaperToken, cfg.Broker.PaperAccountID, "tradier-paper", cfg.Broker.RequestTimeout)
	} else {
		brokers[state.Paper] = broker.NewMockBroker("paper-sim")
	}

	svc := trading.New(brokers, state.NewModeHolder(mode), n, cfg.RetryDelay)
	server := api.NewServer(svc)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		utils.GetLogger().Infof("Listening on %s (mode: %s)", cfg.ListenAddr, mode)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.GetLogger().Fatalf("HTTP server failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	utils.GetLogger().Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		utils.GetLogger().Errorf("Shutdown failed: %v", err)
	}
}
