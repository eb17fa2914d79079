// Package main is the Antigravity Gateway's entry point: it loads
// configuration, wires the account pool, upstream client, and signature
// cache together, and serves the gateway's HTTP surface until asked to
// stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/oauth2"

	"github.com/brightloop/antigravity-gateway/internal/accountpool"
	"github.com/brightloop/antigravity-gateway/internal/api"
	"github.com/brightloop/antigravity-gateway/internal/config"
	"github.com/brightloop/antigravity-gateway/internal/gatewayconfig"
	"github.com/brightloop/antigravity-gateway/internal/gwlog"
	"github.com/brightloop/antigravity-gateway/internal/metrics"
	"github.com/brightloop/antigravity-gateway/internal/store"
	"github.com/brightloop/antigravity-gateway/internal/thinking"
	"github.com/brightloop/antigravity-gateway/internal/upstream"
)

// Cloud Code OAuth client, grounded on the upstream's own desktop client
// registration; the refresh token exchange uses it to mint new access
// tokens for accounts onboarded out-of-band.
const (
	cloudCodeClientID     = "1071006060591-tmhssin2h21lcre235vtolojh4g403ep.apps.googleusercontent.com"
	cloudCodeClientSecret = "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"
	cloudCodeTokenURL     = "https://oauth2.googleapis.com/token"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "path to the gateway's YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "antigravity-gateway: load config: %v\n", err)
		os.Exit(1)
	}

	log := gwlog.New(gwlog.Config{
		Debug:    cfg.Debug,
		FilePath: cfg.LogFilePath,
	})

	watcher, err := config.WatchFile(configPath, *cfg, log)
	if err != nil {
		log.WithError(err).Fatal("watch config file")
	}
	defer watcher.Close()

	accounts, err := store.LoadAccounts(cfg.AccountsPath)
	if err != nil {
		log.WithError(err).Fatal("load accounts")
	}

	m := metrics.New()
	m.SetAccountsTotal(len(accounts))

	pool := accountpool.New(accounts, accountpool.Config{})
	pool.SetRefresher(accountpool.OAuthRefresher{Config: &oauth2.Config{
		ClientID:     cloudCodeClientID,
		ClientSecret: cloudCodeClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: cloudCodeTokenURL},
	}})
	pool.OnChange(func(snapshot []*accountpool.Account) {
		if err := store.SaveAccounts(cfg.AccountsPath, snapshot); err != nil {
			log.WithError(err).Warn("persist accounts")
		}
		m.SetAccountsTotal(len(snapshot))
		now := time.Now()
		for _, a := range snapshot {
			for model, lim := range a.Limits {
				m.SetAccountCooldown(a.Email, model, lim.CooldownUntil.Sub(now))
			}
		}
	})

	client := &upstream.Client{
		Endpoints:  watcher.Current().Endpoints,
		HTTPClient: &http.Client{Timeout: 5 * time.Minute},
		Pool:       pool,
	}

	thinkingCache := thinking.New(cfg.SignatureCacheSize)

	gwCfg, err := gatewayconfig.Open(cfg.GatewayConfigPath)
	if err != nil {
		log.WithError(err).Fatal("open gateway config store")
	}

	handlers := &api.Handlers{
		GatewayConfig: gwCfg,
		Pool:          pool,
		Client:        client,
		Thinking:      thinkingCache,
		Watcher:       watcher,
		Metrics:       m,
		Log:           log,
	}
	router := api.NewRouter(handlers)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("antigravity-gateway: listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server error")
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGINT)
	<-sigs

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}
}
