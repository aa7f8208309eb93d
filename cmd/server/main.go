/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"casino-settlement-go/internal/common"
	"casino-settlement-go/internal/config"
	"casino-settlement-go/internal/handlers"
	"casino-settlement-go/internal/listener"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		common.InstallFallbackLogger()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger(cfg.Logging)
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting casino settlement server")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	var scanner *listener.Scanner
	if cfg.Scanner.Enabled {
		scanner, err = listener.NewScanner(listener.ScannerConfig{
			Chain:           services.Chain,
			ApiService:      services.ApiService,
			DbService:       services.DbService,
			Deriver:         services.Deriver,
			Treasury:        services.Treasury,
			TreasuryAddress: cfg.Chain.TreasuryAddress,
			Settings:        cfg.Scanner,
		})
		if err != nil {
			zap.L().Fatal("Failed to create scanner", zap.Error(err))
		}
		if err := scanner.Start(ctx); err != nil {
			zap.L().Fatal("Failed to start scanner", zap.Error(err))
		}
	} else {
		zap.L().Info("Deposit scanner disabled, run cmd/scanner separately")
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.Config{
		Ledger:      services.ApiService,
		Sessions:    services.Sessions,
		Blackjack:   services.Blackjack,
		Roulette:    services.Roulette,
		Withdrawals: services.Withdrawals,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zap.L().Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("Forced HTTP shutdown after timeout", zap.Error(err))
	}

	if scanner != nil {
		done := make(chan struct{})
		go func() {
			scanner.Stop()
			close(done)
		}()

		select {
		case <-done:
			zap.L().Info("Scanner stopped gracefully")
		case <-shutdownCtx.Done():
			zap.L().Warn("Scanner did not stop before timeout")
		}
	}

	zap.L().Info("Server stopped")
}
