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
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"casino-settlement-go/internal/common"
	"casino-settlement-go/internal/config"
	"casino-settlement-go/internal/listener"

	"go.uber.org/zap"
)

func main() {
	onceFlag := flag.Bool("once", false, "Run a single scan cycle and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		common.InstallFallbackLogger()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger(cfg.Logging)
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting deposit scanner")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	scanner, err := listener.NewScanner(listener.ScannerConfig{
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

	if *onceFlag {
		report, err := scanner.RunCycle(ctx)
		if err != nil {
			zap.L().Fatal("Scan cycle failed", zap.Error(err))
		}
		zap.L().Info("Scan cycle finished",
			zap.Int("addresses", report.Addresses),
			zap.Int("swept", report.Swept),
			zap.Int("failed", report.Failed))
		return
	}

	if err := scanner.Start(ctx); err != nil {
		zap.L().Fatal("Failed to start scanner", zap.Error(err))
	}

	zap.L().Info("Scanner running", zap.Duration("interval", cfg.Scanner.Interval))
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping scanner...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		scanner.Stop()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Scanner stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}
}
