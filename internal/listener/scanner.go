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

package listener

import (
	"context"
	"fmt"
	"sync"
	"time"

	"casino-settlement-go/internal/metrics"
	"casino-settlement-go/internal/models"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ANSI color helpers for console output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// Start schedules scan cycles every Interval after InitialDelay
func (s *Scanner) Start(ctx context.Context) error {
	zap.L().Info("Starting deposit scanner")

	logger := cronLogger{}
	s.cron = cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	spec := fmt.Sprintf("@every %s", s.settings.Interval)
	if _, err := s.cron.AddFunc(spec, func() { s.runScheduled(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule scanner: %w", err)
	}

	go func() {
		defer close(s.doneChan)

		select {
		case <-time.After(s.settings.InitialDelay):
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}

		s.runScheduled(ctx)
		s.cron.Start()

		select {
		case <-s.stopChan:
		case <-ctx.Done():
		}
		<-s.cron.Stop().Done()
	}()

	zap.L().Info("Deposit scanner started",
		zap.Duration("interval", s.settings.Interval),
		zap.Duration("initial_delay", s.settings.InitialDelay),
		zap.Int("max_concurrency", s.settings.MaxConcurrency))
	return nil
}

// Stop waits for the running cycle to finish
func (s *Scanner) Stop() {
	if s.cron == nil {
		return
	}
	zap.L().Info("Stopping deposit scanner")
	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.doneChan
	zap.L().Info("Deposit scanner stopped")
}

func (s *Scanner) runScheduled(ctx context.Context) {
	if _, err := s.RunCycle(ctx); err != nil {
		zap.L().Warn("Scan cycle did not run", zap.Error(err))
	}
}

// RunCycle scans every deposit address once. Only one cycle runs at a time;
// a call while another is running returns ErrCycleInProgress. Failures are
// isolated per address and counted in the report.
func (s *Scanner) RunCycle(ctx context.Context) (*models.ScanReport, error) {
	if !s.running.TryLock() {
		metrics.IncScanSkipped()
		return nil, ErrCycleInProgress
	}
	defer s.running.Unlock()

	report := &models.ScanReport{StartedAt: time.Now().UTC()}
	defer func() {
		report.Duration = time.Since(report.StartedAt)
		metrics.RecordScanCycle(report.Duration)
	}()

	users, err := s.dbService.GetUsersWithDepositAddress(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to load deposit addresses: %w", err)
	}
	report.Addresses = len(users)

	fmt.Printf("\n%s[%s] Scanning %d deposit addresses%s\n",
		colorCyan, time.Now().Format("15:04:05"), len(users), colorReset)

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := semaphore.NewWeighted(int64(s.settings.MaxConcurrency))

	for _, user := range users {
		if err := sem.Acquire(ctx, 1); err != nil {
			zap.L().Warn("Scan cycle cancelled", zap.Error(err))
			break
		}
		wg.Add(1)

		go func(u models.User) {
			defer wg.Done()
			defer sem.Release(1)

			metrics.AddScanInFlight(1)
			defer metrics.AddScanInFlight(-1)

			out := s.processAddress(ctx, u)

			mu.Lock()
			defer mu.Unlock()
			switch out {
			case outcomeSwept:
				report.Swept++
			case outcomeDuplicate:
				report.Duplicates++
			case outcomeFailed:
				report.Failed++
			default:
				report.Skipped++
			}
		}(user)
	}
	wg.Wait()

	converted, err := s.apiService.ConvertPendingDeposits(ctx)
	if err != nil {
		zap.L().Error("Failed to convert pending deposits", zap.Error(err))
	}
	report.Converted = converted

	color := colorGreen
	if report.Failed > 0 {
		color = colorYellow
	}
	fmt.Printf("  %sswept=%d duplicates=%d failed=%d converted=%d%s\n",
		color, report.Swept, report.Duplicates, report.Failed, report.Converted, colorReset)

	zap.L().Info("Scan cycle completed",
		zap.Int("addresses", report.Addresses),
		zap.Int("swept", report.Swept),
		zap.Int("skipped", report.Skipped),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("failed", report.Failed),
		zap.Int("converted", report.Converted))

	return report, nil
}
