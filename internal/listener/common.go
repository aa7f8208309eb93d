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
	"errors"
	"fmt"
	"sync"
	"time"

	"casino-settlement-go/internal/api"
	"casino-settlement-go/internal/chain"
	"casino-settlement-go/internal/models"
	"casino-settlement-go/internal/store"
	"casino-settlement-go/internal/wallet"

	"github.com/robfig/cron/v3"
)

var (
	ErrTreasuryMismatch = errors.New("treasury key does not match treasury address")
	ErrCycleInProgress  = errors.New("scan cycle already in progress")
)

// ScannerConfig contains configuration for Scanner
type ScannerConfig struct {
	Chain           chain.Client
	ApiService      *api.LedgerService
	DbService       store.Store
	Deriver         *wallet.Deriver
	Treasury        chain.Keypair
	TreasuryAddress string
	Settings        models.ScannerConfig
}

// Scanner polls every deposit address, sweeps new inbound funds to the
// treasury and credits the owner
type Scanner struct {
	chain      chain.Client
	apiService *api.LedgerService
	dbService  store.Store
	deriver    *wallet.Deriver
	treasury   chain.Keypair
	settings   models.ScannerConfig

	// running is held for the whole cycle so cycles never overlap.
	running sync.Mutex
	cron    *cron.Cron

	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

// NewScanner validates the treasury keypair against the configured treasury
// address and fills scanner defaults
func NewScanner(cfg ScannerConfig) (*Scanner, error) {
	if cfg.Chain == nil || cfg.ApiService == nil || cfg.DbService == nil || cfg.Deriver == nil {
		return nil, fmt.Errorf("scanner requires chain, api, store and deriver")
	}
	if cfg.Treasury.IsZero() {
		return nil, fmt.Errorf("%w: no treasury key configured", ErrTreasuryMismatch)
	}
	if cfg.TreasuryAddress != "" && cfg.Treasury.Address() != cfg.TreasuryAddress {
		return nil, fmt.Errorf("%w: key is %s, configured %s",
			ErrTreasuryMismatch, cfg.Treasury.Address(), cfg.TreasuryAddress)
	}

	return &Scanner{
		chain:      cfg.Chain,
		apiService: cfg.ApiService,
		dbService:  cfg.DbService,
		deriver:    cfg.Deriver,
		treasury:   cfg.Treasury,
		settings:   withDefaults(cfg.Settings),
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}, nil
}

func withDefaults(s models.ScannerConfig) models.ScannerConfig {
	if s.Interval <= 0 {
		s.Interval = 15 * time.Second
	}
	if s.MaxConcurrency <= 0 {
		s.MaxConcurrency = 10
	}
	if s.SignatureLimit <= 0 {
		s.SignatureLimit = 20
	}
	if s.FinalizationTimeout <= 0 {
		s.FinalizationTimeout = 60 * time.Second
	}
	if s.FinalizationPoll <= 0 {
		s.FinalizationPoll = 2 * time.Second
	}
	return s
}
