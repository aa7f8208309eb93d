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

package api

import (
	"context"
	"fmt"

	"casino-settlement-go/internal/events"
	"casino-settlement-go/internal/price"
	"casino-settlement-go/internal/store"
	"casino-settlement-go/internal/wallet"
)

// LedgerServiceConfig contains the collaborators of LedgerService
type LedgerServiceConfig struct {
	Store       store.Store
	Oracle      price.Oracle
	Deriver     *wallet.Deriver
	Initializer *wallet.Initializer
	Publisher   events.Publisher
	Network     string
	Asset       string
	Fiat        string
}

// LedgerService is the money-movement facade shared by the scanner, the
// HTTP handlers and the operator CLIs
type LedgerService struct {
	db          store.Store
	oracle      price.Oracle
	deriver     *wallet.Deriver
	initializer *wallet.Initializer
	publisher   events.Publisher
	network     string
	asset       string
	fiat        string
}

func NewLedgerService(cfg LedgerServiceConfig) *LedgerService {
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	network, asset, fiat := cfg.Network, cfg.Asset, cfg.Fiat
	if network == "" {
		network = "solana"
	}
	if asset == "" {
		asset = "SOL"
	}
	if fiat == "" {
		fiat = "EUR"
	}

	return &LedgerService{
		db:          cfg.Store,
		oracle:      cfg.Oracle,
		deriver:     cfg.Deriver,
		initializer: cfg.Initializer,
		publisher:   publisher,
		network:     network,
		asset:       asset,
		fiat:        fiat,
	}
}

func (s *LedgerService) Asset() string   { return s.asset }
func (s *LedgerService) Fiat() string    { return s.fiat }
func (s *LedgerService) Network() string { return s.network }

func (s *LedgerService) HealthCheck(ctx context.Context) error {
	_, err := s.db.GetUsers(ctx)
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
