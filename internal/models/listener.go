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

package models

import "time"

// InboundTransfer is the most recent balance-increasing transaction seen on a
// deposit address
type InboundTransfer struct {
	Signature     string    `json:"signature"`
	Address       string    `json:"address"`
	SourceAddress string    `json:"source_address"`
	Lamports      uint64    `json:"lamports"`
	BlockTime     time.Time `json:"block_time"`
}

// ScanReport summarizes one deposit scanner cycle
type ScanReport struct {
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Addresses  int           `json:"addresses"`
	Swept      int           `json:"swept"`
	Skipped    int           `json:"skipped"`
	Duplicates int           `json:"duplicates"`
	Failed     int           `json:"failed"`
	Converted  int           `json:"converted"`
}
