package wallet

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"casino-settlement-go/internal/chain"

	"go.uber.org/zap"
)

const defaultInitQueueSize = 100

// Initializer funds new deposit accounts with the rent-exempt minimum so the
// chain keeps them alive. Work is queued; callers never wait on it and
// failures are only logged.
type Initializer struct {
	client   chain.Client
	treasury chain.Keypair
	timeout  time.Duration

	mu      sync.RWMutex
	stopped bool
	jobs    chan string
	errs    chan error
	wg      sync.WaitGroup

	initialized atomic.Int64
	failed      atomic.Int64
	dropped     atomic.Int64
}

func NewInitializer(client chain.Client, treasury chain.Keypair, queueSize int) *Initializer {
	if queueSize <= 0 {
		queueSize = defaultInitQueueSize
	}
	return &Initializer{
		client:   client,
		treasury: treasury,
		timeout:  30 * time.Second,
		jobs:     make(chan string, queueSize),
		errs:     make(chan error, queueSize),
	}
}

// Start runs the worker and the error drain until Stop or ctx is done.
func (i *Initializer) Start(ctx context.Context) {
	i.wg.Add(2)
	go i.work(ctx)
	go i.drain()
}

// Submit queues address for initialization. It returns false when the queue
// is full or the initializer is stopped and the job was dropped.
func (i *Initializer) Submit(address string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.stopped {
		i.dropped.Add(1)
		zap.L().Warn("Address initializer stopped, dropping job", zap.String("address", address))
		return false
	}
	select {
	case i.jobs <- address:
		return true
	default:
		i.dropped.Add(1)
		zap.L().Warn("Address initialization queue full, dropping job", zap.String("address", address))
		return false
	}
}

// Stop closes the queue and waits for queued jobs to finish.
func (i *Initializer) Stop() {
	i.mu.Lock()
	if !i.stopped {
		i.stopped = true
		close(i.jobs)
	}
	i.mu.Unlock()
	i.wg.Wait()
}

func (i *Initializer) Initialized() int64 { return i.initialized.Load() }
func (i *Initializer) Failed() int64      { return i.failed.Load() }

func (i *Initializer) work(ctx context.Context) {
	defer i.wg.Done()
	defer close(i.errs)

	for address := range i.jobs {
		if ctx.Err() != nil {
			continue
		}
		if err := i.initialize(ctx, address); err != nil {
			i.failed.Add(1)
			i.errs <- fmt.Errorf("initialize %s: %w", address, err)
			continue
		}
	}
}

func (i *Initializer) drain() {
	defer i.wg.Done()
	for err := range i.errs {
		zap.L().Error("Deposit address initialization failed", zap.Error(err))
	}
}

func (i *Initializer) initialize(ctx context.Context, address string) error {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	balance, err := i.client.GetBalance(ctx, address)
	if err != nil {
		return fmt.Errorf("balance check failed: %w", err)
	}
	if balance > 0 {
		zap.L().Debug("Deposit address already exists on chain", zap.String("address", address))
		return nil
	}

	rent, err := i.client.GetMinimumBalanceForRentExemption(ctx, 0)
	if err != nil {
		return fmt.Errorf("rent query failed: %w", err)
	}

	sig, err := i.client.SendTransfer(ctx, chain.TransferRequest{
		From:     i.treasury,
		To:       address,
		Lamports: rent,
	})
	if err != nil {
		return fmt.Errorf("funding transfer failed: %w", err)
	}

	i.initialized.Add(1)
	zap.L().Info("Deposit address initialized",
		zap.String("address", address),
		zap.Uint64("lamports", rent),
		zap.String("signature", sig))
	return nil
}
