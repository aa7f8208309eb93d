package solana

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"casino-settlement-go/internal/chain"
	"casino-settlement-go/internal/metrics"
	"casino-settlement-go/internal/models"

	"github.com/avast/retry-go"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

// Client talks to a Solana JSON-RPC node. Every call is retried with
// exponential backoff and reads use finalized commitment.
type Client struct {
	rpc      *rpc.Client
	attempts uint
	delay    time.Duration
}

var _ chain.Client = (*Client)(nil)

func NewClient(httpClient *http.Client, cfg models.ChainConfig) *Client {
	rpcClient := jsonrpc.NewClientWithOpts(cfg.RpcUrl, &jsonrpc.RPCClientOpts{HTTPClient: httpClient})

	attempts := cfg.RetryAttempts
	if attempts == 0 {
		attempts = 3
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	return &Client{
		rpc:      rpc.NewWithCustomRPCClient(rpcClient),
		attempts: attempts,
		delay:    delay,
	}
}

func (c *Client) do(ctx context.Context, op string, fn func() error) error {
	start := time.Now()
	err := retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			zap.L().Warn("Solana RPC retry",
				zap.String("operation", op),
				zap.Uint("attempt", n+1),
				zap.Error(err))
		}),
	)
	metrics.RecordExternalCall("solana_rpc", op, err == nil, time.Since(start))
	if err != nil {
		return fmt.Errorf("solana %s failed: %w", op, err)
	}
	return nil
}

func parseAddress(address string) (solanago.PublicKey, error) {
	pk, err := solanago.PublicKeyFromBase58(address)
	if err != nil {
		return solanago.PublicKey{}, fmt.Errorf("%w: %s", chain.ErrInvalidAddress, address)
	}
	return pk, nil
}

func (c *Client) ValidateAddress(address string) error {
	_, err := parseAddress(address)
	return err
}

func (c *Client) GetBalance(ctx context.Context, address string) (uint64, error) {
	pk, err := parseAddress(address)
	if err != nil {
		return 0, err
	}

	var lamports uint64
	err = c.do(ctx, "getBalance", func() error {
		out, err := c.rpc.GetBalance(ctx, pk, rpc.CommitmentFinalized)
		if err != nil {
			return err
		}
		lamports = out.Value
		return nil
	})
	return lamports, err
}

func (c *Client) GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]chain.SignatureInfo, error) {
	pk, err := parseAddress(address)
	if err != nil {
		return nil, err
	}

	var infos []chain.SignatureInfo
	err = c.do(ctx, "getSignaturesForAddress", func() error {
		out, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, pk, &rpc.GetSignaturesForAddressOpts{
			Limit:      &limit,
			Commitment: rpc.CommitmentFinalized,
		})
		if err != nil {
			return err
		}

		infos = make([]chain.SignatureInfo, 0, len(out))
		for _, s := range out {
			info := chain.SignatureInfo{
				Signature: s.Signature.String(),
				Slot:      s.Slot,
				Failed:    s.Err != nil,
			}
			if s.BlockTime != nil {
				info.BlockTime = s.BlockTime.Time().UTC()
			}
			infos = append(infos, info)
		}
		return nil
	})
	return infos, err
}

func (c *Client) GetTransaction(ctx context.Context, signature string) (*chain.Transaction, error) {
	sig, err := solanago.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature %s: %w", signature, err)
	}

	var result *chain.Transaction
	err = c.do(ctx, "getTransaction", func() error {
		maxVersion := uint64(0)
		out, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
			Encoding:                       solanago.EncodingBase64,
			Commitment:                     rpc.CommitmentFinalized,
			MaxSupportedTransactionVersion: &maxVersion,
		})
		if err != nil {
			return err
		}
		if out.Meta == nil || out.Transaction == nil {
			return fmt.Errorf("transaction %s has no metadata", signature)
		}

		tx, err := out.Transaction.GetTransaction()
		if err != nil {
			return fmt.Errorf("failed to decode transaction: %w", err)
		}

		accounts := make([]string, 0, len(tx.Message.AccountKeys))
		for _, key := range tx.Message.AccountKeys {
			accounts = append(accounts, key.String())
		}

		result = &chain.Transaction{
			Signature:    signature,
			Slot:         out.Slot,
			Failed:       out.Meta.Err != nil,
			Fee:          out.Meta.Fee,
			Accounts:     accounts,
			PreBalances:  out.Meta.PreBalances,
			PostBalances: out.Meta.PostBalances,
		}
		if out.BlockTime != nil {
			result.BlockTime = out.BlockTime.Time().UTC()
		}
		return nil
	})
	return result, err
}

func (c *Client) latestBlockhash(ctx context.Context) (solanago.Hash, error) {
	var hash solanago.Hash
	err := c.do(ctx, "getLatestBlockhash", func() error {
		out, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
		if err != nil {
			return err
		}
		hash = out.Value.Blockhash
		return nil
	})
	return hash, err
}

func (c *Client) GetLatestBlockhash(ctx context.Context) (string, error) {
	hash, err := c.latestBlockhash(ctx)
	if err != nil {
		return "", err
	}
	return hash.String(), nil
}

func (c *Client) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error) {
	var lamports uint64
	err := c.do(ctx, "getMinimumBalanceForRentExemption", func() error {
		var err error
		lamports, err = c.rpc.GetMinimumBalanceForRentExemption(ctx, dataSize, rpc.CommitmentFinalized)
		return err
	})
	return lamports, err
}

// SendTransfer signs once and only retries the submission. Resending the
// same signed transaction cannot move funds twice.
func (c *Client) SendTransfer(ctx context.Context, req chain.TransferRequest) (string, error) {
	to, err := parseAddress(req.To)
	if err != nil {
		return "", err
	}

	signers := []solanago.PrivateKey{req.From.PrivateKey()}
	payer := req.From
	if req.FeePayer != nil {
		payer = *req.FeePayer
		signers = append(signers, payer.PrivateKey())
	}

	blockhash, err := c.latestBlockhash(ctx)
	if err != nil {
		return "", err
	}

	tx, err := solanago.NewTransaction(
		[]solanago.Instruction{
			system.NewTransferInstruction(req.Lamports, req.From.PrivateKey().PublicKey(), to).Build(),
		},
		blockhash,
		solanago.TransactionPayer(payer.PrivateKey().PublicKey()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to build transfer: %w", err)
	}

	_, err = tx.Sign(func(key solanago.PublicKey) *solanago.PrivateKey {
		for i := range signers {
			if signers[i].PublicKey().Equals(key) {
				return &signers[i]
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign transfer: %w", err)
	}

	var sig solanago.Signature
	err = c.do(ctx, "sendTransaction", func() error {
		var err error
		sig, err = c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			PreflightCommitment: rpc.CommitmentFinalized,
		})
		return err
	})
	if err != nil {
		return "", err
	}

	zap.L().Info("Transfer submitted",
		zap.String("signature", sig.String()),
		zap.String("from", req.From.Address()),
		zap.String("to", req.To),
		zap.Uint64("lamports", req.Lamports),
		zap.String("fee_payer", payer.Address()))

	return sig.String(), nil
}

func (c *Client) GetSignatureStatus(ctx context.Context, signature string) (*chain.SignatureStatus, error) {
	sig, err := solanago.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature %s: %w", signature, err)
	}

	var status *chain.SignatureStatus
	err = c.do(ctx, "getSignatureStatuses", func() error {
		out, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			return err
		}
		if len(out.Value) == 0 || out.Value[0] == nil {
			status = nil
			return nil
		}

		v := out.Value[0]
		status = &chain.SignatureStatus{
			Slot:   v.Slot,
			Status: chain.ConfirmationStatus(v.ConfirmationStatus),
		}
		if v.Err != nil {
			status.Err = fmt.Sprint(v.Err)
		}
		return nil
	})
	return status, err
}
