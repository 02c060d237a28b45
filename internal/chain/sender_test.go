package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Well-known throwaway key, never funded.
const testKeyHex = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

type fakeBackend struct {
	mu            sync.Mutex
	sent          []*types.Transaction
	receiptAfter  int
	receiptChecks int
	sendErr       error
	estimateErr   error
}

func (f *fakeBackend) GetChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(11155111), nil
}

func (f *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(2000000000), nil
}

func (f *fakeBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if f.estimateErr != nil {
		return 0, f.estimateErr
	}
	return 90000, nil
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 7, nil
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mu.Lock()
	f.sent = append(f.sent, tx)
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiptChecks++
	if f.receiptChecks <= f.receiptAfter {
		return nil, ethereum.NotFound
	}
	return &types.Receipt{
		TxHash:      txHash,
		BlockNumber: big.NewInt(500),
		Status:      types.ReceiptStatusSuccessful,
	}, nil
}

func TestSenderSendSignsAndWaits(t *testing.T) {
	backend := &fakeBackend{receiptAfter: 2}
	sender, err := NewSender(backend, testKeyHex, 10*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}

	to := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	calldata := []byte{0x01, 0x02}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	receipt, err := sender.Send(ctx, to, calldata)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		t.Fatalf("unexpected receipt status: %d", receipt.Status)
	}

	if len(backend.sent) != 1 {
		t.Fatalf("expected 1 submitted tx, got %d", len(backend.sent))
	}
	tx := backend.sent[0]
	if tx.Nonce() != 7 {
		t.Fatalf("nonce mismatch: %d", tx.Nonce())
	}
	if tx.Gas() != 90000 {
		t.Fatalf("gas mismatch: %d", tx.Gas())
	}
	if tx.To() == nil || *tx.To() != to {
		t.Fatalf("to mismatch")
	}

	signer := types.LatestSignerForChainID(big.NewInt(11155111))
	from, err := types.Sender(signer, tx)
	if err != nil {
		t.Fatalf("recover sender: %v", err)
	}
	if from != sender.From() {
		t.Fatalf("signature not from sender key: %s != %s", from.Hex(), sender.From().Hex())
	}
}

func TestSenderEstimateFailureSubmitsNothing(t *testing.T) {
	backend := &fakeBackend{estimateErr: errors.New("execution reverted")}
	sender, err := NewSender(backend, testKeyHex, 10*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}

	_, err = sender.Send(context.Background(), common.Address{}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(backend.sent) != 0 {
		t.Fatalf("transaction submitted despite failed estimation")
	}
}

func TestSenderWaitHonorsContext(t *testing.T) {
	backend := &fakeBackend{receiptAfter: 1 << 30}
	sender, err := NewSender(backend, testKeyHex, 10*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if _, err := sender.Send(ctx, common.Address{}, []byte{0x01}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestNewSenderRejectsBadKey(t *testing.T) {
	if _, err := NewSender(&fakeBackend{}, "zz", time.Second, nil); err == nil {
		t.Fatalf("expected error for invalid key")
	}
}
