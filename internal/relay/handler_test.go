package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"mepflip/internal/model"
)

type submittedCall struct {
	method string
	wallet common.Address
	amount *big.Int
	choice model.Side
}

type fakeSubmitter struct {
	mu         sync.Mutex
	calls      []submittedCall
	resolveErr error
	refundErr  error
}

func (f *fakeSubmitter) ResolvePool(ctx context.Context, wallet common.Address, amount *big.Int, choice model.Side) (*types.Receipt, error) {
	f.mu.Lock()
	f.calls = append(f.calls, submittedCall{method: "resolvePool", wallet: wallet, amount: amount, choice: choice})
	f.mu.Unlock()
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return &types.Receipt{
		TxHash:      common.HexToHash("0x01"),
		BlockNumber: big.NewInt(100),
		Status:      types.ReceiptStatusSuccessful,
		GasUsed:     21000,
	}, nil
}

func (f *fakeSubmitter) Refund(ctx context.Context, wallet common.Address, amount *big.Int) (*types.Receipt, error) {
	f.mu.Lock()
	f.calls = append(f.calls, submittedCall{method: "refund", wallet: wallet, amount: amount})
	f.mu.Unlock()
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	return &types.Receipt{TxHash: common.HexToHash("0x02"), BlockNumber: big.NewInt(101)}, nil
}

func (f *fakeSubmitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func post(t *testing.T, handlerFunc http.HandlerFunc, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handlerFunc(rec, req)

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rec, resp
}

const testWallet = "0x1111111111111111111111111111111111111111"

func TestDistributeMissingFieldSubmitsNothing(t *testing.T) {
	cases := []string{
		`{}`,
		`{"walletAddress":"` + testWallet + `","betAmount":1000000000000}`,
		`{"walletAddress":"` + testWallet + `","choice":"heads"}`,
		`{"betAmount":1000000000000,"choice":"heads"}`,
		`{"walletAddress":"not-an-address","betAmount":1000000000000,"choice":"heads"}`,
		`{"walletAddress":"` + testWallet + `","betAmount":1000000000000,"choice":"edge"}`,
		`not json`,
	}

	for _, body := range cases {
		submitter := &fakeSubmitter{}
		handler := NewHandler(submitter, nil)

		rec, resp := post(t, handler.Distribute(), body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, rec.Code)
		}
		if resp.Success {
			t.Fatalf("body %q: expected success=false", body)
		}
		if submitter.callCount() != 0 {
			t.Fatalf("body %q: chain transaction submitted on invalid input", body)
		}
	}
}

func TestDistributeSuccess(t *testing.T) {
	submitter := &fakeSubmitter{}
	handler := NewHandler(submitter, nil)

	body := `{"walletAddress":"` + testWallet + `","betAmount":1000000000000,"choice":"heads"}`
	rec, resp := post(t, handler.Distribute(), body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !resp.Success {
		t.Fatalf("expected success=true: %+v", resp)
	}

	if submitter.callCount() != 1 {
		t.Fatalf("expected 1 submission, got %d", submitter.callCount())
	}
	call := submitter.calls[0]
	if call.method != "resolvePool" {
		t.Fatalf("expected resolvePool, got %s", call.method)
	}
	if call.wallet != common.HexToAddress(testWallet) {
		t.Fatalf("wallet mismatch: %s", call.wallet.Hex())
	}
	if call.amount.Int64() != 1000000000000 {
		t.Fatalf("amount mismatch: %s", call.amount)
	}
	if call.choice != model.SideHeads {
		t.Fatalf("choice mismatch: %s", call.choice)
	}
}

func TestDistributeChainFailureIsGeneric(t *testing.T) {
	submitter := &fakeSubmitter{resolveErr: errors.New("estimate gas: execution reverted")}
	handler := NewHandler(submitter, nil)

	body := `{"walletAddress":"` + testWallet + `","betAmount":1000000000000,"choice":"tails"}`
	rec, resp := post(t, handler.Distribute(), body)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if resp.Success {
		t.Fatalf("expected success=false")
	}
	if resp.Msg != msgTransferFailed {
		t.Fatalf("expected generic failure message, got %q", resp.Msg)
	}
}

func TestDistributeDuplicateRequestID(t *testing.T) {
	submitter := &fakeSubmitter{}
	handler := NewHandler(submitter, nil)

	body := `{"walletAddress":"` + testWallet + `","betAmount":1000000000000,"choice":"heads","requestId":"7d444840-9dc0-11d1-b245-5ffdce74fad2"}`

	rec, _ := post(t, handler.Distribute(), body)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rec.Code)
	}

	rec, resp := post(t, handler.Distribute(), body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second request: expected 409, got %d", rec.Code)
	}
	if resp.Success {
		t.Fatalf("second request: expected success=false")
	}
	if submitter.callCount() != 1 {
		t.Fatalf("duplicate requestId reached the chain: %d submissions", submitter.callCount())
	}
}

func TestRefundSuccess(t *testing.T) {
	submitter := &fakeSubmitter{}
	handler := NewHandler(submitter, nil)

	body := `{"walletAddress":"` + testWallet + `","betAmount":1000000000000}`
	rec, resp := post(t, handler.Refund(), body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !resp.Success {
		t.Fatalf("expected success=true")
	}
	if resp.Response != msgRefundSuccessful {
		t.Fatalf("expected %q, got %v", msgRefundSuccessful, resp.Response)
	}
	if submitter.calls[0].method != "refund" {
		t.Fatalf("expected refund submission")
	}
}

func TestRefundMissingField(t *testing.T) {
	submitter := &fakeSubmitter{}
	handler := NewHandler(submitter, nil)

	rec, resp := post(t, handler.Refund(), `{"walletAddress":"`+testWallet+`"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if resp.Success || submitter.callCount() != 0 {
		t.Fatalf("invalid refund request must not submit")
	}
}

func TestRefundFailure(t *testing.T) {
	submitter := &fakeSubmitter{refundErr: errors.New("nonce too low")}
	handler := NewHandler(submitter, nil)

	body := `{"walletAddress":"` + testWallet + `","betAmount":1000000000000}`
	rec, resp := post(t, handler.Refund(), body)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if resp.Msg != msgRefundFailed {
		t.Fatalf("expected %q, got %q", msgRefundFailed, resp.Msg)
	}
}
