package bet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mepflip/internal/model"
)

// HTTPRelay calls the relay's JSON endpoints over HTTP.
type HTTPRelay struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRelay builds a relay client for the given base URL, e.g.
// "http://localhost:8080".
func NewHTTPRelay(baseURL string, client *http.Client) *HTTPRelay {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPRelay{baseURL: baseURL, client: client}
}

type distributeBody struct {
	WalletAddress string     `json:"walletAddress"`
	BetAmount     int64      `json:"betAmount"`
	Choice        model.Side `json:"choice"`
	RequestID     string     `json:"requestId,omitempty"`
}

type refundBody struct {
	WalletAddress string `json:"walletAddress"`
	BetAmount     int64  `json:"betAmount"`
}

type relayEnvelope struct {
	Success  bool            `json:"success"`
	Msg      string          `json:"msg"`
	Response json.RawMessage `json:"response"`
	Err      string          `json:"err"`
}

// Distribute asks the relay to resolve the deposited bet. Amount is in base
// units.
func (r *HTTPRelay) Distribute(ctx context.Context, wallet string, amount int64, choice model.Side, requestID string) (RelayResult, error) {
	body := distributeBody{
		WalletAddress: wallet,
		BetAmount:     amount,
		Choice:        choice,
		RequestID:     requestID,
	}
	return r.post(ctx, "/distribute", body)
}

// Refund asks the relay to return the deposited wager. Amount is in base
// units.
func (r *HTTPRelay) Refund(ctx context.Context, wallet string, amount int64) (RelayResult, error) {
	return r.post(ctx, "/refund", refundBody{WalletAddress: wallet, BetAmount: amount})
}

// post sends the request and decodes the response envelope. A non-2xx status
// with a decodable envelope is not an error; the envelope carries the
// failure.
func (r *HTTPRelay) post(ctx context.Context, path string, body interface{}) (RelayResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return RelayResult{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return RelayResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return RelayResult{}, fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return RelayResult{}, fmt.Errorf("read response: %w", err)
	}

	var envelope relayEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return RelayResult{}, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}

	return RelayResult{
		Success:  envelope.Success,
		Msg:      envelope.Msg,
		Response: envelope.Response,
	}, nil
}
