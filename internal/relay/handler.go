package relay

import (
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	cache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"mepflip/internal/model"
)

// DistributeRequest is the body of POST /distribute. BetAmount is in base
// units; the relay passes it through to the contract unchanged.
type DistributeRequest struct {
	WalletAddress string     `json:"walletAddress" validate:"required,eth_addr"`
	BetAmount     int64      `json:"betAmount" validate:"required,gt=0"`
	Choice        model.Side `json:"choice" validate:"required,oneof=heads tails"`
	RequestID     string     `json:"requestId" validate:"omitempty,uuid4"`
}

// RefundRequest is the body of POST /refund.
type RefundRequest struct {
	WalletAddress string `json:"walletAddress" validate:"required,eth_addr"`
	BetAmount     int64  `json:"betAmount" validate:"required,gt=0"`
}

// Response is the envelope returned by both endpoints.
type Response struct {
	Success  bool        `json:"success"`
	Msg      string      `json:"msg,omitempty"`
	Response interface{} `json:"response,omitempty"`
	Err      string      `json:"err,omitempty"`
}

// ReceiptSummary is the subset of a transaction receipt returned to clients.
type ReceiptSummary struct {
	TxHash      string `json:"transactionHash"`
	BlockNumber uint64 `json:"blockNumber"`
	Status      uint64 `json:"status"`
	GasUsed     uint64 `json:"gasUsed"`
}

const (
	msgMissingFields    = "Kindly enter wallet address, bet amount, and choice"
	msgMissingRefund    = "Kindly enter wallet address and bet amount"
	msgTransferFailed   = "Transfer request failed"
	msgRefundFailed     = "Refund request failed"
	msgRefundSuccessful = "Refund successful"
	msgDuplicateRequest = "Duplicate bet request"

	requestIDRetention = 10 * time.Minute
)

// Handler serves the relay HTTP endpoints.
type Handler struct {
	submitter Submitter
	validate  *validator.Validate
	requests  *cache.Cache
	logger    *zap.Logger
}

// NewHandler builds a Handler around a Submitter.
func NewHandler(submitter Submitter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		submitter: submitter,
		validate:  validator.New(),
		requests:  cache.New(requestIDRetention, requestIDRetention),
		logger:    logger,
	}
}

// Distribute handles POST /distribute: resolvePool with the custody key.
// A repeated requestId is rejected without a second chain submission.
func (h *Handler) Distribute() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DistributeRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			h.logger.Warn("decode distribute body failed", zap.Error(err))
			writeJSON(w, r, http.StatusBadRequest, Response{Success: false, Msg: msgMissingFields})
			return
		}

		if err := h.validate.Struct(req); err != nil {
			h.logger.Warn("invalid distribute request", zap.Error(err))
			writeJSON(w, r, http.StatusBadRequest, Response{Success: false, Msg: msgMissingFields})
			return
		}

		if req.RequestID != "" {
			if err := h.requests.Add(req.RequestID, struct{}{}, cache.DefaultExpiration); err != nil {
				h.logger.Warn("duplicate distribute request", zap.String("request_id", req.RequestID))
				writeJSON(w, r, http.StatusConflict, Response{Success: false, Msg: msgDuplicateRequest})
				return
			}
		}

		wallet := common.HexToAddress(req.WalletAddress)
		amount := big.NewInt(req.BetAmount)

		h.logger.Info("distribute",
			zap.String("wallet", req.WalletAddress),
			zap.Int64("amount", req.BetAmount),
			zap.String("choice", string(req.Choice)),
			zap.String("request_id", req.RequestID),
		)

		receipt, err := h.submitter.ResolvePool(r.Context(), wallet, amount, req.Choice)
		if err != nil {
			h.logger.Error("resolvePool failed", zap.Error(err), zap.String("wallet", req.WalletAddress))
			writeJSON(w, r, http.StatusInternalServerError, Response{
				Success: false,
				Msg:     msgTransferFailed,
				Err:     err.Error(),
			})
			return
		}

		writeJSON(w, r, http.StatusOK, Response{
			Success:  true,
			Msg:      fmt.Sprintf("%d $MEP transferred successfully to %s", req.BetAmount, req.WalletAddress),
			Response: summarize(receipt),
		})
	}
}

// Refund handles POST /refund: refund with the custody key.
func (h *Handler) Refund() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RefundRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			h.logger.Warn("decode refund body failed", zap.Error(err))
			writeJSON(w, r, http.StatusBadRequest, Response{Success: false, Msg: msgMissingRefund})
			return
		}

		if err := h.validate.Struct(req); err != nil {
			h.logger.Warn("invalid refund request", zap.Error(err))
			writeJSON(w, r, http.StatusBadRequest, Response{Success: false, Msg: msgMissingRefund})
			return
		}

		wallet := common.HexToAddress(req.WalletAddress)
		amount := big.NewInt(req.BetAmount)

		h.logger.Info("refund", zap.String("wallet", req.WalletAddress), zap.Int64("amount", req.BetAmount))

		if _, err := h.submitter.Refund(r.Context(), wallet, amount); err != nil {
			h.logger.Error("refund failed", zap.Error(err), zap.String("wallet", req.WalletAddress))
			writeJSON(w, r, http.StatusInternalServerError, Response{
				Success: false,
				Msg:     msgRefundFailed,
				Err:     err.Error(),
			})
			return
		}

		writeJSON(w, r, http.StatusOK, Response{
			Success:  true,
			Response: msgRefundSuccessful,
		})
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body Response) {
	render.Status(r, status)
	render.JSON(w, r, body)
}

func summarize(receipt *types.Receipt) ReceiptSummary {
	summary := ReceiptSummary{
		TxHash:  receipt.TxHash.Hex(),
		Status:  receipt.Status,
		GasUsed: receipt.GasUsed,
	}
	if receipt.BlockNumber != nil {
		summary.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return summary
}
