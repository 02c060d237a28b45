package bet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"mepflip/internal/model"
)

// State is the bet controller lifecycle phase.
type State string

const (
	StateIdle               State = "idle"
	StateDepositing         State = "depositing"
	StateAwaitingResolution State = "awaiting-resolution"
	StateResolved           State = "resolved"
)

// Validation failures. Each posts a transient alert and leaves all state
// untouched.
var (
	ErrNoWallet            = errors.New("wallet not connected")
	ErrNoBet               = errors.New("bet choice or amount missing")
	ErrNoName              = errors.New("player name not set")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBetInFlight         = errors.New("bet already in flight")
)

const (
	msgConnectWallet       = "Kindly Connect wallet first"
	msgChooseBet           = "Kindly Choose bet and bet amount"
	msgEnterName           = "Kindly Enter a player name first"
	msgInsufficientBalance = "Insufficient Balance"
	msgTransactionFailed   = "Transaction Failed"
	msgFailedToRefund      = "Failed to refund"
)

// Wallet drives player-signed token and pool transactions. Amounts are in
// base units.
type Wallet interface {
	Address() common.Address
	Approve(ctx context.Context, amount *big.Int) error
	Deposit(ctx context.Context, amount *big.Int) error
	Balance(ctx context.Context) (*big.Int, error)
	Decimals(ctx context.Context) (uint8, error)
}

// RelayResult is the decoded relay response envelope.
type RelayResult struct {
	Success  bool
	Msg      string
	Response json.RawMessage
}

// RelayClient calls the relay's distribute and refund endpoints. Amounts are
// in base units; the relay passes them through to the contract unchanged.
type RelayClient interface {
	Distribute(ctx context.Context, wallet string, amount int64, choice model.Side, requestID string) (RelayResult, error)
	Refund(ctx context.Context, wallet string, amount int64) (RelayResult, error)
}

// Emitter pushes finished-bet records to the shared history feed.
type Emitter interface {
	EmitBet(record model.HistoryRecord) error
}

// Controller orchestrates a player's bets: validation, approve+deposit,
// relay invocation, refund on failure, and resolution handling.
type Controller struct {
	wallet  Wallet
	relay   RelayClient
	emitter Emitter
	alerts  *Alerts
	history *History
	logger  *zap.Logger

	mu        sync.Mutex
	state     State
	name      string
	balance   int64
	decimals  uint8
	winStreak int
	message   string
	seen      map[string]struct{}
	resolved  chan model.Resolution
}

// NewController builds a Controller. The emitter may be nil when no history
// feed is connected.
func NewController(wallet Wallet, relay RelayClient, emitter Emitter, alerts *Alerts, logger *zap.Logger) *Controller {
	if alerts == nil {
		alerts = NewAlerts(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		wallet:   wallet,
		relay:    relay,
		emitter:  emitter,
		alerts:   alerts,
		history:  NewHistory(HistoryLimit),
		logger:   logger,
		state:    StateIdle,
		decimals: 9,
		seen:     make(map[string]struct{}),
		resolved: make(chan model.Resolution, 1),
	}
}

// Sync loads the token decimals and the current on-chain balance.
func (c *Controller) Sync(ctx context.Context) error {
	if c.wallet == nil {
		return ErrNoWallet
	}

	decimals, err := c.wallet.Decimals(ctx)
	if err != nil {
		return fmt.Errorf("token decimals: %w", err)
	}

	balance, err := c.wallet.Balance(ctx)
	if err != nil {
		return fmt.Errorf("token balance: %w", err)
	}
	if !balance.IsInt64() {
		return fmt.Errorf("balance does not fit in int64: %s", balance)
	}

	c.mu.Lock()
	c.decimals = decimals
	c.balance = balance.Int64()
	c.mu.Unlock()

	return nil
}

// PlaceBet validates and runs a bet for amount whole tokens on the chosen
// side. The display amount is converted to base units exactly once, here at
// the system boundary. The in-flight guard is released on every exit path.
func (c *Controller) PlaceBet(ctx context.Context, choice model.Side, amount int64) error {
	if c.wallet == nil {
		c.alerts.Post(msgConnectWallet)
		return ErrNoWallet
	}
	if !choice.Valid() || amount <= 0 {
		c.alerts.Post(msgChooseBet)
		return ErrNoBet
	}
	if c.Name() == "" {
		c.alerts.Post(msgEnterName)
		return ErrNoName
	}

	base := amount * pow10(c.Decimals())
	if c.Balance() < base {
		c.alerts.Post(msgInsufficientBalance)
		return ErrInsufficientBalance
	}

	if !c.begin() {
		return ErrBetInFlight
	}

	awaiting := false
	defer func() {
		if !awaiting {
			c.setState(StateIdle)
		}
	}()

	wallet := c.wallet.Address().Hex()
	requestID := uuid.NewString()
	bigBase := big.NewInt(base)

	c.logger.Info("placing bet",
		zap.String("wallet", wallet),
		zap.Int64("amount", base),
		zap.String("choice", string(choice)),
		zap.String("request_id", requestID),
	)

	if err := c.wallet.Approve(ctx, bigBase); err != nil {
		c.alerts.Post(msgTransactionFailed)
		return fmt.Errorf("approve: %w", err)
	}

	if err := c.wallet.Deposit(ctx, bigBase); err != nil {
		c.alerts.Post(msgTransactionFailed)
		return fmt.Errorf("deposit: %w", err)
	}

	// The wager has left the wallet; track it locally before the relay
	// round-trip.
	c.adjustBalance(-base)

	result, err := c.relay.Distribute(ctx, wallet, base, choice, requestID)
	if err != nil {
		c.logger.Warn("distribute failed", zap.Error(err))
		c.refund(ctx, wallet, base)
		return fmt.Errorf("distribute: %w", err)
	}
	if !result.Success {
		c.logger.Warn("distribute rejected", zap.String("msg", result.Msg))
		c.refund(ctx, wallet, base)
		return fmt.Errorf("distribute rejected: %s", result.Msg)
	}

	c.setState(StateAwaitingResolution)
	awaiting = true
	return nil
}

// refund recovers the deposited wager after a failed distribution. It is
// attempted exactly once; a failed refund only surfaces an alert.
func (c *Controller) refund(ctx context.Context, wallet string, base int64) {
	result, err := c.relay.Refund(ctx, wallet, base)
	if err != nil {
		c.logger.Error("refund failed", zap.Error(err))
		c.alerts.Post(msgFailedToRefund)
		return
	}
	if !result.Success {
		c.logger.Error("refund rejected", zap.String("msg", result.Msg))
		c.alerts.Post(msgFailedToRefund)
		return
	}

	c.adjustBalance(base)

	message := "Refund successful"
	var response string
	if err := json.Unmarshal(result.Response, &response); err == nil && response != "" {
		message = response
	}
	c.alerts.Post(message)
}

// HandleResolution reacts to a BetResolved event for this wallet. Processing
// is idempotent: a duplicate delivery of the same chain event is dropped.
func (c *Controller) HandleResolution(res model.Resolution) {
	if c.wallet == nil || !strings.EqualFold(res.Wallet, c.wallet.Address().Hex()) {
		return
	}

	c.mu.Lock()
	if _, dup := c.seen[res.EventID()]; dup {
		c.mu.Unlock()
		c.logger.Debug("duplicate resolution ignored", zap.String("event_id", res.EventID()))
		return
	}
	c.seen[res.EventID()] = struct{}{}

	won := res.Result == model.OutcomeWon
	display := formatBaseUnits(res.Amount, c.decimals)
	if won {
		c.winStreak++
		c.balance += res.Amount
		c.message = fmt.Sprintf("It was %s. You won %s $MEP!", res.Landed(), display)
	} else {
		c.winStreak = 0
		c.message = fmt.Sprintf("It was %s. You lost %s $MEP!", res.Landed(), display)
	}
	c.state = StateResolved
	name := c.name
	streak := c.winStreak
	message := c.message
	c.mu.Unlock()

	c.logger.Info("bet resolved",
		zap.String("result", string(res.Result)),
		zap.String("landed", string(res.Landed())),
		zap.Int64("amount", res.Amount),
		zap.Int("win_streak", streak),
	)
	c.alerts.Post(message)

	if name != "" && c.emitter != nil {
		result := model.ResultLost
		if won {
			result = model.ResultWin
		}
		record := model.HistoryRecord{
			Player:   name,
			Amount:   display,
			Result:   result,
			WinCount: streak,
			Time:     time.Now().UnixMilli(),
		}
		if err := c.emitter.EmitBet(record); err != nil {
			c.logger.Warn("emit bet failed", zap.Error(err))
		}
	}

	select {
	case c.resolved <- res:
	default:
	}
}

// ApplyHistory records a history broadcast received from the relay.
func (c *Controller) ApplyHistory(record model.HistoryRecord) {
	c.history.Push(record)
}

// Resolved signals resolutions of this wallet's bets.
func (c *Controller) Resolved() <-chan model.Resolution {
	return c.resolved
}

// SetName sets the display name used on emitted history records.
func (c *Controller) SetName(name string) {
	c.mu.Lock()
	c.name = strings.TrimSpace(name)
	c.mu.Unlock()
}

// Name returns the display name.
func (c *Controller) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// Balance returns the locally tracked balance in base units.
func (c *Controller) Balance() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance
}

// SetBalance overrides the locally tracked balance in base units.
func (c *Controller) SetBalance(base int64) {
	c.mu.Lock()
	c.balance = base
	c.mu.Unlock()
}

// Decimals returns the token decimals used for display conversion.
func (c *Controller) Decimals() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decimals
}

// WinStreak returns the consecutive-wins counter.
func (c *Controller) WinStreak() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.winStreak
}

// Message returns the last resolution message.
func (c *Controller) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

// State returns the controller lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// History returns the retained history records, newest first.
func (c *Controller) History() []model.HistoryRecord {
	return c.history.Records()
}

func (c *Controller) begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle && c.state != StateResolved {
		return false
	}
	c.state = StateDepositing
	return true
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

func (c *Controller) adjustBalance(delta int64) {
	c.mu.Lock()
	c.balance += delta
	c.mu.Unlock()
}

func pow10(decimals uint8) int64 {
	out := int64(1)
	for i := uint8(0); i < decimals; i++ {
		out *= 10
	}
	return out
}

// formatBaseUnits renders a base-unit amount as a whole-token decimal string
// with trailing zeros trimmed.
func formatBaseUnits(amount int64, decimals uint8) string {
	scale := pow10(decimals)
	whole := amount / scale
	frac := amount % scale
	if frac == 0 {
		return strconv.FormatInt(whole, 10)
	}
	fracStr := strings.TrimRight(fmt.Sprintf("%0*d", decimals, frac), "0")
	return fmt.Sprintf("%d.%s", whole, fracStr)
}
