package model

import "fmt"

// Resolution is the decoded BetResolved contract event. Amount is in base
// units. TxHash and LogIndex identify the emitting log on chain.
type Resolution struct {
	Wallet      string  `json:"wallet"`
	Amount      int64   `json:"amount"`
	Choice      Side    `json:"choice"`
	Result      Outcome `json:"result"`
	TxHash      string  `json:"tx_hash"`
	LogIndex    uint64  `json:"log_index"`
	BlockNumber uint64  `json:"block_number"`
}

// EventID is the idempotence key for at-most-once resolution handling.
func (r Resolution) EventID() string {
	return fmt.Sprintf("%s:%d", r.TxHash, r.LogIndex)
}

// Landed returns the coin face the flip actually landed on.
func (r Resolution) Landed() Side {
	if r.Result == OutcomeWon {
		return r.Choice
	}
	return r.Choice.Opposite()
}
