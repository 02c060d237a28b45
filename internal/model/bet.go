package model

import (
	"fmt"
	"time"
)

// Side is the coin face a player bets on.
type Side string

const (
	SideHeads Side = "heads"
	SideTails Side = "tails"
)

// Valid reports whether the side is one of the two allowed values.
func (s Side) Valid() bool {
	return s == SideHeads || s == SideTails
}

// Opposite returns the other coin face.
func (s Side) Opposite() Side {
	if s == SideHeads {
		return SideTails
	}
	return SideHeads
}

// ParseSide converts a string into a Side.
func ParseSide(input string) (Side, error) {
	side := Side(input)
	if !side.Valid() {
		return "", fmt.Errorf("invalid side: %s", input)
	}
	return side, nil
}

// Outcome is the terminal result of a resolved bet.
type Outcome string

const (
	OutcomeWon  Outcome = "won"
	OutcomeLost Outcome = "lost"
)

// Valid reports whether the outcome is one of the two terminal values.
func (o Outcome) Valid() bool {
	return o == OutcomeWon || o == OutcomeLost
}

// Bet is a wager captured at submission time. Amount is in base units
// (smallest token unit) and is immutable once submitted.
type Bet struct {
	Player   string    `json:"player"`
	Wallet   string    `json:"wallet"`
	Amount   int64     `json:"amount"`
	Choice   Side      `json:"choice"`
	PlacedAt time.Time `json:"placed_at"`
}
