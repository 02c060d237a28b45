package model

// HistoryRecord is a finished bet as shown in the shared live history feed.
// Amount is the display amount in whole tokens; Time is unix milliseconds.
type HistoryRecord struct {
	Player   string `json:"player"`
	Amount   string `json:"amount"`
	Result   string `json:"result"`
	WinCount int    `json:"winCount"`
	Time     int64  `json:"time"`
}

const (
	ResultWin  = "Win"
	ResultLost = "Lost"
)
