package bet

import (
	"sync"

	"mepflip/internal/model"
)

// HistoryLimit caps how many records each client retains.
const HistoryLimit = 10

// History keeps the most recent finished bets, newest first. Older entries
// are evicted silently; there is no persistence.
type History struct {
	mu      sync.Mutex
	limit   int
	records []model.HistoryRecord
}

// NewHistory builds a History holding at most limit records.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = HistoryLimit
	}
	return &History{limit: limit}
}

// Push front-inserts a record, evicting the oldest beyond the limit.
func (h *History) Push(record model.HistoryRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append([]model.HistoryRecord{record}, h.records...)
	if len(h.records) > h.limit {
		h.records = h.records[:h.limit]
	}
}

// Records returns a copy of the retained records, newest at index 0.
func (h *History) Records() []model.HistoryRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]model.HistoryRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Len returns the number of retained records.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}
