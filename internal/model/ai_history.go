package model

import "time"

// AIHistoryEntry is one successful prompt-to-query translation.
// Entries are capped at AIHistoryLimit, newest first, de-duplicated on
// exact prompt text.
type AIHistoryEntry struct {
	ID          int64
	Prompt      string
	Filter      string
	Explanation string
	CreatedAt   time.Time
}

// AIHistoryLimit caps the persisted translation history.
const AIHistoryLimit = 20
