package storage

import (
	"time"

	"github.com/google/uuid"
)

// AlertRecord captures an emitted alert for auditing. Prices themselves are
// never persisted; the record only describes what was sent and when.
type AlertRecord struct {
	ID           int64
	RunID        uuid.UUID
	SentAt       time.Time
	Recipient    string
	Subject      string
	GamesInRange int
	FailedURLs   int
	Channels     []string
	CreatedAt    time.Time
}
