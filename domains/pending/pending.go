package pending

import (
	"context"
	"time"
)

// PendingItem is a message no automated path could answer, waiting for an
// operator. The id is deterministic (origin chat + creation timestamp) and
// stable for the item's lifetime.
type PendingItem struct {
	ID            string    `json:"id"`
	ChatJID       string    `json:"chat_jid"`
	Text          string    `json:"text"`
	ContactName   string    `json:"contact_name"`
	CreatedAt     time.Time `json:"created_at"`
	FailureReason string    `json:"failure_reason,omitempty"`
}

type IPendingUsecase interface {
	// Add registers a new item and returns its id. No deduplication: every
	// miss creates a fresh item, even from the same chat.
	Add(chatJID, text, contactName string) string
	// AddWithFailure is Add plus an annotation of why automation failed.
	AddWithFailure(chatJID, text, contactName, reason string) string
	// Resolve dispatches response to the origin chat, teaches the trigger
	// store with the item's original text, and removes the item. Resolving
	// an unknown id returns found=false and has no side effects.
	Resolve(ctx context.Context, id, response string) (found bool, err error)
	// SweepExpired silently drops items older than maxAge, returning how
	// many were removed.
	SweepExpired(maxAge time.Duration) int
	// List returns items in insertion order.
	List() []PendingItem
	// StartBackgroundSweep runs SweepExpired periodically until ctx ends.
	StartBackgroundSweep(ctx context.Context)
}
