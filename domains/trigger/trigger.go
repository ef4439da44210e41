package trigger

import (
	"context"
	"strings"
)

// Document is the flat JSON document that backs the trigger store.
// Responses map normalized trigger phrases to reply text; MediaHandlers map
// normalized trigger phrases to a media file path sent as the reply.
type Document struct {
	Responses     map[string]string `json:"responses"`
	MediaHandlers map[string]string `json:"mediaHandlers"`
}

func NewDocument() Document {
	return Document{
		Responses:     make(map[string]string),
		MediaHandlers: make(map[string]string),
	}
}

// Normalize is the single normalization rule for trigger keys and for
// inbound text before lookup: trimmed and lowercased.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type ITriggerUsecase interface {
	// GetAll returns a snapshot copy, never the internal map.
	GetAll() map[string]string
	// MediaHandlers returns a snapshot copy of the media handler table.
	MediaHandlers() map[string]string
	// Upsert normalizes the trigger, updates memory and persists the whole
	// document synchronously.
	Upsert(trigger, response string) error
	// Remove returns false when the trigger does not exist; no error.
	Remove(trigger string) (bool, error)
	// Reload re-reads the backing document, falling back to an empty
	// document on a missing file or malformed content.
	Reload() error
	// StartWatching reloads the document when it is edited externally,
	// until ctx is done.
	StartWatching(ctx context.Context) error
}
