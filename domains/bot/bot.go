package bot

import (
	"context"

	domainSession "github.com/AzielCF/az-reply/domains/session"
)

type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchPartial MatchType = "partial"
	MatchSimilar MatchType = "similar"
	MatchMedia   MatchType = "media"
	MatchAI      MatchType = "ai"
	MatchNone    MatchType = "none"
)

// Classification carries the outcome of the trigger pipeline plus the
// provenance of the answer.
type Classification struct {
	Matched   bool      `json:"matched"`
	MatchType MatchType `json:"match_type"`
	Trigger   string    `json:"trigger,omitempty"`
	Response  string    `json:"response,omitempty"`
	MediaPath string    `json:"media_path,omitempty"`
}

// IAIProvider is the text-generation fallback. Any failure (quota, network,
// config) is reported as a plain error and treated uniformly by the caller.
type IAIProvider interface {
	GenerateResponse(ctx context.Context, text string) (string, error)
}

// ISender is the minimal dispatch surface the pipeline needs. The primary
// sender is the live transport; an alternate handle may exist for the
// one-shot retry after a send failure.
type ISender interface {
	SendMessage(ctx context.Context, chatJID, text string) error
	SendMedia(ctx context.Context, chatJID, path, caption string) error
}

type IBotUsecase interface {
	// Classify runs exact -> substring -> fuzzy against the trigger store.
	// It never touches the AI fallback; deterministic for a fixed store.
	Classify(text string) Classification
	// HandleInbound applies chat policy (redirect, admin routing) and runs
	// the full pipeline including AI fallback and escalation.
	HandleInbound(ctx context.Context, msg domainSession.InboundMessage)
}
