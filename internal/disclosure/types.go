package disclosure

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidArgument reports a missing identifier or a negative token count.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvariantViolation reports an internally inconsistent value.
	ErrInvariantViolation = errors.New("invariant violation")
)

// SummarizeError wraps a Summarizer failure. The cache entry is left as it
// was before the call.
type SummarizeError struct {
	DocRef string
	Err    error
}

func (e *SummarizeError) Error() string {
	return fmt.Sprintf("summarize %q: %v", e.DocRef, e.Err)
}

func (e *SummarizeError) Unwrap() error { return e.Err }

// PayloadType says which form of a document an Outcome carries.
type PayloadType int

const (
	PayloadFull PayloadType = iota + 1
	PayloadSummary
	PayloadDelta
)

func (p PayloadType) String() string {
	switch p {
	case PayloadFull:
		return "FULL"
	case PayloadSummary:
		return "SUMMARY"
	case PayloadDelta:
		return "DELTA"
	default:
		return fmt.Sprintf("PayloadType(%d)", int(p))
	}
}

func (p PayloadType) valid() bool {
	return p >= PayloadFull && p <= PayloadDelta
}

func (p PayloadType) MarshalJSON() ([]byte, error) {
	if !p.valid() {
		return nil, fmt.Errorf("%w: unknown payload type %d", ErrInvalidArgument, int(p))
	}
	return json.Marshal(p.String())
}

func (p *PayloadType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePayloadType(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePayloadType maps "FULL", "SUMMARY" or "DELTA" to a PayloadType.
func ParsePayloadType(s string) (PayloadType, error) {
	switch s {
	case "FULL":
		return PayloadFull, nil
	case "SUMMARY":
		return PayloadSummary, nil
	case "DELTA":
		return PayloadDelta, nil
	}
	return 0, fmt.Errorf("%w: unknown payload type %q", ErrInvalidArgument, s)
}

// Excerpt is the complete current text of one document as known to the caller.
type Excerpt struct {
	DocRef  string `json:"doc_ref"`
	Content string `json:"content"`
}

func (e Excerpt) validate() error {
	if e.DocRef == "" {
		return fmt.Errorf("%w: docRef is required", ErrInvalidArgument)
	}
	return nil
}

// CachedExcerpt is the last content accepted for a document and the summary
// computed for exactly that content.
type CachedExcerpt struct {
	DocRef      string `json:"doc_ref"`
	FullContent string `json:"full_content"`
	Summary     string `json:"summary"`
}

// Outcome describes one cache update and the payload to show the agent.
type Outcome struct {
	ContextID    string      `json:"context_id"`
	DocRef       string      `json:"doc_ref"`
	Hit          bool        `json:"hit"`
	PayloadType  PayloadType `json:"payload_type"`
	Payload      string      `json:"payload"`
	TokensBefore int         `json:"tokens_before"`
	TokensAfter  int         `json:"tokens_after"`
}

// NewOutcome builds an Outcome and rejects negative token counts and misses
// that do not carry the full content.
func NewOutcome(contextID, docRef string, hit bool, payloadType PayloadType, payload string, tokensBefore, tokensAfter int) (Outcome, error) {
	o := Outcome{
		ContextID:    contextID,
		DocRef:       docRef,
		Hit:          hit,
		PayloadType:  payloadType,
		Payload:      payload,
		TokensBefore: tokensBefore,
		TokensAfter:  tokensAfter,
	}
	if err := o.Validate(); err != nil {
		return Outcome{}, err
	}
	return o, nil
}

// Validate checks the Outcome invariants.
func (o Outcome) Validate() error {
	if o.ContextID == "" {
		return fmt.Errorf("%w: contextID is required", ErrInvalidArgument)
	}
	if o.DocRef == "" {
		return fmt.Errorf("%w: docRef is required", ErrInvalidArgument)
	}
	if !o.PayloadType.valid() {
		return fmt.Errorf("%w: unknown payload type %d", ErrInvalidArgument, int(o.PayloadType))
	}
	if o.TokensBefore < 0 {
		return fmt.Errorf("%w: tokensBefore must be non-negative, got %d", ErrInvalidArgument, o.TokensBefore)
	}
	if o.TokensAfter < 0 {
		return fmt.Errorf("%w: tokensAfter must be non-negative, got %d", ErrInvalidArgument, o.TokensAfter)
	}
	if !o.Hit {
		if o.PayloadType != PayloadFull {
			return fmt.Errorf("%w: miss must carry FULL payload, got %s", ErrInvariantViolation, o.PayloadType)
		}
		if o.TokensBefore != o.TokensAfter {
			return fmt.Errorf("%w: miss must not change token cost (%d != %d)", ErrInvariantViolation, o.TokensBefore, o.TokensAfter)
		}
	}
	return nil
}

// TokensSaved is negative when the payload costs more than the content.
func (o Outcome) TokensSaved() int {
	return o.TokensBefore - o.TokensAfter
}

// Snapshot is an immutable view of one context's counters.
type Snapshot struct {
	ContextID    string  `json:"context_id"`
	Requests     int     `json:"requests"`
	Hits         int     `json:"hits"`
	Misses       int     `json:"misses"`
	TokensBefore int     `json:"tokens_before"`
	TokensAfter  int     `json:"tokens_after"`
	HitRate      float64 `json:"hit_rate"`
}

// NewSnapshot derives misses and hit rate from the raw counters.
func NewSnapshot(contextID string, requests, hits, tokensBefore, tokensAfter int) (Snapshot, error) {
	hitRate := 0.0
	if requests > 0 {
		hitRate = float64(hits) / float64(requests)
	}
	s := Snapshot{
		ContextID:    contextID,
		Requests:     requests,
		Hits:         hits,
		Misses:       requests - hits,
		TokensBefore: tokensBefore,
		TokensAfter:  tokensAfter,
		HitRate:      hitRate,
	}
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// Validate fails loudly on counters that can only come from a bug.
func (s Snapshot) Validate() error {
	if s.ContextID == "" {
		return fmt.Errorf("%w: contextID is required", ErrInvalidArgument)
	}
	if s.Requests < 0 || s.Hits < 0 || s.Misses < 0 {
		return fmt.Errorf("%w: request counts must be non-negative", ErrInvariantViolation)
	}
	if s.Hits > s.Requests {
		return fmt.Errorf("%w: hits %d exceed requests %d", ErrInvariantViolation, s.Hits, s.Requests)
	}
	if s.Hits+s.Misses != s.Requests {
		return fmt.Errorf("%w: hits+misses != requests", ErrInvariantViolation)
	}
	if s.TokensBefore < 0 || s.TokensAfter < 0 {
		return fmt.Errorf("%w: token counts must be non-negative", ErrInvariantViolation)
	}
	if math.IsNaN(s.HitRate) || math.IsInf(s.HitRate, 0) {
		return fmt.Errorf("%w: hitRate must be finite", ErrInvariantViolation)
	}
	return nil
}

func (s Snapshot) TokensSaved() int {
	return s.TokensBefore - s.TokensAfter
}
