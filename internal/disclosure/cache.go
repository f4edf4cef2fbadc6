package disclosure

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Cache remembers, per context and document, the last full content the agent
// was shown and its summary, and decides what each new access must disclose.
//
// Submissions for one document are serialized; submissions for different
// documents or contexts proceed in parallel. Lookups never block on a running
// summarization.
type Cache struct {
	summarizer Summarizer
	counter    TokenCounter

	mu       sync.RWMutex
	contexts map[string]*docSet
}

type docSet struct {
	mu   sync.RWMutex
	docs map[string]*docSlot
}

type docSlot struct {
	// mu guards the read-decide-write sequence of Submit.
	mu    sync.Mutex
	entry atomic.Pointer[entry]
}

// entry is immutable; content and summary are swapped together.
type entry struct {
	content string
	summary string
}

// NewCache returns an empty cache. A nil counter selects WhitespaceCounter.
func NewCache(summarizer Summarizer, counter TokenCounter) (*Cache, error) {
	if summarizer == nil {
		return nil, fmt.Errorf("%w: summarizer is required", ErrInvalidArgument)
	}
	if counter == nil {
		counter = WhitespaceCounter{}
	}
	return &Cache{
		summarizer: summarizer,
		counter:    counter,
		contexts:   make(map[string]*docSet),
	}, nil
}

// Submit classifies an access to excerpt.DocRef and returns the payload the
// agent needs. The stored entry only changes when the returned error is nil.
func (c *Cache) Submit(ctx context.Context, contextID string, excerpt Excerpt) (Outcome, error) {
	if contextID == "" {
		return Outcome{}, fmt.Errorf("%w: contextID is required", ErrInvalidArgument)
	}
	if err := excerpt.validate(); err != nil {
		return Outcome{}, err
	}

	slot := c.docSet(contextID, true).slot(excerpt.DocRef, true)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	content := excerpt.Content
	prev := slot.entry.Load()
	tokensBefore := c.counter.CountTokens(content)

	switch {
	case prev == nil:
		summary, err := c.summarize(ctx, excerpt.DocRef, content)
		if err != nil {
			return Outcome{}, err
		}
		out, err := NewOutcome(contextID, excerpt.DocRef, false, PayloadFull, content, tokensBefore, tokensBefore)
		if err != nil {
			return Outcome{}, err
		}
		slot.entry.Store(&entry{content: content, summary: summary})
		return c.logged(out), nil

	case content == prev.content:
		out, err := NewOutcome(contextID, excerpt.DocRef, true, PayloadSummary, prev.summary, tokensBefore, c.counter.CountTokens(prev.summary))
		if err != nil {
			return Outcome{}, err
		}
		return c.logged(out), nil

	case len(content) > len(prev.content) && strings.HasPrefix(content, prev.content):
		delta := content[len(prev.content):]
		summary, err := c.summarize(ctx, excerpt.DocRef, content)
		if err != nil {
			return Outcome{}, err
		}
		out, err := NewOutcome(contextID, excerpt.DocRef, true, PayloadDelta, delta, tokensBefore, c.counter.CountTokens(delta))
		if err != nil {
			return Outcome{}, err
		}
		slot.entry.Store(&entry{content: content, summary: summary})
		return c.logged(out), nil

	default:
		summary, err := c.summarize(ctx, excerpt.DocRef, content)
		if err != nil {
			return Outcome{}, err
		}
		out, err := NewOutcome(contextID, excerpt.DocRef, true, PayloadSummary, summary, tokensBefore, c.counter.CountTokens(summary))
		if err != nil {
			return Outcome{}, err
		}
		slot.entry.Store(&entry{content: content, summary: summary})
		return c.logged(out), nil
	}
}

// Lookup returns the stored content and summary for docRef without touching
// any state or collaborator.
func (c *Cache) Lookup(contextID, docRef string) (CachedExcerpt, bool, error) {
	if contextID == "" {
		return CachedExcerpt{}, false, fmt.Errorf("%w: contextID is required", ErrInvalidArgument)
	}
	if docRef == "" {
		return CachedExcerpt{}, false, fmt.Errorf("%w: docRef is required", ErrInvalidArgument)
	}
	set := c.docSet(contextID, false)
	if set == nil {
		return CachedExcerpt{}, false, nil
	}
	slot := set.slot(docRef, false)
	if slot == nil {
		return CachedExcerpt{}, false, nil
	}
	e := slot.entry.Load()
	if e == nil {
		return CachedExcerpt{}, false, nil
	}
	return CachedExcerpt{DocRef: docRef, FullContent: e.content, Summary: e.summary}, true, nil
}

// Drop discards every entry of a context. A submission racing with Drop may
// land in the discarded set and be lost with it.
func (c *Cache) Drop(contextID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.contexts[contextID]; !ok {
		return false
	}
	delete(c.contexts, contextID)
	return true
}

// Contexts lists known context ids in sorted order.
func (c *Cache) Contexts() []string {
	c.mu.RLock()
	ids := make([]string, 0, len(c.contexts))
	for id := range c.contexts {
		ids = append(ids, id)
	}
	c.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Docs lists the documents with a stored entry in a context, sorted.
func (c *Cache) Docs(contextID string) []string {
	set := c.docSet(contextID, false)
	if set == nil {
		return nil
	}
	set.mu.RLock()
	refs := make([]string, 0, len(set.docs))
	for ref, slot := range set.docs {
		if slot.entry.Load() != nil {
			refs = append(refs, ref)
		}
	}
	set.mu.RUnlock()
	sort.Strings(refs)
	return refs
}

func (c *Cache) summarize(ctx context.Context, docRef, content string) (string, error) {
	summary, err := c.summarizer.Summarize(ctx, docRef, content)
	if err != nil {
		return "", &SummarizeError{DocRef: docRef, Err: err}
	}
	return summary, nil
}

func (c *Cache) logged(out Outcome) Outcome {
	slog.Debug("disclosure",
		"context", out.ContextID,
		"doc", out.DocRef,
		"hit", out.Hit,
		"payload_type", out.PayloadType.String(),
		"tokens_before", out.TokensBefore,
		"tokens_after", out.TokensAfter,
	)
	return out
}

func (c *Cache) docSet(contextID string, create bool) *docSet {
	c.mu.RLock()
	set, ok := c.contexts[contextID]
	c.mu.RUnlock()
	if ok || !create {
		return set
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if set, ok = c.contexts[contextID]; ok {
		return set
	}
	set = &docSet{docs: make(map[string]*docSlot)}
	c.contexts[contextID] = set
	return set
}

func (s *docSet) slot(docRef string, create bool) *docSlot {
	s.mu.RLock()
	slot, ok := s.docs[docRef]
	s.mu.RUnlock()
	if ok || !create {
		return slot
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if slot, ok = s.docs[docRef]; ok {
		return slot
	}
	slot = &docSlot{}
	s.docs[docRef] = slot
	return slot
}
