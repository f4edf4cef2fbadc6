package summarizer

import (
	"context"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"disclosure-api/internal/disclosure"
	"disclosure-api/internal/summarycache"
)

// Memo serves summaries from a store and only calls inner for content it has
// not summarized before. Concurrent calls for the same content share one
// inner call.
type Memo struct {
	inner disclosure.Summarizer
	store summarycache.Store
	group singleflight.Group
}

// NewMemo returns inner unchanged when store is nil.
func NewMemo(inner disclosure.Summarizer, store summarycache.Store) disclosure.Summarizer {
	if store == nil {
		return inner
	}
	return &Memo{inner: inner, store: store}
}

func (m *Memo) Summarize(ctx context.Context, docRef, content string) (string, error) {
	key := Key(docRef, content)
	if entry, ok := m.store.Get(ctx, key); ok {
		return entry.Summary, nil
	}

	v, err, _ := m.group.Do(key, func() (any, error) {
		summary, err := m.inner.Summarize(ctx, docRef, content)
		if err != nil {
			return "", err
		}
		m.store.Put(ctx, key, summarycache.Entry{DocRef: docRef, Summary: summary})
		return summary, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Key identifies a (docRef, content) pair in a summary store.
func Key(docRef, content string) string {
	d := xxhash.New()
	_, _ = d.WriteString(docRef)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(content)
	return strconv.FormatUint(d.Sum64(), 16)
}
