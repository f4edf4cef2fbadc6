package disclosure

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

type countingSummarizer struct {
	calls atomic.Int64
	fn    func(docRef, content string) (string, error)
}

func (s *countingSummarizer) Summarize(_ context.Context, docRef, content string) (string, error) {
	s.calls.Add(1)
	return s.fn(docRef, content)
}

func prefixSummarizer() *countingSummarizer {
	return &countingSummarizer{fn: func(_, content string) (string, error) {
		n := len(content)
		if n > 5 {
			n = 5
		}
		return "S:" + content[:n], nil
	}}
}

var lengthCounter = TokenCounterFunc(func(text string) int { return len(text) })

func newTestCache(t *testing.T, s Summarizer) *Cache {
	t.Helper()
	c, err := NewCache(s, lengthCounter)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	return c
}

func TestSubmitFirstSightingIsFullMiss(t *testing.T) {
	c := newTestCache(t, prefixSummarizer())

	out, err := c.Submit(context.Background(), "ctx-1", Excerpt{DocRef: "brand-guidelines", Content: "brand palette colors"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Hit {
		t.Fatalf("hit=true want=false")
	}
	if out.PayloadType != PayloadFull {
		t.Fatalf("payload_type=%s want=FULL", out.PayloadType)
	}
	if out.Payload != "brand palette colors" {
		t.Fatalf("payload=%q", out.Payload)
	}
	if out.TokensBefore != 20 || out.TokensAfter != 20 {
		t.Fatalf("tokens=%d/%d want=20/20", out.TokensBefore, out.TokensAfter)
	}
}

func TestSubmitIdenticalContentReusesSummary(t *testing.T) {
	s := prefixSummarizer()
	c := newTestCache(t, s)
	ctx := context.Background()
	ex := Excerpt{DocRef: "brand-guidelines", Content: "brand palette colors"}

	if _, err := c.Submit(ctx, "ctx-1", ex); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	calls := s.calls.Load()

	out, err := c.Submit(ctx, "ctx-1", ex)
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if got := s.calls.Load(); got != calls {
		t.Fatalf("summarizer calls=%d want=%d", got, calls)
	}
	if !out.Hit || out.PayloadType != PayloadSummary {
		t.Fatalf("outcome=%+v want SUMMARY hit", out)
	}
	if out.Payload != "S:brand" {
		t.Fatalf("payload=%q want=%q", out.Payload, "S:brand")
	}
	if out.TokensBefore != 20 || out.TokensAfter != 7 {
		t.Fatalf("tokens=%d/%d want=20/7", out.TokensBefore, out.TokensAfter)
	}

	cached, ok, err := c.Lookup("ctx-1", "brand-guidelines")
	if err != nil || !ok {
		t.Fatalf("Lookup ok=%v err=%v", ok, err)
	}
	want := CachedExcerpt{DocRef: "brand-guidelines", FullContent: "brand palette colors", Summary: "S:brand"}
	if cached != want {
		t.Fatalf("cached=%+v want=%+v", cached, want)
	}
}

func TestSubmitExtensionReturnsDelta(t *testing.T) {
	s := prefixSummarizer()
	c := newTestCache(t, s)
	ctx := context.Background()

	if _, err := c.Submit(ctx, "ctx-2", Excerpt{DocRef: "d", Content: "primary palette"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	out, err := c.Submit(ctx, "ctx-2", Excerpt{DocRef: "d", Content: "primary palette\nsecondary typography"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !out.Hit || out.PayloadType != PayloadDelta {
		t.Fatalf("outcome=%+v want DELTA hit", out)
	}
	if out.Payload != "\nsecondary typography" {
		t.Fatalf("payload=%q", out.Payload)
	}
	if out.TokensAfter != len("\nsecondary typography") {
		t.Fatalf("tokens_after=%d", out.TokensAfter)
	}
	if out.TokensAfter >= out.TokensBefore {
		t.Fatalf("delta should be cheaper: %d >= %d", out.TokensAfter, out.TokensBefore)
	}

	cached, _, _ := c.Lookup("ctx-2", "d")
	if cached.FullContent != "primary palette\nsecondary typography" {
		t.Fatalf("stored content did not advance: %q", cached.FullContent)
	}
	if s.calls.Load() != 2 {
		t.Fatalf("summarizer calls=%d want=2", s.calls.Load())
	}
}

func TestSubmitRewriteReturnsFreshSummary(t *testing.T) {
	tests := []struct {
		name   string
		first  string
		second string
	}{
		{name: "shrunk", first: "alpha beta gamma", second: "alpha beta"},
		{name: "unrelated", first: "alpha beta", second: "zeta eta"},
		{name: "reordered", first: "one two", second: "two one"},
		{name: "prefix changed", first: "abc", second: "xbcd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCache(t, prefixSummarizer())
			ctx := context.Background()
			if _, err := c.Submit(ctx, "ctx", Excerpt{DocRef: "d", Content: tt.first}); err != nil {
				t.Fatalf("Submit: %v", err)
			}
			out, err := c.Submit(ctx, "ctx", Excerpt{DocRef: "d", Content: tt.second})
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			if !out.Hit || out.PayloadType != PayloadSummary {
				t.Fatalf("outcome=%+v want SUMMARY hit", out)
			}
			n := len(tt.second)
			if n > 5 {
				n = 5
			}
			if want := "S:" + tt.second[:n]; out.Payload != want {
				t.Fatalf("payload=%q want=%q", out.Payload, want)
			}
			cached, _, _ := c.Lookup("ctx", "d")
			if cached.FullContent != tt.second || cached.Summary != out.Payload {
				t.Fatalf("entry=%+v not replaced together", cached)
			}
		})
	}
}

func TestSubmitEmptyContent(t *testing.T) {
	c := newTestCache(t, prefixSummarizer())
	ctx := context.Background()

	first, err := c.Submit(ctx, "ctx", Excerpt{DocRef: "d", Content: ""})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if first.Hit || first.PayloadType != PayloadFull || first.Payload != "" || first.TokensBefore != 0 {
		t.Fatalf("first=%+v", first)
	}
	again, err := c.Submit(ctx, "ctx", Excerpt{DocRef: "d", Content: ""})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if again.PayloadType != PayloadSummary || again.Payload != "S:" {
		t.Fatalf("again=%+v", again)
	}
	grown, err := c.Submit(ctx, "ctx", Excerpt{DocRef: "d", Content: "text"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if grown.PayloadType != PayloadDelta || grown.Payload != "text" {
		t.Fatalf("grown=%+v", grown)
	}
}

func TestSubmitNilSummaryBecomesEmpty(t *testing.T) {
	s := &countingSummarizer{fn: func(string, string) (string, error) { return "", nil }}
	c := newTestCache(t, s)
	ctx := context.Background()
	if _, err := c.Submit(ctx, "ctx", Excerpt{DocRef: "d", Content: "body"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	out, err := c.Submit(ctx, "ctx", Excerpt{DocRef: "d", Content: "body"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Payload != "" || out.TokensAfter != 0 {
		t.Fatalf("out=%+v want empty summary", out)
	}
}

func TestSubmitSummarizerErrorLeavesEntry(t *testing.T) {
	boom := errors.New("boom")
	fail := false
	s := &countingSummarizer{fn: func(_, content string) (string, error) {
		if fail {
			return "", boom
		}
		return "sum", nil
	}}
	c := newTestCache(t, s)
	ctx := context.Background()

	if _, err := c.Submit(ctx, "ctx", Excerpt{DocRef: "d", Content: "v1"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	fail = true
	_, err := c.Submit(ctx, "ctx", Excerpt{DocRef: "d", Content: "v1 more"})
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v want boom", err)
	}
	var se *SummarizeError
	if !errors.As(err, &se) || se.DocRef != "d" {
		t.Fatalf("err=%v want *SummarizeError for d", err)
	}
	cached, ok, _ := c.Lookup("ctx", "d")
	if !ok || cached.FullContent != "v1" || cached.Summary != "sum" {
		t.Fatalf("cached=%+v entry must be unchanged", cached)
	}

	if _, err := c.Submit(ctx, "ctx", Excerpt{DocRef: "new", Content: "x"}); !errors.Is(err, boom) {
		t.Fatalf("err=%v want boom", err)
	}
	if _, ok, _ := c.Lookup("ctx", "new"); ok {
		t.Fatalf("failed first sighting must not create an entry")
	}
}

func TestSubmitNegativeTokenCountRejected(t *testing.T) {
	c, err := NewCache(prefixSummarizer(), TokenCounterFunc(func(string) int { return -1 }))
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	_, err = c.Submit(context.Background(), "ctx", Excerpt{DocRef: "d", Content: "x"})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err=%v want ErrInvalidArgument", err)
	}
	if _, ok, _ := c.Lookup("ctx", "d"); ok {
		t.Fatalf("rejected outcome must not store an entry")
	}
}

func TestInvalidArguments(t *testing.T) {
	c := newTestCache(t, prefixSummarizer())
	ctx := context.Background()

	if _, err := c.Submit(ctx, "", Excerpt{DocRef: "d"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("empty context err=%v", err)
	}
	if _, err := c.Submit(ctx, "ctx", Excerpt{}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("empty docRef err=%v", err)
	}
	if _, _, err := c.Lookup("", "d"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("lookup empty context err=%v", err)
	}
	if _, _, err := c.Lookup("ctx", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("lookup empty docRef err=%v", err)
	}
	if _, err := NewCache(nil, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("nil summarizer err=%v", err)
	}
}

func TestLookupUnknownAndIsolation(t *testing.T) {
	s := prefixSummarizer()
	c := newTestCache(t, s)
	if _, ok, err := c.Lookup("nope", "d"); ok || err != nil {
		t.Fatalf("unknown context ok=%v err=%v", ok, err)
	}
	if _, err := c.Submit(context.Background(), "a", Excerpt{DocRef: "d", Content: "x"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, ok, _ := c.Lookup("a", "other"); ok {
		t.Fatalf("unknown doc reported present")
	}
	if _, ok, _ := c.Lookup("b", "d"); ok {
		t.Fatalf("doc leaked across contexts")
	}

	calls := s.calls.Load()
	c.Lookup("a", "d")
	if s.calls.Load() != calls {
		t.Fatalf("lookup invoked the summarizer")
	}

	out, err := c.Submit(context.Background(), "b", Excerpt{DocRef: "d", Content: "x"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Hit {
		t.Fatalf("same doc in another context must be a miss")
	}
}

func TestDropAndListings(t *testing.T) {
	c := newTestCache(t, prefixSummarizer())
	ctx := context.Background()
	for _, ref := range []string{"b", "a"} {
		if _, err := c.Submit(ctx, "ctx", Excerpt{DocRef: ref, Content: ref}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	if got := c.Docs("ctx"); fmt.Sprint(got) != "[a b]" {
		t.Fatalf("Docs=%v", got)
	}
	if got := c.Contexts(); fmt.Sprint(got) != "[ctx]" {
		t.Fatalf("Contexts=%v", got)
	}
	if !c.Drop("ctx") {
		t.Fatalf("Drop returned false")
	}
	if c.Drop("ctx") {
		t.Fatalf("second Drop returned true")
	}
	out, err := c.Submit(ctx, "ctx", Excerpt{DocRef: "a", Content: "a"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Hit {
		t.Fatalf("dropped context must start fresh")
	}
}

func TestConcurrentFirstSightingHasSingleMiss(t *testing.T) {
	c := newTestCache(t, prefixSummarizer())
	const workers = 32

	var wg sync.WaitGroup
	var misses atomic.Int64
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := c.Submit(context.Background(), "ctx", Excerpt{DocRef: "shared", Content: "same body"})
			if err != nil {
				errs <- err
				return
			}
			if !out.Hit {
				misses.Add(1)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Submit: %v", err)
	}
	if misses.Load() != 1 {
		t.Fatalf("misses=%d want=1", misses.Load())
	}
}

func TestConcurrentExtensionsStayConsistent(t *testing.T) {
	c := newTestCache(t, prefixSummarizer())
	ctx := context.Background()
	const steps = 50

	var wg sync.WaitGroup
	for i := 1; i <= steps; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			content := make([]byte, n)
			for j := range content {
				content[j] = 'x'
			}
			if _, err := c.Submit(ctx, "ctx", Excerpt{DocRef: "grow", Content: string(content)}); err != nil {
				t.Errorf("Submit: %v", err)
			}
		}(i)
	}
	wg.Wait()

	cached, ok, _ := c.Lookup("ctx", "grow")
	if !ok {
		t.Fatalf("entry missing")
	}
	if cached.Summary != "S:"+cached.FullContent[:min(5, len(cached.FullContent))] {
		t.Fatalf("summary %q does not match content %q", cached.Summary, cached.FullContent)
	}
}
