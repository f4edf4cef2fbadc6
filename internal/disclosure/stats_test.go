package disclosure

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
)

func mustOutcome(t *testing.T, hit bool, pt PayloadType, before, after int) Outcome {
	t.Helper()
	o, err := NewOutcome("ctx", "doc", hit, pt, "p", before, after)
	if err != nil {
		t.Fatalf("NewOutcome: %v", err)
	}
	return o
}

func TestRecordAccumulates(t *testing.T) {
	a := NewAccumulator()

	snap, err := a.Record("ctx", mustOutcome(t, false, PayloadFull, 20, 20))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if snap.Requests != 1 || snap.Hits != 0 || snap.Misses != 1 || snap.HitRate != 0 {
		t.Fatalf("snap=%+v", snap)
	}

	snap, err = a.Record("ctx", mustOutcome(t, true, PayloadSummary, 20, 7))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	want := Snapshot{ContextID: "ctx", Requests: 2, Hits: 1, Misses: 1, TokensBefore: 40, TokensAfter: 27, HitRate: 0.5}
	if snap != want {
		t.Fatalf("snap=%+v want=%+v", snap, want)
	}
	if snap.TokensSaved() != 13 {
		t.Fatalf("TokensSaved=%d want=13", snap.TokensSaved())
	}
}

func TestSnapshotUnknownContextIsZero(t *testing.T) {
	a := NewAccumulator()
	snap, err := a.Snapshot("fresh")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Requests != 0 || snap.HitRate != 0 || math.IsNaN(snap.HitRate) {
		t.Fatalf("snap=%+v", snap)
	}
	if len(a.Contexts()) != 0 {
		t.Fatalf("Snapshot must not create counters")
	}
}

func TestRecordRejectsInvalid(t *testing.T) {
	a := NewAccumulator()
	if _, err := a.Record("", mustOutcome(t, true, PayloadDelta, 3, 1)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err=%v", err)
	}
	if _, err := a.Record("ctx", Outcome{}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err=%v", err)
	}
	bad := Outcome{ContextID: "ctx", DocRef: "d", Hit: false, PayloadType: PayloadSummary}
	if _, err := a.Record("ctx", bad); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("err=%v", err)
	}
	if snap, _ := a.Snapshot("ctx"); snap.Requests != 0 {
		t.Fatalf("rejected records were applied: %+v", snap)
	}
}

func TestNewSnapshotInvariants(t *testing.T) {
	if _, err := NewSnapshot("ctx", 1, 2, 0, 0); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("hits>requests err=%v", err)
	}
	if _, err := NewSnapshot("ctx", 1, 1, -1, 0); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("negative tokens err=%v", err)
	}
	s := Snapshot{ContextID: "ctx", HitRate: math.NaN()}
	if err := s.Validate(); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("NaN err=%v", err)
	}
	s.HitRate = math.Inf(1)
	if err := s.Validate(); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("Inf err=%v", err)
	}
}

func TestHitRateMatchesSequence(t *testing.T) {
	c := newTestCache(t, prefixSummarizer())
	a := NewAccumulator()
	ctx := context.Background()

	contents := []string{"a", "a", "ab", "b", "b", "bc", "x"}
	var hits, before, after int
	for i, content := range contents {
		out, err := c.Submit(ctx, "seq", Excerpt{DocRef: "d", Content: content})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if out.Hit {
			hits++
		}
		before += out.TokensBefore
		after += out.TokensAfter
		snap, err := a.Record("seq", out)
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
		n := i + 1
		if snap.Requests != n || snap.Hits+snap.Misses != n || snap.Hits != hits {
			t.Fatalf("step %d snap=%+v hits=%d", n, snap, hits)
		}
		if snap.HitRate != float64(hits)/float64(n) {
			t.Fatalf("step %d hit_rate=%v", n, snap.HitRate)
		}
		if snap.TokensBefore != before || snap.TokensAfter != after {
			t.Fatalf("step %d tokens=%d/%d want=%d/%d", n, snap.TokensBefore, snap.TokensAfter, before, after)
		}
	}
}

func TestRecordConcurrent(t *testing.T) {
	a := NewAccumulator()
	const workers, per = 8, 100
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < per; i++ {
				o := Outcome{ContextID: "ctx", DocRef: "d", Hit: w%2 == 0, PayloadType: PayloadFull, TokensBefore: 1, TokensAfter: 1}
				if w%2 == 0 {
					o.PayloadType = PayloadSummary
				}
				if _, err := a.Record("ctx", o); err != nil {
					t.Errorf("Record: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()
	snap, _ := a.Snapshot("ctx")
	if snap.Requests != workers*per || snap.Hits != workers*per/2 || snap.TokensBefore != workers*per {
		t.Fatalf("snap=%+v", snap)
	}
}

func TestPayloadTypeJSON(t *testing.T) {
	for _, pt := range []PayloadType{PayloadFull, PayloadSummary, PayloadDelta} {
		raw, err := pt.MarshalJSON()
		if err != nil {
			t.Fatalf("MarshalJSON(%s): %v", pt, err)
		}
		var back PayloadType
		if err := back.UnmarshalJSON(raw); err != nil || back != pt {
			t.Fatalf("round trip %s -> %s (%v)", pt, back, err)
		}
	}
	var pt PayloadType
	if err := pt.UnmarshalJSON([]byte(`"PARTIAL"`)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err=%v", err)
	}
}
