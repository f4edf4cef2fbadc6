package metrics

import (
	"context"

	"disclosure-api/internal/disclosure"
)

// Outcomes is a disclosure.Observer that feeds the outcome and token series.
var Outcomes disclosure.Observer = disclosure.ObserverFunc(observeOutcome)

func observeOutcome(_ context.Context, out disclosure.Outcome, _ disclosure.Snapshot) {
	result := "miss"
	if out.Hit {
		result = "hit"
	}
	OutcomesTotal.WithLabelValues(out.PayloadType.String(), result).Inc()
	TokensTotal.WithLabelValues("before").Add(float64(out.TokensBefore))
	TokensTotal.WithLabelValues("after").Add(float64(out.TokensAfter))
	if saved := out.TokensSaved(); saved > 0 {
		TokensSaved.Add(float64(saved))
	}
}
