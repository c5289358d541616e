package timeseries

import (
	"context"

	"dashboard-query-service/internal/model"
)

// ExecuteWindowFunc runs one resolved query over one window.
type ExecuteWindowFunc func(ctx context.Context, start, end string, spec model.QuerySpec) ([]model.BucketRow, error)

// FallbackRequest is the input of a fallback search.
type FallbackRequest struct {
	Start            string
	End              string
	Spec             model.QuerySpec
	Config           model.FallbackConfig
	PrimaryEmptyHint bool
}

// ExecuteWithFallback tries the candidate windows one at a time and stops at
// the first non-empty success. Empty results and errors both move on to the
// next window; every window tried is logged in Attempts.
func ExecuteWithFallback(ctx context.Context, req FallbackRequest, execute ExecuteWindowFunc) model.FallbackOutcome {
	windows := BuildExecutionWindows(req.Start, req.End, req.Config, req.PrimaryEmptyHint)
	outcome := model.FallbackOutcome{
		Points:   []model.BucketRow{},
		Attempts: make([]model.FallbackAttempt, 0, len(windows)),
	}

	for _, window := range windows {
		resolved := ResolveExecutionSpecForWindow(req.Spec, window)
		attempt := model.FallbackAttempt{Window: window}
		if resolved.BucketSeconds != nil {
			attempt.BucketSeconds = *resolved.BucketSeconds
		}
		if window.Kind == model.WindowFallback {
			outcome.FallbackUsed = true
		}

		rows, err := execute(ctx, window.Start, window.End, resolved)
		if err != nil {
			attempt.Error = model.StringPtr(err.Error())
			outcome.Attempts = append(outcome.Attempts, attempt)
			continue
		}
		outcome.Attempts = append(outcome.Attempts, attempt)

		if len(rows) > 0 {
			outcome.Points = rows
			outcome.FallbackUsed = window.Kind == model.WindowFallback
			return outcome
		}
		outcome.Points = []model.BucketRow{}
	}

	return outcome
}

// LastAttemptError returns the error of the final attempt, if any.
func LastAttemptError(outcome model.FallbackOutcome) *string {
	if len(outcome.Attempts) == 0 {
		return nil
	}
	return outcome.Attempts[len(outcome.Attempts)-1].Error
}

// AllAttemptsFailed reports whether every attempt ended with an error.
func AllAttemptsFailed(outcome model.FallbackOutcome) bool {
	if len(outcome.Attempts) == 0 {
		return false
	}
	for _, a := range outcome.Attempts {
		if a.Error == nil {
			return false
		}
	}
	return true
}
