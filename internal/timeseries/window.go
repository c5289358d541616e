package timeseries

import (
	"time"

	"dashboard-query-service/internal/model"
)

// ResolveTimeseriesBucketSpec fills an automatic bucket size for the range.
// A spec with an explicit bucket (or a non-timeseries spec) is returned as is.
func ResolveTimeseriesBucketSpec(spec model.QuerySpec, start, end string) model.QuerySpec {
	if !spec.IsTimeseries() || spec.BucketSeconds != nil {
		return spec
	}
	resolved := spec
	resolved.BucketSeconds = model.IntPtr(ComputeBucketSeconds(TimeRange{Start: start, End: end}))
	return resolved
}

// BuildExecutionWindows returns the primary window followed, when the primary
// came back empty or failed and fallback is enabled, by one window per
// configured width anchored at end. Widths above the cap are dropped.
func BuildExecutionWindows(start, end string, cfg model.FallbackConfig, primaryResultWasEmptyOrFailed bool) []model.ExecutionWindow {
	windows := []model.ExecutionWindow{{Start: start, End: end, Kind: model.WindowPrimary}}
	if !primaryResultWasEmptyOrFailed || !cfg.EnableEmptyRangeFallback {
		return windows
	}

	anchor, ok := ParseTime(end)
	if !ok {
		return windows
	}

	for _, seconds := range cfg.WindowSeconds {
		if seconds <= 0 || seconds > cfg.MaxRangeSeconds {
			continue
		}
		windows = append(windows, model.ExecutionWindow{
			Start: FormatWindowTime(anchor.Add(-time.Duration(seconds) * time.Second)),
			End:   end,
			Kind:  model.WindowFallback,
		})
	}
	return windows
}

// ResolveExecutionSpecForWindow sizes the bucket for one window. Fallback
// windows always get a bucket computed from their own width.
func ResolveExecutionSpecForWindow(spec model.QuerySpec, window model.ExecutionWindow) model.QuerySpec {
	if !spec.IsTimeseries() {
		return spec
	}
	if window.Kind != model.WindowFallback {
		return ResolveTimeseriesBucketSpec(spec, window.Start, window.End)
	}
	resolved := spec
	resolved.BucketSeconds = model.IntPtr(ComputeBucketSeconds(TimeRange{Start: window.Start, End: window.End}))
	return resolved
}

// PreviousWindow returns the window of equal width that ends where this one
// starts, and the width used to shift it.
func PreviousWindow(window model.ExecutionWindow) (model.ExecutionWindow, time.Duration, bool) {
	start, okStart := ParseTime(window.Start)
	end, okEnd := ParseTime(window.End)
	if !okStart || !okEnd || !end.After(start) {
		return model.ExecutionWindow{}, 0, false
	}
	width := end.Sub(start)
	return model.ExecutionWindow{
		Start: FormatWindowTime(start.Add(-width)),
		End:   FormatWindowTime(start),
		Kind:  model.WindowPrimary,
	}, width, true
}
