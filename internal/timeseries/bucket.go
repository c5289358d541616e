// Package timeseries holds the query-builder execution engine: bucket sizing,
// fallback window planning and search, result merging, period-over-period
// comparison and formula evaluation. Nothing here performs I/O; the backend is
// injected as an ExecuteWindowFunc.
package timeseries

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// WindowLayout is the UTC, offset-free layout of window boundaries.
	WindowLayout = "2006-01-02 15:04:05"
	// BucketLayout is the normalized bucket key layout.
	BucketLayout = "2006-01-02T15:04:05.000Z"

	targetPoints         = 40
	defaultBucketSeconds = 60
)

var bucketLadder = []int{60, 300, 900, 3600, 14400, 86400}

var parseLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
}

var stepPattern = regexp.MustCompile(`^(\d+)([mh])$`)

// TimeRange is a pair of window boundary strings.
type TimeRange struct {
	Start string
	End   string
}

// ParseTime parses a window or bucket string as UTC. Zone-less values are UTC.
func ParseTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range parseLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatWindowTime renders t as a window boundary.
func FormatWindowTime(t time.Time) string {
	return t.UTC().Format(WindowLayout)
}

// FormatBucket renders t as a normalized bucket key.
func FormatBucket(t time.Time) string {
	return t.UTC().Format(BucketLayout)
}

// ToISOBucket normalizes a bucket string to ISO-8601 UTC with milliseconds.
// Unparsable input is returned unchanged.
func ToISOBucket(value string) string {
	t, ok := ParseTime(value)
	if !ok {
		return value
	}
	return FormatBucket(t)
}

// ComputeBucketSeconds picks a bucket width giving roughly 40 points over the
// range, snapped up to the ladder. Malformed or empty ranges get 60 seconds.
func ComputeBucketSeconds(r TimeRange) int {
	start, okStart := ParseTime(r.Start)
	end, okEnd := ParseTime(r.End)
	if !okStart || !okEnd || !end.After(start) {
		return defaultBucketSeconds
	}

	rangeSeconds := math.Max(float64(end.Sub(start).Milliseconds())/1000, 1)
	raw := int(math.Ceil(rangeSeconds / targetPoints))
	for _, step := range bucketLadder {
		if step >= raw {
			return step
		}
	}
	return bucketLadder[len(bucketLadder)-1]
}

// BuildBucketTimeline lists every bucket key from the bucket containing start
// through the bucket containing end.
func BuildBucketTimeline(start, end string, bucketSeconds int) []string {
	from, okStart := ParseTime(start)
	to, okEnd := ParseTime(end)
	if !okStart || !okEnd || to.Before(from) || bucketSeconds <= 0 {
		return []string{}
	}

	step := int64(bucketSeconds)
	first := floorDiv(from.Unix(), step) * step
	last := floorDiv(to.Unix(), step) * step

	timeline := make([]string, 0, (last-first)/step+1)
	for ts := first; ts <= last; ts += step {
		timeline = append(timeline, FormatBucket(time.Unix(ts, 0)))
	}
	return timeline
}

// maxStepSeconds caps step shorthand at one leap year.
const maxStepSeconds = 366 * 86400

// ParseStepShorthand parses "<n>m" and "<n>h" into seconds. Zero and steps
// longer than a year are rejected.
func ParseStepShorthand(text string) (int, bool) {
	m := stepPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, false
	}
	unit := 60
	if m[2] == "h" {
		unit = 3600
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 || n > maxStepSeconds/unit {
		return 0, false
	}
	return n * unit, true
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
