package model

// QueryKind tags the QuerySpec variant.
type QueryKind string

const (
	QueryKindTimeseries QueryKind = "timeseries"
)

// Window kinds.
const (
	WindowPrimary  = "primary"
	WindowFallback = "fallback"
)

// Run statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// SourceFormula marks results derived by the formula evaluator.
const SourceFormula = "formula"

// FilterCondition is a single equality predicate on a whitelisted field.
type FilterCondition struct {
	Field string `json:"field" yaml:"field"`
	Op    string `json:"op" yaml:"op"`
	Value string `json:"value" yaml:"value"`
}

// QuerySpec describes one query of a widget. A nil BucketSeconds means "auto".
type QuerySpec struct {
	Kind          QueryKind         `json:"kind" yaml:"kind"`
	Source        string            `json:"source" yaml:"source"`
	Metric        string            `json:"metric" yaml:"metric"`
	GroupBy       string            `json:"group_by,omitempty" yaml:"groupBy"`
	BucketSeconds *int              `json:"bucket_seconds,omitempty" yaml:"bucketSeconds"`
	Filter        []FilterCondition `json:"filter,omitempty" yaml:"filter"`
}

// IsTimeseries reports whether the spec is the timeseries variant.
func (s QuerySpec) IsTimeseries() bool {
	return s.Kind == QueryKindTimeseries
}

// ExecutionWindow is a [Start, End] range in "YYYY-MM-DD HH:mm:ss" UTC.
type ExecutionWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Kind  string `json:"kind"`
}

// FallbackConfig controls the empty-range fallback search. Every entry of
// WindowSeconds is anchored at the requested window end.
type FallbackConfig struct {
	EnableEmptyRangeFallback bool  `json:"enable_empty_range_fallback" yaml:"enabled"`
	WindowSeconds            []int `json:"fallback_window_seconds" yaml:"windowSeconds"`
	MaxRangeSeconds          int   `json:"max_fallback_range_seconds" yaml:"maxRangeSeconds"`
}

// BucketRow is one bucket of a query result.
type BucketRow struct {
	Bucket string             `json:"bucket"`
	Series map[string]float64 `json:"series"`
}

// QueryRunResult is the typed outcome of a single query (or formula).
type QueryRunResult struct {
	QueryID   string      `json:"query_id"`
	QueryName string      `json:"query_name"`
	Source    string      `json:"source"`
	Status    string      `json:"status"`
	Error     *string     `json:"error"`
	Warnings  []string    `json:"warnings"`
	Data      []BucketRow `json:"data"`
}

// FallbackAttempt records one executed window.
type FallbackAttempt struct {
	Window        ExecutionWindow `json:"window"`
	BucketSeconds int             `json:"bucket_seconds"`
	Error         *string         `json:"error"`
}

// FallbackOutcome is the result of a fallback search.
type FallbackOutcome struct {
	Points       []BucketRow       `json:"points"`
	FallbackUsed bool              `json:"fallback_used"`
	Attempts     []FallbackAttempt `json:"attempts"`
}

// FormulaDraft is a user-authored expression over query names.
type FormulaDraft struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Expression string `json:"expression"`
	Legend     string `json:"legend"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
