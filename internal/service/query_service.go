package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"dashboard-query-service/internal/metrics"
	"dashboard-query-service/internal/model"
	"dashboard-query-service/internal/repository"
	"dashboard-query-service/internal/timeseries"
)

const previousSuffix = " (previous)"

// QueryOptions tunes how widget queries reach the backend.
type QueryOptions struct {
	Fallback      model.FallbackConfig
	RetryAttempts uint
	RetryDelay    time.Duration
	CacheTTL      time.Duration
}

type QueryService interface {
	QueryTimeseries(ctx context.Context, req model.TimeseriesRequest) (model.TimeseriesResponse, error)
}

type queryService struct {
	repo  repository.EventRepository
	opts  QueryOptions
	cache *cache.Cache
	newID func() string
}

// NewQueryService builds a QueryService. A non-positive CacheTTL disables caching.
func NewQueryService(repo repository.EventRepository, opts QueryOptions) QueryService {
	if opts.RetryAttempts == 0 {
		opts.RetryAttempts = 1
	}
	s := &queryService{repo: repo, opts: opts, newID: uuid.NewString}
	if opts.CacheTTL > 0 {
		s.cache = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return s
}

// queryPlan is a validated widget query with its step resolved.
type queryPlan struct {
	id          string
	name        string
	displayName string
	spec        model.QuerySpec
	warnings    []string
}

// QueryTimeseries runs every widget query (with fallback search), the optional
// previous period, and the formulas, and merges everything into chart rows.
func (s *queryService) QueryTimeseries(ctx context.Context, req model.TimeseriesRequest) (model.TimeseriesResponse, error) {
	plans, formulas, err := s.plan(req)
	if err != nil {
		return model.TimeseriesResponse{}, err
	}

	current := make([]model.QueryRunResult, len(plans))
	previous := make([]model.QueryRunResult, len(plans))
	attempts := make([][]model.FallbackAttempt, len(plans))

	var g errgroup.Group
	for i, p := range plans {
		i, p := i, p
		g.Go(func() error {
			current[i], attempts[i] = s.runQuery(ctx, req.Start, req.End, p)
			return nil
		})
		if req.Compare {
			g.Go(func() error {
				previous[i] = s.runPreviousPeriod(ctx, req.Start, req.End, p)
				return nil
			})
		}
	}
	_ = g.Wait()

	formulaResults := timeseries.BuildFormulaResults(formulas, current)
	for _, r := range formulaResults {
		metrics.FormulaResults.WithLabelValues(r.Status).Inc()
	}

	displayNames := make(map[string]string, len(plans)+len(formulas))
	previousDisplayNames := make(map[string]string, len(plans))
	for _, p := range plans {
		displayNames[p.id] = p.displayName
		previousDisplayNames[p.id] = p.displayName + previousSuffix
	}
	for _, f := range formulas {
		displayNames[f.ID] = timeseries.FormulaLegend(f)
	}

	mergeInputs := make([]model.QueryRunResult, 0, 2*len(plans)+len(formulaResults))
	mergeInputs = append(mergeInputs, current...)
	mergeInputs = append(mergeInputs, formulaResults...)
	if req.Compare {
		for _, r := range previous {
			shadow := r
			shadow.QueryID = r.QueryID + "#previous"
			displayNames[shadow.QueryID] = previousDisplayNames[r.QueryID]
			mergeInputs = append(mergeInputs, shadow)
		}
	}

	table := timeseries.MergeQueryRunResults(mergeInputs, displayNames)
	rows := table.Rows()
	seriesNames := table.SeriesNames

	if req.Compare {
		columns := timeseries.AppendPercentChangeSeries(rows,
			timeseries.ComparisonKeys(current, displayNames),
			timeseries.ComparisonKeys(previous, previousDisplayNames),
		)
		seriesNames = append(seriesNames, writtenColumns(rows, columns)...)
	}

	resp := model.TimeseriesResponse{
		SeriesNames: seriesNames,
		Rows:        rows,
		Timeline:    s.timeline(req.Start, req.End, plans[0].spec),
		Queries:     current,
		Formulas:    formulaResults,
		Attempts:    make(map[string][]model.FallbackAttempt, len(plans)),
	}
	for i, p := range plans {
		resp.Attempts[p.id] = attempts[i]
	}
	if timeseries.CountSuccessfulQuerySeries(current) == 0 {
		resp.Error = timeseries.NoQueryDataMessage(current)
	}

	return resp, nil
}

func (s *queryService) runQuery(ctx context.Context, start, end string, p queryPlan) (model.QueryRunResult, []model.FallbackAttempt) {
	outcome := timeseries.ExecuteWithFallback(ctx, timeseries.FallbackRequest{
		Start:            start,
		End:              end,
		Spec:             p.spec,
		Config:           s.opts.Fallback,
		PrimaryEmptyHint: s.opts.Fallback.EnableEmptyRangeFallback,
	}, s.executeWindow)

	recordAttempts(outcome)

	result := model.QueryRunResult{
		QueryID:   p.id,
		QueryName: p.name,
		Source:    p.spec.Source,
		Status:    model.StatusSuccess,
		Warnings:  append([]string{}, p.warnings...),
		Data:      outcome.Points,
	}

	switch {
	case timeseries.AllAttemptsFailed(outcome):
		result.Status = model.StatusError
		result.Error = timeseries.LastAttemptError(outcome)
	case len(outcome.Points) == 0:
		result.Warnings = append(result.Warnings, "No data found in the selected range")
	case outcome.FallbackUsed:
		used := outcome.Attempts[len(outcome.Attempts)-1].Window
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("No data in the selected range; showing data from %s to %s", used.Start, used.End))
	}

	logrus.WithFields(logrus.Fields{
		"query_id":      p.id,
		"attempts":      len(outcome.Attempts),
		"fallback_used": outcome.FallbackUsed,
		"points":        len(outcome.Points),
	}).Debug("timeseries query finished")

	return result, outcome.Attempts
}

// runPreviousPeriod runs the query over the period just before the primary
// window, with the primary bucket size and no fallback, and shifts the buckets
// forward so they line up with the current period.
func (s *queryService) runPreviousPeriod(ctx context.Context, start, end string, p queryPlan) model.QueryRunResult {
	result := model.QueryRunResult{
		QueryID:   p.id,
		QueryName: p.name,
		Source:    p.spec.Source,
		Status:    model.StatusSuccess,
		Warnings:  []string{},
		Data:      []model.BucketRow{},
	}

	primary := model.ExecutionWindow{Start: start, End: end, Kind: model.WindowPrimary}
	window, width, ok := timeseries.PreviousWindow(primary)
	if !ok {
		result.Status = model.StatusError
		result.Error = model.StringPtr("invalid comparison window")
		return result
	}

	spec := timeseries.ResolveExecutionSpecForWindow(p.spec, primary)
	rows, err := s.executeWindow(ctx, window.Start, window.End, spec)
	if err != nil {
		result.Status = model.StatusError
		result.Error = model.StringPtr(err.Error())
		return result
	}
	result.Data = timeseries.ShiftRows(rows, width)
	return result
}

// executeWindow is the backend adapter handed to the fallback search: window
// cache first, then the repository with a small bounded retry.
func (s *queryService) executeWindow(ctx context.Context, start, end string, spec model.QuerySpec) ([]model.BucketRow, error) {
	from, okStart := timeseries.ParseTime(start)
	to, okEnd := timeseries.ParseTime(end)
	if !okStart || !okEnd {
		return nil, fmt.Errorf("invalid window %s to %s", start, end)
	}

	key := cacheKey(start, end, spec)
	if s.cache != nil {
		if cached, found := s.cache.Get(key); found {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return cached.([]model.BucketRow), nil
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	var rows []model.BucketRow
	err := retry.Do(
		func() error {
			var fetchErr error
			rows, fetchErr = s.repo.FetchTimeseries(ctx, from, to, spec)
			return fetchErr
		},
		retry.Attempts(s.opts.RetryAttempts),
		retry.Delay(s.opts.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.SetDefault(key, rows)
	}
	return rows, nil
}

func (s *queryService) timeline(start, end string, spec model.QuerySpec) []string {
	resolved := timeseries.ResolveExecutionSpecForWindow(spec, model.ExecutionWindow{Start: start, End: end, Kind: model.WindowPrimary})
	if resolved.BucketSeconds == nil {
		return []string{}
	}
	return timeseries.BuildBucketTimeline(start, end, *resolved.BucketSeconds)
}

func (s *queryService) plan(req model.TimeseriesRequest) ([]queryPlan, []model.FormulaDraft, error) {
	start, okStart := timeseries.ParseTime(req.Start)
	end, okEnd := timeseries.ParseTime(req.End)
	if !okStart || !okEnd {
		return nil, nil, &ValidationError{Message: "start and end must be UTC times formatted as YYYY-MM-DD HH:mm:ss"}
	}
	if !end.After(start) {
		return nil, nil, &ValidationError{Message: "end must be after start"}
	}
	if len(req.Queries) == 0 {
		return nil, nil, &ValidationError{Message: "at least one query is required"}
	}

	names := make(map[string]struct{}, len(req.Queries))
	ids := make(map[string]struct{}, len(req.Queries)+len(req.Formulas))
	plans := make([]queryPlan, 0, len(req.Queries))
	for _, q := range req.Queries {
		if q.Name == "" {
			return nil, nil, &ValidationError{Message: "query name is required"}
		}
		if _, dup := names[q.Name]; dup {
			return nil, nil, &ValidationError{Message: fmt.Sprintf("duplicate query name %q", q.Name)}
		}
		names[q.Name] = struct{}{}
		if q.ID != "" {
			if _, dup := ids[q.ID]; dup {
				return nil, nil, &ValidationError{Message: fmt.Sprintf("duplicate query id %q", q.ID)}
			}
			ids[q.ID] = struct{}{}
		}

		if err := validateSpec(q.Spec); err != nil {
			return nil, nil, err
		}

		p := queryPlan{id: q.ID, name: q.Name, displayName: q.DisplayName, spec: q.Spec, warnings: []string{}}
		if p.id == "" {
			p.id = s.newID()
		}
		if p.displayName == "" {
			p.displayName = q.Name
		}
		if q.Step != "" {
			if seconds, ok := timeseries.ParseStepShorthand(q.Step); ok {
				p.spec.BucketSeconds = model.IntPtr(seconds)
			} else {
				p.spec.BucketSeconds = nil
				p.warnings = append(p.warnings, fmt.Sprintf("Invalid step %q; using automatic bucket size", q.Step))
			}
		}
		plans = append(plans, p)
	}

	formulas := make([]model.FormulaDraft, 0, len(req.Formulas))
	for _, f := range req.Formulas {
		if f.ID == "" {
			f.ID = s.newID()
		} else if _, dup := ids[f.ID]; dup {
			return nil, nil, &ValidationError{Message: fmt.Sprintf("formula id %q is already used", f.ID)}
		}
		ids[f.ID] = struct{}{}
		formulas = append(formulas, f)
	}

	return plans, formulas, nil
}

func validateSpec(spec model.QuerySpec) error {
	if !spec.IsTimeseries() {
		return &ValidationError{Message: "only timeseries queries are supported"}
	}
	if !isSupportedSource(spec.Source) {
		return &ValidationError{Message: "source must be one of logs, traces, metrics"}
	}
	if !repository.SupportedMetric(spec.Metric) {
		return &ValidationError{Message: fmt.Sprintf("unsupported metric %q", spec.Metric)}
	}
	if spec.GroupBy != "" && !repository.SupportedField(spec.GroupBy) {
		return &ValidationError{Message: fmt.Sprintf("unsupported group_by %q", spec.GroupBy)}
	}
	if spec.BucketSeconds != nil && *spec.BucketSeconds <= 0 {
		return &ValidationError{Message: "bucket_seconds must be positive"}
	}
	for _, cond := range spec.Filter {
		if !repository.SupportedField(cond.Field) {
			return &ValidationError{Message: fmt.Sprintf("unsupported filter field %q", cond.Field)}
		}
		if !repository.SupportedOperator(cond.Op) {
			return &ValidationError{Message: fmt.Sprintf("unsupported filter operator %q", cond.Op)}
		}
	}
	return nil
}

func recordAttempts(outcome model.FallbackOutcome) {
	for i, a := range outcome.Attempts {
		result := "empty"
		switch {
		case a.Error != nil:
			result = "error"
		case i == len(outcome.Attempts)-1 && len(outcome.Points) > 0:
			result = "data"
		}
		metrics.WindowAttempts.WithLabelValues(a.Window.Kind, result).Inc()
	}
	metrics.FallbackSearches.WithLabelValues(strconv.FormatBool(outcome.FallbackUsed)).Inc()
}

func cacheKey(start, end string, spec model.QuerySpec) string {
	b, _ := json.Marshal(spec)
	return start + "|" + end + "|" + string(b)
}

// writtenColumns keeps the columns that received at least one value.
func writtenColumns(rows []*model.MergedRow, columns []string) []string {
	out := make([]string, 0, len(columns))
	for _, column := range columns {
		for _, row := range rows {
			if _, ok := row.Values[column]; ok {
				out = append(out, column)
				break
			}
		}
	}
	return out
}
