package timeseries

import (
	"context"
	"errors"
	"testing"

	"dashboard-query-service/internal/model"

	"github.com/stretchr/testify/suite"
)

type FallbackTestSuite struct {
	suite.Suite

	cfg  model.FallbackConfig
	spec model.QuerySpec
}

func TestFallbackSuite(t *testing.T) {
	suite.Run(t, new(FallbackTestSuite))
}

func (s *FallbackTestSuite) SetupTest() {
	s.cfg = model.FallbackConfig{
		EnableEmptyRangeFallback: true,
		WindowSeconds:            []int{86400, 604800},
		MaxRangeSeconds:          86400 * 31,
	}
	s.spec = model.QuerySpec{Kind: model.QueryKindTimeseries, Source: model.SourceTraces, Metric: "count"}
}

func (s *FallbackTestSuite) request() FallbackRequest {
	return FallbackRequest{
		Start:            "2026-01-07 23:00:00",
		End:              "2026-01-08 00:00:00",
		Spec:             s.spec,
		Config:           s.cfg,
		PrimaryEmptyHint: true,
	}
}

func (s *FallbackTestSuite) TestEmptyThenErrorThenData() {
	point := model.BucketRow{Bucket: "2026-01-01T00:00:00.000Z", Series: map[string]float64{"total": 5}}

	var seenBucketSeconds []int
	calls := 0
	execute := func(_ context.Context, _, _ string, spec model.QuerySpec) ([]model.BucketRow, error) {
		seenBucketSeconds = append(seenBucketSeconds, *spec.BucketSeconds)
		calls++
		switch calls {
		case 1:
			return []model.BucketRow{}, nil
		case 2:
			return nil, errors.New("Timeseries query too expensive")
		default:
			return []model.BucketRow{point}, nil
		}
	}

	outcome := ExecuteWithFallback(context.Background(), s.request(), execute)

	s.Equal([]int{300, 3600, 86400}, seenBucketSeconds)
	s.Len(outcome.Attempts, 3)
	s.Nil(outcome.Attempts[0].Error)
	s.Require().NotNil(outcome.Attempts[1].Error)
	s.Contains(*outcome.Attempts[1].Error, "too expensive")
	s.Nil(outcome.Attempts[2].Error)
	s.Equal([]model.BucketRow{point}, outcome.Points)
	s.True(outcome.FallbackUsed)
	s.Equal(model.WindowFallback, outcome.Attempts[2].Window.Kind)
	s.Equal("2026-01-01 00:00:00", outcome.Attempts[2].Window.Start)
}

func (s *FallbackTestSuite) TestPrimarySuccessStopsSearch() {
	calls := 0
	execute := func(_ context.Context, start, end string, _ model.QuerySpec) ([]model.BucketRow, error) {
		calls++
		return []model.BucketRow{{Bucket: "2026-01-07 23:05:00", Series: map[string]float64{"all": 1}}}, nil
	}

	outcome := ExecuteWithFallback(context.Background(), s.request(), execute)

	s.Equal(1, calls)
	s.False(outcome.FallbackUsed)
	s.Len(outcome.Attempts, 1)
	s.Equal(model.WindowPrimary, outcome.Attempts[0].Window.Kind)
}

func (s *FallbackTestSuite) TestExplicitBucketOnlyKeptOnPrimary() {
	s.spec.BucketSeconds = model.IntPtr(60)

	var seen []int
	execute := func(_ context.Context, _, _ string, spec model.QuerySpec) ([]model.BucketRow, error) {
		seen = append(seen, *spec.BucketSeconds)
		return nil, nil
	}

	ExecuteWithFallback(context.Background(), s.request(), execute)

	s.Equal([]int{60, 3600, 86400}, seen)
}

func (s *FallbackTestSuite) TestExhaustedSearch() {
	execute := func(context.Context, string, string, model.QuerySpec) ([]model.BucketRow, error) {
		return nil, errors.New("backend unavailable")
	}

	outcome := ExecuteWithFallback(context.Background(), s.request(), execute)

	s.Empty(outcome.Points)
	s.NotNil(outcome.Points)
	s.True(outcome.FallbackUsed)
	s.Len(outcome.Attempts, 3)
	s.True(AllAttemptsFailed(outcome))
	s.Equal("backend unavailable", *LastAttemptError(outcome))
}

func (s *FallbackTestSuite) TestNoFallbackWithoutHint() {
	req := s.request()
	req.PrimaryEmptyHint = false

	calls := 0
	execute := func(context.Context, string, string, model.QuerySpec) ([]model.BucketRow, error) {
		calls++
		return []model.BucketRow{}, nil
	}

	outcome := ExecuteWithFallback(context.Background(), req, execute)

	s.Equal(1, calls)
	s.False(outcome.FallbackUsed)
	s.False(AllAttemptsFailed(outcome))
	s.Nil(LastAttemptError(outcome))
}
