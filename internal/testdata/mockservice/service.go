package mockservice

import (
	"context"

	"dashboard-query-service/internal/model"
	"dashboard-query-service/internal/service"

	"github.com/stretchr/testify/mock"
)

type Service struct {
	mock.Mock
}

var _ service.EventService = &Service{}

func (m *Service) BuildEvent(req model.EventRequest) (model.Event, error) {
	args := m.Called(req)
	return args.Get(0).(model.Event), args.Error(1)
}

func (m *Service) ProcessEvent(ctx context.Context, event model.Event) (model.EventResult, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(model.EventResult), args.Error(1)
}

type QueryService struct {
	mock.Mock
}

var _ service.QueryService = &QueryService{}

func (m *QueryService) QueryTimeseries(ctx context.Context, req model.TimeseriesRequest) (model.TimeseriesResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.TimeseriesResponse), args.Error(1)
}
