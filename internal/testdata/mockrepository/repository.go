package mockrepository

import (
	"context"
	"time"

	"dashboard-query-service/internal/model"
	"dashboard-query-service/internal/repository"

	"github.com/stretchr/testify/mock"
)

type Repository struct {
	mock.Mock
}

var _ repository.EventRepository = &Repository{}

func (m *Repository) Create(ctx context.Context, event model.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *Repository) CreateBatch(ctx context.Context, events []model.Event) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func (m *Repository) FetchTimeseries(ctx context.Context, start, end time.Time, spec model.QuerySpec) ([]model.BucketRow, error) {
	args := m.Called(ctx, start, end, spec)
	rows, _ := args.Get(0).([]model.BucketRow)
	return rows, args.Error(1)
}
