package mockworker

import (
	"dashboard-query-service/internal/model"

	"github.com/stretchr/testify/mock"
)

// Worker stands in for the batch event worker.
type Worker struct {
	mock.Mock
}

func (m *Worker) Enqueue(event model.Event) {
	m.Called(event)
}

func (m *Worker) Shutdown() {
	m.Called()
}
