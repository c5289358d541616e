package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"dashboard-query-service/internal/model"
	"dashboard-query-service/internal/testdata/mockrepository"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type BatchWorkerTestSuite struct {
	suite.Suite
	mockRepo *mockrepository.Repository
	worker   *batchEventWorker
}

func TestBatchWorkerSuite(t *testing.T) {
	suite.Run(t, new(BatchWorkerTestSuite))
}

func (s *BatchWorkerTestSuite) SetupTest() {
	s.mockRepo = new(mockrepository.Repository)
}

func (s *BatchWorkerTestSuite) TearDownTest() {
	s.mockRepo.AssertExpectations(s.T())
}

func (s *BatchWorkerTestSuite) TestBatchSizeTrigger() {
	batchSize := 5
	bufferSize := 10
	flushInterval := 1 * time.Hour // Long interval to prevent timer trigger

	var wg sync.WaitGroup
	wg.Add(1)

	s.mockRepo.On("CreateBatch", mock.Anything, mock.MatchedBy(func(events []model.Event) bool {
		return len(events) == batchSize
	})).Run(func(args mock.Arguments) {
		wg.Done()
	}).Return(nil).Once()

	s.worker = NewBatchEventWorker(s.mockRepo, bufferSize, batchSize, flushInterval)
	defer s.worker.Shutdown()

	for i := 0; i < batchSize; i++ {
		s.worker.Enqueue(model.Event{ID: fmt.Sprintf("evt-%d", i), Name: "request"})
	}

	s.waitForAsyncOp(&wg, "Batch Size Trigger")
}

func (s *BatchWorkerTestSuite) TestTimeIntervalTrigger() {
	batchSize := 10
	bufferSize := 10
	flushInterval := 50 * time.Millisecond

	var wg sync.WaitGroup
	wg.Add(1)

	eventsToSend := 3
	s.mockRepo.On("CreateBatch", mock.Anything, mock.MatchedBy(func(events []model.Event) bool {
		return len(events) == eventsToSend
	})).Run(func(args mock.Arguments) {
		wg.Done()
	}).Return(nil).Once()

	s.worker = NewBatchEventWorker(s.mockRepo, bufferSize, batchSize, flushInterval)
	defer s.worker.Shutdown()

	for i := 0; i < eventsToSend; i++ {
		s.worker.Enqueue(model.Event{Name: "timed"})
	}

	s.waitForAsyncOp(&wg, "Time Interval Trigger")
}

func (s *BatchWorkerTestSuite) TestShutdownFlush() {
	batchSize := 10
	flushInterval := 1 * time.Hour

	eventsToSend := 4
	s.mockRepo.On("CreateBatch", mock.Anything, mock.MatchedBy(func(events []model.Event) bool {
		return len(events) == eventsToSend
	})).Return(nil)

	s.worker = NewBatchEventWorker(s.mockRepo, 10, batchSize, flushInterval)

	for i := 0; i < eventsToSend; i++ {
		s.worker.Enqueue(model.Event{Name: "shutdown"})
	}

	s.worker.Shutdown()

	s.mockRepo.AssertExpectations(s.T())
}

func (s *BatchWorkerTestSuite) TestGracefulErrorHandling() {
	batchSize := 1
	flushInterval := 1 * time.Hour

	var wg sync.WaitGroup
	wg.Add(1)

	// the worker logs the failure and keeps running
	s.mockRepo.On("CreateBatch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { wg.Done() }).
		Return(context.DeadlineExceeded)

	s.worker = NewBatchEventWorker(s.mockRepo, 10, batchSize, flushInterval)
	defer s.worker.Shutdown()

	s.worker.Enqueue(model.Event{Name: "failing"})

	s.waitForAsyncOp(&wg, "Error Handling")

	s.mockRepo.AssertExpectations(s.T())
}

// waitForAsyncOp fails the test if wg is not released within a second.
func (s *BatchWorkerTestSuite) waitForAsyncOp(wg *sync.WaitGroup, testName string) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.mockRepo.AssertExpectations(s.T())
	case <-time.After(1 * time.Second):
		s.T().Fatalf("Test '%s' timed out waiting for worker response", testName)
	}
}
