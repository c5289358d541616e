package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"dashboard-query-service/internal/metrics"
	"dashboard-query-service/internal/model"
	"dashboard-query-service/internal/repository"
)

type batchEventWorker struct {
	repo          repository.EventRepository
	eventQueue    chan model.Event
	batchSize     int
	flushInterval time.Duration
	wg            sync.WaitGroup
}

type BatchEventWorker interface {
	Enqueue(event model.Event)
	Shutdown()
}

// NewBatchEventWorker starts a worker that flushes events to repo when a batch
// fills up, when flushInterval elapses, or on Shutdown.
func NewBatchEventWorker(repo repository.EventRepository, bufferSize int, batchSize int, interval time.Duration) *batchEventWorker {
	worker := &batchEventWorker{
		repo:          repo,
		eventQueue:    make(chan model.Event, bufferSize),
		batchSize:     batchSize,
		flushInterval: interval,
	}
	worker.wg.Add(1)
	go worker.startLoop()
	return worker
}

// Enqueue blocks when the buffer is full.
func (w *batchEventWorker) Enqueue(event model.Event) {
	w.eventQueue <- event
}

// Shutdown stops accepting events and waits for the queue to drain.
func (w *batchEventWorker) Shutdown() {
	logrus.Info("shutting down event worker, draining queue")
	close(w.eventQueue)
	w.wg.Wait()
	logrus.Info("event worker stopped")
}

func (w *batchEventWorker) startLoop() {
	defer w.wg.Done()

	var batch []model.Event
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.eventQueue:
			if !ok {
				if len(batch) > 0 {
					w.bulkInsert(batch)
				}
				return
			}

			batch = append(batch, event)

			if len(batch) >= w.batchSize {
				logrus.WithFields(logrus.Fields{
					"batch_size": len(batch),
					"queue_size": len(w.eventQueue),
				}).Debug("batch size reached")
				w.bulkInsert(batch)
				batch = nil
			}

		case <-ticker.C:
			if len(batch) > 0 {
				logrus.WithFields(logrus.Fields{
					"batch_size": len(batch),
					"queue_size": len(w.eventQueue),
				}).Debug("flush interval elapsed")
				w.bulkInsert(batch)
				batch = nil
			}
		}
	}
}

func (w *batchEventWorker) bulkInsert(events []model.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := w.repo.CreateBatch(ctx, events); err != nil {
		metrics.EventsFlushed.WithLabelValues("error").Add(float64(len(events)))
		logrus.WithError(err).WithField("events", len(events)).Error("bulk insert failed")
		return
	}
	metrics.EventsFlushed.WithLabelValues("ok").Add(float64(len(events)))
	logrus.WithField("events", len(events)).Debug("events flushed")
}
