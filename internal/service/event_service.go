package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"dashboard-query-service/internal/model"
)

// ValidationError represents user input issues.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// eventService validates telemetry and hands it to the batch worker.
type eventService struct {
	worker          BatchEventWorker
	now             func() time.Time
	newID           func() string
	futureTolerance time.Duration
}

type EventService interface {
	BuildEvent(req model.EventRequest) (model.Event, error)
	ProcessEvent(ctx context.Context, event model.Event) (model.EventResult, error)
}

// NewEventService constructs an eventService.
func NewEventService(worker BatchEventWorker, futureTolerance time.Duration) EventService {
	return &eventService{
		worker:          worker,
		now:             time.Now,
		newID:           uuid.NewString,
		futureTolerance: futureTolerance,
	}
}

// BuildEvent validates and constructs an Event from an incoming request.
func (s *eventService) BuildEvent(req model.EventRequest) (model.Event, error) {
	if !isSupportedSource(req.Source) {
		return model.Event{}, &ValidationError{Message: "source must be one of logs, traces, metrics"}
	}

	if req.Service == "" {
		return model.Event{}, &ValidationError{Message: "service is required"}
	}

	if req.Name == "" {
		return model.Event{}, &ValidationError{Message: "name is required"}
	}

	if req.Timestamp == 0 {
		return model.Event{}, &ValidationError{Message: "timestamp is required"}
	}

	ts := time.Unix(req.Timestamp, 0).UTC()
	if s.futureTolerance > 0 {
		if err := ValidateTimestamp(ts, s.now(), s.futureTolerance); err != nil {
			return model.Event{}, &ValidationError{Message: err.Error()}
		}
	}

	severity := strings.ToLower(req.Severity)
	if severity == "" {
		severity = "info"
	}

	return model.Event{
		ID:         s.newID(),
		Source:     req.Source,
		Service:    req.Service,
		Severity:   severity,
		Name:       req.Name,
		Value:      req.Value,
		TraceID:    req.TraceID,
		Timestamp:  ts,
		Attributes: req.Attributes,
	}, nil
}

// ProcessEvent queues a single event for batched persistence.
func (s *eventService) ProcessEvent(ctx context.Context, event model.Event) (model.EventResult, error) {
	if err := ctx.Err(); err != nil {
		return model.EventResult{}, err
	}
	s.worker.Enqueue(event)
	return model.EventResult{ID: event.ID, Status: "accepted"}, nil
}

// ValidateTimestamp ensures timestamps are not too far in the future.
func ValidateTimestamp(ts time.Time, now time.Time, tolerance time.Duration) error {
	if tolerance <= 0 {
		return nil
	}
	if ts.After(now.Add(tolerance)) {
		return errors.New("timestamp cannot be in the future")
	}
	return nil
}

func isSupportedSource(source string) bool {
	switch source {
	case model.SourceLogs, model.SourceTraces, model.SourceMetrics:
		return true
	default:
		return false
	}
}
