package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"dashboard-query-service/internal/model"
	"dashboard-query-service/internal/service"
)

type EventController interface {
	CreateEvent(c *fiber.Ctx) error
}

// eventController exposes HTTP handlers for telemetry ingestion.
type eventController struct {
	eventService service.EventService
}

// NewEventController builds an EventController.
func NewEventController(svc service.EventService) EventController {
	return &eventController{eventService: svc}
}

// CreateEvent accepts single event payloads.
func (h *eventController) CreateEvent(c *fiber.Ctx) error {
	var req model.EventRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json payload")
	}

	event, err := h.eventService.BuildEvent(req)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	result, err := h.eventService.ProcessEvent(c.UserContext(), event)
	if err != nil {
		logrus.WithError(err).WithField("event_id", event.ID).Error("event not accepted")
		return fiber.NewError(fiber.StatusInternalServerError, "failed to accept event")
	}

	return c.Status(fiber.StatusAccepted).JSON(result)
}

// statusFor maps service errors onto HTTP errors.
func statusFor(err error, fallbackMessage string) error {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		return fiber.NewError(fiber.StatusBadRequest, validationErr.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, fallbackMessage)
}
