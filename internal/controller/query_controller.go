package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"dashboard-query-service/internal/model"
	"dashboard-query-service/internal/service"
)

type QueryController interface {
	QueryTimeseries(c *fiber.Ctx) error
}

type queryController struct {
	queryService service.QueryService
}

// NewQueryController builds a QueryController.
func NewQueryController(svc service.QueryService) QueryController {
	return &queryController{queryService: svc}
}

// QueryTimeseries runs a widget's queries and formulas and returns chart rows.
// Per-query failures are reported inside the body with status 200.
func (h *queryController) QueryTimeseries(c *fiber.Ctx) error {
	var req model.TimeseriesRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json payload")
	}

	resp, err := h.queryService.QueryTimeseries(c.UserContext(), req)
	if err != nil {
		logrus.WithError(err).WithField("queries", len(req.Queries)).Warn("timeseries query rejected")
		return statusFor(err, "failed to run timeseries query")
	}

	return c.JSON(resp)
}
