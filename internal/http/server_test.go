package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"dashboard-query-service/internal/config"
	"dashboard-query-service/internal/controller"
	mockservice "dashboard-query-service/internal/testdata/mockservice"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer_AssignsRequestID(t *testing.T) {
	srv := NewServer(config.Default(),
		controller.NewEventController(&mockservice.Service{}),
		controller.NewQueryController(&mockservice.QueryService{}),
	)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestNewServer_UnknownRoute(t *testing.T) {
	srv := NewServer(config.Default(),
		controller.NewEventController(&mockservice.Service{}),
		controller.NewQueryController(&mockservice.QueryService{}),
	)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/nope", nil), -1)

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
