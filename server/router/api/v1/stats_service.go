package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// handleStats reports site-wide usage figures: leads, analytics events, and
// live chat sessions.
func (s *APIV1Service) handleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Stats.GetStats())
}
