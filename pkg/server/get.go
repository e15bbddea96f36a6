package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"luna/pkg/schema"
)

func (s *Server) handleGetHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, schema.Health{
		Service: ServiceName,
		Status:  "ok",
	})
}

// GET /api/schema
func (s *Server) handleGetSchema(c echo.Context) error {
	return c.JSON(http.StatusOK, schema.Document())
}
