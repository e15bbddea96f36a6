package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/segmentio/ksuid"

	"luna/pkg/schema"
	"luna/pkg/turn"
)

// POST /api/message
func (s *Server) handlePostMessage(c echo.Context) error {
	var req schema.TurnRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, schema.ErrorResponse{TextError: "invalid json"})
	}
	if err := req.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, schema.ErrorResponse{TextError: err.Error()})
	}

	turnID := c.Response().Header().Get(echo.HeaderXRequestID)
	if turnID == "" {
		turnID = ksuid.New().String()
	}

	res, err := s.Turns.Run(c.Request().Context(), turn.Request{
		TurnID:     turnID,
		Message:    req.Message,
		History:    req.Conversation,
		Characters: req.Characters,
		Settings:   req.Settings,
	})
	if err != nil {
		return s.turnError(c, turnID, err)
	}

	return c.JSON(http.StatusOK, schema.TurnResponse{
		TurnID:     res.TurnID,
		Text:       res.Text,
		Audio:      res.Audio,
		Image:      res.Image,
		ImageError: res.ImageError,
		Characters: res.Characters,
		Settings:   res.Settings,
	})
}

func (s *Server) turnError(c echo.Context, turnID string, err error) error {
	var turnErr *turn.Error
	if !errors.As(err, &turnErr) {
		s.logger.Error("Turn failed unexpectedly", "turn", turnID, "err", err)
		return c.JSON(http.StatusInternalServerError, schema.ErrorResponse{TextError: "Something went wrong."})
	}
	s.logger.Warn("Turn failed", "turn", turnID, "kind", turnErr.Kind, "status", turnErr.ProviderStatus)
	return c.JSON(turnErr.HTTPStatus(), schema.ErrorResponse{
		TextError:      turnErr.Message,
		Kind:           string(turnErr.Kind),
		Retryable:      turnErr.Retryable(),
		ProviderStatus: turnErr.ProviderStatus,
	})
}
