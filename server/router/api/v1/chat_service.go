package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"

	"github.com/nbolat/course-site/internal/observability"
)

// UserIDHeader carries the server-assigned user id back to clients that
// opened a chat without one.
const UserIDHeader = "X-User-Id"

type chatRequest struct {
	Question string `json:"question"`
	UserID   string `json:"userId"`
}

type chatStatsResponse struct {
	ActiveSessions int `json:"activeSessions"`
	TotalMessages  int `json:"totalMessages"`
}

type resetSessionResponse struct {
	Deleted bool `json:"deleted"`
}

// handleChat streams the assistant reply as chunked plain text. Each chunk is
// written and flushed as soon as the provider produces it.
func (s *APIV1Service) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "некорректный запрос")
	}
	if req.Question == "" {
		return c.String(http.StatusBadRequest, `"question" обязательно`)
	}

	ctx := c.Request().Context()

	userID := req.UserID
	assigned := false
	if userID == "" {
		userID = shortuuid.New()
		assigned = true
	}

	if err := s.chatSemaphore.Acquire(ctx, 1); err != nil {
		return c.String(http.StatusServiceUnavailable, "Сервис перегружен, попробуйте позже.")
	}
	defer s.chatSemaphore.Release(1)

	reqCtx := observability.NewRequestContext(slog.Default(), s.Profile.AIProvider, truncateID(userID))
	ctx = observability.WithRequestContext(ctx, reqCtx)
	reqCtx.Info("chat request",
		slog.Bool("assigned_id", assigned),
		slog.Int(observability.LogFieldMessageLen, len(req.Question)))

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/plain; charset=utf-8")
	if assigned {
		resp.Header().Set(UserIDHeader, userID)
	}
	resp.WriteHeader(http.StatusOK)

	written := 0
	for chunk := range s.Chat.ProcessMessage(ctx, userID, req.Question) {
		if _, err := resp.Write([]byte(chunk)); err != nil {
			reqCtx.Warn("chat stream write failed", slog.String("error", err.Error()))
			break
		}
		resp.Flush()
		written += len(chunk)
	}

	reqCtx.Info("chat response complete",
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
		slog.Int("bytes_written", written))
	return nil
}

func (s *APIV1Service) handleChatStats(c echo.Context) error {
	stats := s.Chat.SessionStats()
	return c.JSON(http.StatusOK, chatStatsResponse{
		ActiveSessions: stats.ActiveSessions,
		TotalMessages:  stats.TotalMessages,
	})
}

func (s *APIV1Service) handleResetSession(c echo.Context) error {
	userID := c.Param("userId")
	if userID == "" {
		return c.String(http.StatusBadRequest, `"userId" обязательно`)
	}
	return c.JSON(http.StatusOK, resetSessionResponse{
		Deleted: s.Chat.ResetSession(userID),
	})
}

// truncateID shortens a user id for logs.
func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}
