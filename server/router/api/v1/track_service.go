package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nbolat/course-site/store"
)

type trackRequest struct {
	UserID           string             `json:"userId"`
	PageName         string             `json:"pageName"`
	PageVariant      string             `json:"pageVariant"`
	TimeSpentSec     int64              `json:"timeSpent_sec"`
	ScrollDepthPerc  int64              `json:"scrollDepth_perc"`
	FinalAction      string             `json:"finalAction"`
	NavigationPath   []string           `json:"navigationPath"`
	SectionViewTimes map[string]float64 `json:"sectionViewTimes"`
}

func (s *APIV1Service) handleTrack(c echo.Context) error {
	var req trackRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "некорректный запрос")
	}

	create := &store.UserEvent{
		UserID:           req.UserID,
		PageName:         req.PageName,
		PageVariant:      req.PageVariant,
		TimeSpentSec:     req.TimeSpentSec,
		ScrollDepthPerc:  req.ScrollDepthPerc,
		FinalAction:      req.FinalAction,
		NavigationPath:   req.NavigationPath,
		SectionViewTimes: req.SectionViewTimes,
	}
	if err := s.Store.CreateUserEvent(c.Request().Context(), create); err != nil {
		slog.Error("failed to save user event", slog.String("error", err.Error()))
		return c.String(http.StatusInternalServerError, "Внутренняя ошибка сервера.")
	}

	return c.String(http.StatusOK, "Данные аналитики получены и сохранены")
}
