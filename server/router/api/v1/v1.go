// Package v1 exposes the HTTP API: the streaming chat endpoint, the
// lead-capture form, and the analytics tracker.
package v1

import (
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/semaphore"

	"github.com/nbolat/course-site/internal/profile"
	"github.com/nbolat/course-site/plugin/ai"
	"github.com/nbolat/course-site/server/stats"
	"github.com/nbolat/course-site/store"
)

// maxConcurrentChats bounds the number of in-flight provider streams so a
// burst of chat traffic cannot exhaust upstream quota in one go.
const maxConcurrentChats = 8

type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store
	Chat    *ai.Chat
	Stats   *stats.Collector

	chatSemaphore *semaphore.Weighted
}

func NewAPIV1Service(profile *profile.Profile, store *store.Store, chat *ai.Chat, collector *stats.Collector) *APIV1Service {
	return &APIV1Service{
		Profile:       profile,
		Store:         store,
		Chat:          chat,
		Stats:         collector,
		chatSemaphore: semaphore.NewWeighted(maxConcurrentChats),
	}
}

// RegisterRoutes attaches the API handlers to the given Echo instance.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	apiGroup := echoServer.Group("/api")
	apiGroup.POST("/chat", s.handleChat)
	apiGroup.GET("/chat/stats", s.handleChatStats)
	apiGroup.DELETE("/chat/sessions/:userId", s.handleResetSession)
	apiGroup.POST("/submit-form", s.handleSubmitForm)
	apiGroup.POST("/track", s.handleTrack)
	apiGroup.GET("/stats", s.handleStats)
}
