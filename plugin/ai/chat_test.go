package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbolat/course-site/plugin/ai/session"
	"github.com/nbolat/course-site/internal/observability"
)

type fakeGenerator struct {
	chunks []string
	err    error
}

func (f *fakeGenerator) GenerateResponse(ctx context.Context, userText string, history []session.Message) (<-chan string, <-chan error) {
	contentChan := make(chan string)
	errChan := make(chan error, 1)
	go func() {
		defer close(contentChan)
		defer close(errChan)
		for _, c := range f.chunks {
			select {
			case contentChan <- c:
			case <-ctx.Done():
				return
			}
		}
		if f.err != nil {
			errChan <- f.err
		}
	}()
	return contentChan, errChan
}

func collect(t *testing.T, stream <-chan string) []string {
	t.Helper()
	var chunks []string
	deadline := time.After(5 * time.Second)
	for {
		select {
		case chunk, ok := <-stream:
			if !ok {
				return chunks
			}
			chunks = append(chunks, chunk)
		case <-deadline:
			t.Fatal("stream did not complete in time")
		}
	}
}

func TestProcessMessageStreamsAndPersists(t *testing.T) {
	store := session.NewStore()
	chat := NewChat(store, &fakeGenerator{chunks: []string{"Курс ", "стоит ", "50000 тенге."}})

	chunks := collect(t, chat.ProcessMessage(context.Background(), "user-1", "Сколько стоит курс?"))
	require.Equal(t, []string{"Курс ", "стоит ", "50000 тенге."}, chunks)

	history := store.History("user-1")
	require.Len(t, history, 2)
	assert.Equal(t, session.RoleUser, history[0].Role)
	assert.Equal(t, "Сколько стоит курс?", history[0].Content)
	assert.Equal(t, session.RoleAssistant, history[1].Role)
	assert.Equal(t, "Курс стоит 50000 тенге.", history[1].Content)
}

func TestProcessMessageFailureContainment(t *testing.T) {
	store := session.NewStore()
	chat := NewChat(store, &fakeGenerator{
		chunks: []string{"частичный "},
		err:    fmt.Errorf("backend exploded"),
	})

	chunks := collect(t, chat.ProcessMessage(context.Background(), "user-1", "вопрос"))

	// A finite, non-empty sequence that completes rather than raising.
	require.NotEmpty(t, chunks)
	assert.Equal(t, apologyMessage, chunks[len(chunks)-1])

	history := store.History("user-1")
	require.Len(t, history, 2)
	assert.Equal(t, session.RoleAssistant, history[1].Role)
	assert.Equal(t, apologyMessage, history[1].Content)
}

func TestProcessMessageFailureWithRequestContext(t *testing.T) {
	store := session.NewStore()
	chat := NewChat(store, &fakeGenerator{err: fmt.Errorf("backend exploded")})

	// Failures log through the request context when the handler put one in.
	var logBuf strings.Builder
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))
	ctx := observability.WithRequestContext(context.Background(),
		observability.NewRequestContext(logger, "deepseek", "user-1"))

	chunks := collect(t, chat.ProcessMessage(ctx, "user-1", "вопрос"))

	require.NotEmpty(t, chunks)
	assert.Equal(t, apologyMessage, chunks[len(chunks)-1])
	assert.Contains(t, logBuf.String(), "chat generation failed")
	assert.Contains(t, logBuf.String(), observability.LogFieldRequestID)
}

func TestProcessMessageHistoryCap(t *testing.T) {
	store := session.NewStore()
	chat := NewChat(store, &fakeGenerator{chunks: []string{"ответ"}})

	for i := 0; i < 15; i++ {
		collect(t, chat.ProcessMessage(context.Background(), "user-1", fmt.Sprintf("вопрос %d", i)))
		require.LessOrEqual(t, len(store.History("user-1")), session.MaxHistoryLength)
	}

	history := store.History("user-1")
	require.Len(t, history, session.MaxHistoryLength)
	// 15 turns x 2 messages = 30; the retained window is the last 20.
	assert.Equal(t, "вопрос 5", history[0].Content)
	assert.Equal(t, "ответ", history[session.MaxHistoryLength-1].Content)
}

func TestProcessMessageIsolation(t *testing.T) {
	store := session.NewStore()
	chat := NewChat(store, &fakeGenerator{chunks: []string{"ок"}})

	collect(t, chat.ProcessMessage(context.Background(), "a", "от а"))
	collect(t, chat.ProcessMessage(context.Background(), "b", "от б"))

	for _, msg := range store.History("b") {
		assert.NotEqual(t, "от а", msg.Content)
	}
}

func TestProcessMessageCancellationKeepsPartial(t *testing.T) {
	store := session.NewStore()
	ctx, cancel := context.WithCancel(context.Background())

	chat := NewChat(store, &fakeGenerator{chunks: []string{"начало ", "конец"}})
	stream := chat.ProcessMessage(ctx, "user-1", "вопрос")

	// Read one chunk, then walk away.
	first := <-stream
	require.Equal(t, "начало ", first)
	cancel()
	for range stream {
	}

	// Give the finalizer a moment to persist the partial turn.
	require.Eventually(t, func() bool {
		history := store.History("user-1")
		return len(history) == 2 && history[1].Role == session.RoleAssistant
	}, 2*time.Second, 10*time.Millisecond)

	history := store.History("user-1")
	assert.True(t, strings.HasPrefix(history[1].Content, "начало"))
}

func TestResetSessionIdempotence(t *testing.T) {
	store := session.NewStore()
	chat := NewChat(store, &fakeGenerator{chunks: []string{"ок"}})

	collect(t, chat.ProcessMessage(context.Background(), "user-1", "вопрос"))

	assert.True(t, chat.ResetSession("user-1"))
	assert.False(t, chat.ResetSession("user-1"))
}

func TestSessionStats(t *testing.T) {
	store := session.NewStore()
	chat := NewChat(store, &fakeGenerator{chunks: []string{"ок"}})

	collect(t, chat.ProcessMessage(context.Background(), "user-1", "вопрос"))

	stats := chat.SessionStats()
	assert.Equal(t, 1, stats.ActiveSessions)
	assert.Equal(t, 2, stats.TotalMessages)
}
