package ai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nbolat/course-site/plugin/ai/session"
	"github.com/nbolat/course-site/internal/observability"
)

// apologyMessage is the only error text a visitor ever sees. It is shaped
// like a normal assistant message, so the client needs no special casing.
const apologyMessage = "Извините, произошла ошибка. Попробуйте позже."

// Generator produces an incremental answer for one user turn. The history
// ends with the in-progress user message. Implementations convert their own
// backend failures into apology chunks on the content channel; the error
// channel is a backstop for failures an adapter could not contain.
type Generator interface {
	GenerateResponse(ctx context.Context, userText string, history []session.Message) (<-chan string, <-chan error)
}

// Chat coordinates session lookup, history trimming, prompt delegation and
// persisting each exchange back into the session store.
type Chat struct {
	store *session.Store
	gen   Generator
}

// NewChat creates the chat orchestrator.
func NewChat(store *session.Store, gen Generator) *Chat {
	return &Chat{store: store, gen: gen}
}

// ProcessMessage handles one inbound user message and returns a forward-only
// stream of response chunks. The stream is finite, single-consumption and
// never carries an error: any failure terminates it with an apology chunk.
// The session always ends the turn with a valid, trimmed history.
func (c *Chat) ProcessMessage(ctx context.Context, userID, userText string) <-chan string {
	out := make(chan string)

	go func() {
		defer close(out)

		c.store.GetOrCreate(userID)
		c.store.Append(userID, session.UserMessage(userText))
		history := c.store.History(userID)

		contentChan, errChan := c.gen.GenerateResponse(ctx, userText, history)

		var full strings.Builder
		for contentChan != nil || errChan != nil {
			select {
			case chunk, ok := <-contentChan:
				if !ok {
					contentChan = nil
					continue
				}
				full.WriteString(chunk)
				select {
				case out <- chunk:
				case <-ctx.Done():
					c.finalize(userID, full.String())
					return
				}

			case err, ok := <-errChan:
				if !ok {
					errChan = nil
					continue
				}
				if reqCtx, found := observability.FromContext(ctx); found {
					reqCtx.Error("chat generation failed", err)
				} else {
					slog.Error("chat generation failed", "user_id", userID, "error", err)
				}
				select {
				case out <- apologyMessage:
				case <-ctx.Done():
				}
				// The failure stays visible in history.
				c.store.Append(userID, session.AssistantMessage(apologyMessage))
				return

			case <-ctx.Done():
				// Client went away mid-stream; keep whatever was
				// accumulated so the turn is not silently lost.
				c.finalize(userID, full.String())
				return
			}
		}

		c.store.Append(userID, session.AssistantMessage(full.String()))
	}()

	return out
}

// finalize persists a partially accumulated response after cancellation.
// Nothing is appended when no content arrived before the abort.
func (c *Chat) finalize(userID, response string) {
	if response == "" {
		return
	}
	c.store.Append(userID, session.AssistantMessage(response))
}

// ResetSession drops the session for userID and reports whether one existed.
func (c *Chat) ResetSession(userID string) bool {
	return c.store.Reset(userID)
}

// SessionStats returns the aggregate session counters.
func (c *Chat) SessionStats() session.Stats {
	return c.store.Stats()
}
