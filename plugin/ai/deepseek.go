package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/nbolat/course-site/plugin/ai/session"
)

const deepSeekApology = "Извините, сервис временно недоступен. Попробуйте позже."

// DeepSeek generates answers through the DeepSeek chat completions API with
// native SSE streaming, decoded by the shared SSE reader.
type DeepSeek struct {
	apiKey  string
	baseURL string
	model   string
	prompts Prompts
	client  *http.Client
}

// NewDeepSeek creates the DeepSeek adapter. The API key is required.
func NewDeepSeek(apiKey, baseURL, model string, prompts Prompts) (*DeepSeek, error) {
	if apiKey == "" {
		return nil, errors.New("deepseek API key is required")
	}
	if baseURL == "" {
		baseURL = "https://api.deepseek.com"
	}
	if model == "" {
		model = "deepseek-chat"
	}
	return &DeepSeek{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		prompts: prompts,
		client:  defaultHTTPClient,
	}, nil
}

type deepSeekMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type deepSeekRequest struct {
	Model       string            `json:"model"`
	Messages    []deepSeekMessage `json:"messages"`
	Stream      bool              `json:"stream"`
	Temperature float64           `json:"temperature"`
	MaxTokens   int               `json:"max_tokens"`
	TopP        float64           `json:"top_p"`
}

type deepSeekChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// GenerateResponse streams the answer for userText. Backend failures are
// converted into a single apology chunk and never escape the adapter.
func (d *DeepSeek) GenerateResponse(ctx context.Context, userText string, history []session.Message) (<-chan string, <-chan error) {
	contentChan := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		defer close(contentChan)
		defer close(errChan)

		if err := d.stream(ctx, userText, history, contentChan); err != nil {
			slog.Error("deepseek generation failed", "error", err)
			emit(ctx, contentChan, deepSeekApology)
		}
	}()

	return contentChan, errChan
}

func (d *DeepSeek) stream(ctx context.Context, userText string, history []session.Message, out chan<- string) error {
	payload := deepSeekRequest{
		Model:       d.model,
		Messages:    d.prepareMessages(userText, history),
		Stream:      true,
		Temperature: 0.8,
		MaxTokens:   1200,
		TopP:        0.9,
	}

	resp, err := postJSON(ctx, d.client, d.baseURL+"/chat/completions", map[string]string{
		"Authorization": "Bearer " + d.apiKey,
	}, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return errors.Errorf("deepseek error: status %d: %s", resp.StatusCode, string(body))
	}

	return readSSEStream(resp.Body, func(payload []byte) error {
		var chunk deepSeekChunk
		if err := json.Unmarshal(payload, &chunk); err != nil {
			// A torn or malformed event is skipped, not fatal.
			slog.Debug("skipping malformed deepseek event", "error", err)
			return nil
		}
		if len(chunk.Choices) == 0 {
			return nil
		}
		if content := chunk.Choices[0].Delta.Content; content != "" {
			if !emit(ctx, out, content) {
				return ctx.Err()
			}
		}
		return nil
	})
}

// prepareMessages builds the outbound message list: a system message with
// the linearized dialog, then the prior history as role-tagged messages,
// then the current question. The trailing in-progress user message in
// history is excluded and sent separately.
func (d *DeepSeek) prepareMessages(userText string, history []session.Message) []deepSeekMessage {
	messages := []deepSeekMessage{
		{Role: "system", Content: d.buildSystemMessage(userText, history)},
	}
	for _, msg := range priorHistory(history) {
		messages = append(messages, deepSeekMessage{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, deepSeekMessage{Role: session.RoleUser, Content: userText})
	return messages
}

func (d *DeepSeek) buildSystemMessage(userText string, history []session.Message) string {
	var b strings.Builder
	b.WriteString(d.prompts.System)
	b.WriteString("\n\nКОНТЕКСТ КУРСА:\n")
	b.WriteString(d.prompts.Context)
	b.WriteString("\n\n")

	if prior := priorHistory(history); len(prior) > 0 {
		b.WriteString("ТЕКУЩИЙ ДИАЛОГ:\n")
		for i, msg := range prior {
			prefix := ""
			if i == len(prior)-1 {
				prefix = "ПОСЛЕДНИЙ ОБМЕН: "
			}
			fmt.Fprintf(&b, "%s%s: %s\n", prefix, roleLabel(msg.Role), msg.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString("ТЕКУЩИЙ ВОПРОС СТУДЕНТА: ")
	b.WriteString(userText)
	return b.String()
}
