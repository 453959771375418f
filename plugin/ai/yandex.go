package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/nbolat/course-site/plugin/ai/session"
)

const (
	yandexCompletionURL = "https://llm.api.cloud.yandex.net/foundationModels/v1/completion"

	// yandexHistoryCap bounds how many history entries are forwarded to the
	// backend, to bound token usage. 5 user/assistant pairs.
	yandexHistoryCap = 10

	// yandexChunkRunes is the emulated stream granularity.
	yandexChunkRunes = 3

	yandexApology = "Извините, в данный момент сервис недоступен. Попробуйте позже или свяжитесь с Нурболатом напрямую."
)

// Yandex generates answers through the YandexGPT foundation models API. The
// backend returns one JSON document, which is re-chunked locally into
// fixed-size rune slices to keep the incremental delivery contract.
type Yandex struct {
	apiKey   string
	folderID string
	apiURL   string
	prompts  Prompts
	client   *http.Client
	delay    time.Duration
}

// NewYandex creates the YandexGPT adapter. Both credentials are required.
func NewYandex(apiKey, folderID string, prompts Prompts) (*Yandex, error) {
	if apiKey == "" || folderID == "" {
		return nil, errors.New("yandex API key and folder id are required")
	}
	return &Yandex{
		apiKey:   apiKey,
		folderID: folderID,
		apiURL:   yandexCompletionURL,
		prompts:  prompts,
		client:   defaultHTTPClient,
		delay:    chunkDelay,
	}, nil
}

type yandexMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type yandexRequest struct {
	ModelURI          string                  `json:"modelUri"`
	CompletionOptions yandexCompletionOptions `json:"completionOptions"`
	Messages          []yandexMessage         `json:"messages"`
}

type yandexCompletionOptions struct {
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

type yandexResponse struct {
	Result struct {
		Alternatives []struct {
			Message struct {
				Text string `json:"text"`
			} `json:"message"`
		} `json:"alternatives"`
	} `json:"result"`
}

// GenerateResponse streams the answer for userText. Backend failures are
// converted into a single apology chunk and never escape the adapter.
func (y *Yandex) GenerateResponse(ctx context.Context, userText string, history []session.Message) (<-chan string, <-chan error) {
	contentChan := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		defer close(contentChan)
		defer close(errChan)

		text, err := y.complete(ctx, userText, history)
		if err != nil {
			slog.Error("yandex generation failed", "error", err)
			emit(ctx, contentChan, yandexApology)
			return
		}
		streamByRunes(ctx, contentChan, text, yandexChunkRunes, y.delay)
	}()

	return contentChan, errChan
}

func (y *Yandex) complete(ctx context.Context, userText string, history []session.Message) (string, error) {
	payload := yandexRequest{
		ModelURI: fmt.Sprintf("gpt://%s/yandexgpt/latest", y.folderID),
		CompletionOptions: yandexCompletionOptions{
			Stream:      false,
			Temperature: 0.7,
			MaxTokens:   1000,
		},
		Messages: y.prepareMessages(userText, history),
	}

	resp, err := postJSON(ctx, y.client, y.apiURL, map[string]string{
		"Authorization": "Api-Key " + y.apiKey,
		"x-folder-id":   y.folderID,
	}, payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", errors.Errorf("yandex error: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed yandexResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", errors.Wrap(err, "failed to decode yandex response")
	}
	if len(parsed.Result.Alternatives) == 0 || parsed.Result.Alternatives[0].Message.Text == "" {
		return "", errors.New("unexpected yandex response shape")
	}
	return parsed.Result.Alternatives[0].Message.Text, nil
}

// prepareMessages builds the outbound message list: a system message, the
// most recent history entries (capped, excluding the in-progress user
// message) as role-tagged messages, then the current question.
func (y *Yandex) prepareMessages(userText string, history []session.Message) []yandexMessage {
	messages := []yandexMessage{
		{Role: "system", Text: y.buildSystemMessage(history)},
	}

	recent := priorHistory(history)
	if len(recent) > yandexHistoryCap {
		recent = recent[len(recent)-yandexHistoryCap:]
	}
	for _, msg := range recent {
		messages = append(messages, yandexMessage{Role: msg.Role, Text: msg.Content})
	}

	messages = append(messages, yandexMessage{Role: session.RoleUser, Text: userText})
	return messages
}

func (y *Yandex) buildSystemMessage(history []session.Message) string {
	var b strings.Builder
	b.WriteString(y.prompts.System)
	b.WriteString("\n\nКОНТЕКСТ КУРСА:\n")
	b.WriteString(y.prompts.Context)
	b.WriteString("\n\n")

	b.WriteString("КОНТЕКСТ ДИАЛОГА:\n")
	fmt.Fprintf(&b, "- Пользователь задал подробные вопросы: %s\n", boolWord(hasDetailedQuestions(history), "да", "нет"))
	fmt.Fprintf(&b, "- Пользователь готов к действию: %s\n\n", boolWord(userExpressedReadiness(history), "да", "нет"))
	return b.String()
}
