package ai

import (
	"context"
	"io"
	"log/slog"

	"github.com/pkg/errors"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/nbolat/course-site/plugin/ai/session"
)

const openAIApology = "Извините, произошла техническая ошибка. Попробуйте позже."

// OpenAI generates answers through the OpenAI chat completions API. The SDK
// already delivers per-event deltas, so no local re-chunking is needed.
type OpenAI struct {
	client  *goopenai.Client
	model   string
	prompts Prompts
}

// NewOpenAI creates the OpenAI adapter. The API key is required.
func NewOpenAI(apiKey, model string, prompts Prompts) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("openai API key is required")
	}
	if model == "" {
		model = goopenai.GPT4o
	}
	return &OpenAI{
		client:  goopenai.NewClient(apiKey),
		model:   model,
		prompts: prompts,
	}, nil
}

// GenerateResponse streams the answer for userText. Backend failures are
// converted into a single apology chunk and never escape the adapter.
func (o *OpenAI) GenerateResponse(ctx context.Context, userText string, history []session.Message) (<-chan string, <-chan error) {
	contentChan := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		defer close(contentChan)
		defer close(errChan)

		if err := o.stream(ctx, userText, history, contentChan); err != nil {
			slog.Error("openai generation failed", "error", err)
			emit(ctx, contentChan, openAIApology)
		}
	}()

	return contentChan, errChan
}

func (o *OpenAI) stream(ctx context.Context, userText string, history []session.Message, out chan<- string) error {
	stream, err := o.client.CreateChatCompletionStream(ctx, goopenai.ChatCompletionRequest{
		Model: o.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: o.prompts.BuildPrompt(userText, history)},
			{Role: goopenai.ChatMessageRoleUser, Content: userText},
		},
		Stream:           true,
		Temperature:      0.8,
		MaxTokens:        800,
		PresencePenalty:  0.2,
		FrequencyPenalty: 0.3,
	})
	if err != nil {
		return errors.Wrap(err, "failed to open completion stream")
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "stream receive failed")
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if content := resp.Choices[0].Delta.Content; content != "" {
			if !emit(ctx, out, content) {
				return ctx.Err()
			}
		}
	}
}
