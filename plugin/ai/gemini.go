package ai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/nbolat/course-site/plugin/ai/session"
)

const (
	geminiBaseURL       = "https://generativelanguage.googleapis.com/v1beta/models"
	geminiFallbackModel = "gemini-1.5-flash-001"

	geminiApology         = "Извините, произошла ошибка соединения. Попробуйте позже."
	geminiBusyApology     = "Слишком много запросов. Попробуйте через минуту."
	geminiDownApology     = "Временные проблемы с сервисом. Попробуйте позже."
	geminiFallbackApology = "Сервис временно недоступен. Пожалуйста, попробуйте позже или свяжитесь с Нурболатом напрямую."
)

// Gemini generates answers through the Google generative language API. The
// backend returns one JSON document, which is re-chunked locally word by
// word to keep the incremental delivery contract.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	prompts Prompts
	client  *http.Client
	delay   time.Duration
}

// NewGemini creates the Gemini adapter. The API key is required.
func NewGemini(apiKey, model string, prompts Prompts) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Gemini{
		apiKey:  apiKey,
		model:   model,
		baseURL: geminiBaseURL,
		prompts: prompts,
		client:  defaultHTTPClient,
		delay:   chunkDelay,
	}, nil
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
	SafetySettings   []geminiSafetySetting  `json:"safetySettings,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	TopP            float64 `json:"topP,omitempty"`
	TopK            int     `json:"topK,omitempty"`
}

type geminiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GenerateResponse streams the answer for userText. Backend failures are
// converted into apology chunks; a 404 retries the fallback model first.
func (g *Gemini) GenerateResponse(ctx context.Context, userText string, history []session.Message) (<-chan string, <-chan error) {
	contentChan := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		defer close(contentChan)
		defer close(errChan)

		prompt := g.prompts.BuildPrompt(userText, history)

		text, status, err := g.complete(ctx, g.model, prompt, true)
		if err == nil {
			streamByWords(ctx, contentChan, text, g.delay)
			return
		}

		switch status {
		case http.StatusNotFound:
			// The configured model may have been retired; retry once
			// against a pinned fallback before giving up.
			slog.Warn("gemini model not found, trying fallback", "model", g.model, "fallback", geminiFallbackModel)
			text, _, ferr := g.complete(ctx, geminiFallbackModel, prompt, false)
			if ferr != nil {
				slog.Error("gemini fallback failed", "error", ferr)
				emit(ctx, contentChan, geminiFallbackApology)
				return
			}
			streamByWords(ctx, contentChan, text, g.delay)
		case http.StatusTooManyRequests:
			slog.Warn("gemini rate limited")
			emit(ctx, contentChan, geminiBusyApology)
		case 0:
			slog.Error("gemini request failed", "error", err)
			emit(ctx, contentChan, geminiApology)
		default:
			slog.Error("gemini generation failed", "status", status, "error", err)
			emit(ctx, contentChan, geminiDownApology)
		}
	}()

	return contentChan, errChan
}

// complete fetches one full answer. Returns the HTTP status alongside the
// error so the caller can pick a recovery path; status 0 means the request
// never reached the backend.
func (g *Gemini) complete(ctx context.Context, model, prompt string, withSafety bool) (string, int, error) {
	payload := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     0.7,
			MaxOutputTokens: 1000,
		},
	}
	if withSafety {
		payload.GenerationConfig.TopP = 0.8
		payload.GenerationConfig.TopK = 40
		payload.SafetySettings = []geminiSafetySetting{
			{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
			{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
		}
	}

	url := g.baseURL + "/" + model + ":generateContent?key=" + g.apiKey
	resp, err := postJSON(ctx, g.client, url, nil, payload)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", resp.StatusCode, errors.Errorf("gemini error: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", resp.StatusCode, errors.Wrap(err, "failed to decode gemini response")
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", resp.StatusCode, errors.New("unexpected gemini response shape")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, resp.StatusCode, nil
}
