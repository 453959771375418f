package ai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbolat/course-site/plugin/ai/session"
)

func yandexAnswer(text string) []byte {
	body, _ := json.Marshal(map[string]any{
		"result": map[string]any{
			"alternatives": []map[string]any{{
				"message": map[string]string{"role": "assistant", "text": text},
			}},
		},
	})
	return body
}

func newTestYandex(t *testing.T, srv *httptest.Server) *Yandex {
	t.Helper()
	gen, err := NewYandex("test-key", "test-folder", testPrompts())
	require.NoError(t, err)
	gen.apiURL = srv.URL
	gen.delay = 0
	return gen
}

func TestYandexRequiresCredentials(t *testing.T) {
	_, err := NewYandex("", "folder", testPrompts())
	require.Error(t, err)
	_, err = NewYandex("key", "", testPrompts())
	require.Error(t, err)
}

func TestYandexRoundTripLaw(t *testing.T) {
	answer := "Курс стоит 50000 тенге. Приходите!"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Api-Key test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "test-folder", r.Header.Get("x-folder-id"))

		var req yandexRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt://test-folder/yandexgpt/latest", req.ModelURI)
		assert.False(t, req.CompletionOptions.Stream)

		w.Write(yandexAnswer(answer))
	}))
	defer srv.Close()

	chunks := collectGenerated(t, newTestYandex(t, srv), "Сколько стоит курс?", nil)

	// The concatenation of the emulated stream equals the full answer.
	require.Greater(t, len(chunks), 1)
	assert.Equal(t, answer, strings.Join(chunks, ""))
}

func TestYandexHTTPErrorYieldsApology(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	chunks := collectGenerated(t, newTestYandex(t, srv), "вопрос", nil)
	assert.Equal(t, []string{yandexApology}, chunks)
}

func TestYandexUnexpectedShapeYieldsApology(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":{"alternatives":[]}}`))
	}))
	defer srv.Close()

	chunks := collectGenerated(t, newTestYandex(t, srv), "вопрос", nil)
	assert.Equal(t, []string{yandexApology}, chunks)
}

func TestYandexPrepareMessagesCapsHistory(t *testing.T) {
	gen, err := NewYandex("key", "folder", testPrompts())
	require.NoError(t, err)

	var history []session.Message
	for i := 0; i < 16; i++ {
		role := session.RoleUser
		if i%2 == 1 {
			role = session.RoleAssistant
		}
		history = append(history, session.Message{Role: role, Content: "msg"})
	}
	history = append(history, session.Message{Role: session.RoleUser, Content: "текущий"})

	messages := gen.prepareMessages("текущий", history)

	// system + capped history + current question.
	assert.Len(t, messages, 1+yandexHistoryCap+1)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, "текущий", messages[len(messages)-1].Text)
}
