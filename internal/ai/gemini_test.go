package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kombat1337-ui/Support-bot/internal/config"
	"github.com/kombat1337-ui/Support-bot/internal/domain"
)

func testConfig(baseURL string) config.AIConfig {
	return config.AIConfig{
		APIKey:          "secret",
		Model:           "gemini-1.5-flash",
		BaseURL:         baseURL,
		TimeoutSeconds:  5,
		Temperature:     0.2,
		MaxOutputTokens: 2048,
	}
}

func TestGeminiAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))

		var in generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Len(t, in.Contents, 1)
		assert.Equal(t, "hello", in.Contents[0].Parts[0].Text)
		assert.Equal(t, 0.2, in.GenerationConfig.Temperature)
		assert.Equal(t, 2048, in.GenerationConfig.MaxOutputTokens)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Restart "},{"text":"the launcher."}]}}]}`))
	}))
	defer srv.Close()

	answer, err := NewGeminiClient(testConfig(srv.URL)).Answer(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Restart the launcher.", answer)
}

func TestGeminiErrors(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := NewGeminiClient(testConfig(srv.URL)).Answer(context.Background(), "q")
		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusTooManyRequests, httpErr.StatusCode)
	})

	t.Run("empty candidates", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"candidates":[]}`))
		}))
		defer srv.Close()

		_, err := NewGeminiClient(testConfig(srv.URL)).Answer(context.Background(), "q")
		assert.Error(t, err)
	})

	t.Run("disabled", func(t *testing.T) {
		cfg := testConfig("http://unused")
		cfg.APIKey = ""
		_, err := NewGeminiClient(cfg).Answer(context.Background(), "q")
		assert.ErrorIs(t, err, ErrDisabled)
	})
}

func TestBuildPrompt(t *testing.T) {
	ticket := &domain.Ticket{Number: 3, Subject: "Acme"}
	steps := []domain.StepAnswer{
		{Index: 0, Text: "Launcher"},
		{Index: 4, Text: domain.MediaPlaceholder, MediaRef: "p", MediaKind: domain.MediaPhoto},
	}
	logs := []domain.LogEntry{
		{Role: domain.RoleUser, SenderName: "Ann", Text: "it crashes"},
		{Role: domain.RoleSystem, SenderName: "AI (via Sam)", Text: "try again"},
	}
	prompt := BuildPrompt(ticket, steps, logs, "  why?  ")

	assert.Contains(t, prompt, "Ticket #000000000003")
	assert.Contains(t, prompt, "CURRENT QUESTION: why?\n")
	assert.Contains(t, prompt, "INITIAL STEP (Which product?): Launcher\n")
	assert.Contains(t, prompt, "[Media: photo]")
	assert.Less(t, strings.Index(prompt, "User (Ann): it crashes"), strings.Index(prompt, "Support (AI (via Sam)): try again"))
}
