package driver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wlcommunity/wlbot/wlbot/agent"
)

func TestOpenAIAdapter_Chat(t *testing.T) {
	var gotReq oaRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/"+_openai_completions_path, r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		content := "counter cavalry with spearmen"
		resp := oaResponse{
			ID:    "chatcmpl-1",
			Model: "wl-chat",
			Choices: []oaChoice{
				{
					Message:      oaResMessage{Role: "assistant", Content: &content},
					FinishReason: "stop",
				},
			},
			Usage: oaUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	d, err := NewOpenAIAdapter("wl-chat", "test-key", &Config{Endpoint: srv.URL})
	require.NoError(t, err)

	res, err := d.Chat(t.Context(), agent.CCReq{
		Messages: []*agent.Message{
			agent.NewTextMessage(agent.RoleSystem, "you are the wl assistant"),
			agent.NewTextMessage(agent.RoleUser, "how to stop cavalry"),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "counter cavalry with spearmen", res.Text())
	assert.Equal(t, int32(15), res.Usage.TotalTokens)

	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "how to stop cavalry", gotReq.Messages[1].Content[0].Text)
	assert.Equal(t, "wl-chat", gotReq.Model)
}

func TestOpenAIAdapter_ClientErrorNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	d, err := NewOpenAIAdapter("wl-chat", "", &Config{Endpoint: srv.URL})
	require.NoError(t, err)

	_, err = d.Chat(t.Context(), agent.CCReq{
		Messages: []*agent.Message{agent.NewTextMessage(agent.RoleUser, "hi")},
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestOpenAIAdapter_NoBackoffAfterFinalAttempt(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d, err := NewOpenAIAdapter("wl-chat", "", &Config{Endpoint: srv.URL})
	require.NoError(t, err)
	d.maxRetry = 0

	started := time.Now()
	_, err = d.Chat(t.Context(), agent.CCReq{
		Messages: []*agent.Message{agent.NewTextMessage(agent.RoleUser, "hi")},
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(started), 500*time.Millisecond,
		"exhausted attempts must return without sleeping")
}

func TestNewOpenAIAdapter_RequiresModel(t *testing.T) {
	_, err := NewOpenAIAdapter("", "", &Config{Endpoint: "http://localhost"})
	require.Error(t, err)
}
