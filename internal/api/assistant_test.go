package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Keyring-Network/keyring-notes/internal/assistant"
	"github.com/Keyring-Network/keyring-notes/internal/config"
	"github.com/Keyring-Network/keyring-notes/internal/events"
	"github.com/Keyring-Network/keyring-notes/internal/llm"
	"github.com/Keyring-Network/keyring-notes/internal/store"
	"github.com/Keyring-Network/keyring-notes/internal/store/memory"
)

func TestAsk(t *testing.T) {
	t.Run("answers with sources", func(t *testing.T) {
		assistantMock := &MockAssistant{}
		assistantMock.On("AnswerQuestion", mock.Anything, "u1", assistant.AskInput{Message: "What are my deadlines?", Lang: "pl"}).
			Return(assistant.Answer{Text: "Friday.", Sources: []string{"plan.pdf"}}, nil).Once()

		server := newTestServer(t, memory.New(), events.NewBroker(), assistantMock, nil, config.Config{})
		defer server.Close()

		resp := doJSON(t, http.MethodPost, server.URL+"/assistant/ask", "u1", `{"message":"  What are my deadlines? ","lang":"PL"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var answer assistant.Answer
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&answer))
		assert.Equal(t, "Friday.", answer.Text)
		assert.Equal(t, []string{"plan.pdf"}, answer.Sources)
		assistantMock.AssertExpectations(t)
	})

	t.Run("rejects blank message before calling the assistant", func(t *testing.T) {
		assistantMock := &MockAssistant{}
		server := newTestServer(t, memory.New(), events.NewBroker(), assistantMock, nil, config.Config{})
		defer server.Close()

		resp := doJSON(t, http.MethodPost, server.URL+"/assistant/ask", "u1", `{"message":"   "}`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(body), "message is required")
		assistantMock.AssertNotCalled(t, "AnswerQuestion", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects unsupported language", func(t *testing.T) {
		server := newTestServer(t, memory.New(), events.NewBroker(), &MockAssistant{}, nil, config.Config{})
		defer server.Close()

		resp := doJSON(t, http.MethodPost, server.URL+"/assistant/ask", "u1", `{"message":"hi","lang":"de"}`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(body), "lang must be one of: en pl")
	})

	t.Run("malformed json", func(t *testing.T) {
		server := newTestServer(t, memory.New(), events.NewBroker(), &MockAssistant{}, nil, config.Config{})
		defer server.Close()

		resp := doJSON(t, http.MethodPost, server.URL+"/assistant/ask", "u1", `{"message":`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unavailable without assistant", func(t *testing.T) {
		server := newTestServer(t, memory.New(), events.NewBroker(), nil, nil, config.Config{})
		defer server.Close()

		resp := doJSON(t, http.MethodPost, server.URL+"/assistant/ask", "u1", `{"message":"hi"}`)
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestPlan(t *testing.T) {
	t.Run("pending turn returns unknown tags", func(t *testing.T) {
		planner := &MockPlanner{}
		expected := assistant.PlanInput{
			Message: "Add gym on Monday",
			Lang:    "en",
			History: []assistant.HistoryTurn{{Role: "user", Content: "hello"}},
		}
		planner.On("PlanningTurn", mock.Anything, "u1", expected).
			Return(assistant.PlanningResult{
				Status:      assistant.StatusPending,
				Text:        "These tags are not in your tag list yet: Gym. Do you want to add them?",
				UnknownTags: []string{"Gym"},
			}, nil).Once()

		server := newTestServer(t, memory.New(), events.NewBroker(), nil, planner, config.Config{})
		defer server.Close()

		resp := doJSON(t, http.MethodPost, server.URL+"/assistant/plan", "u1",
			`{"message":"Add gym on Monday","lang":"en","history":[{"role":"user","content":"hello"}]}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		assert.Equal(t, "pending", payload["status"])
		assert.Equal(t, []any{"Gym"}, payload["unknownTags"])
		assert.NotContains(t, payload, "created")
		planner.AssertExpectations(t)
	})

	t.Run("rejects bad history role", func(t *testing.T) {
		server := newTestServer(t, memory.New(), events.NewBroker(), nil, &MockPlanner{}, config.Config{})
		defer server.Close()

		resp := doJSON(t, http.MethodPost, server.URL+"/assistant/plan", "u1",
			`{"message":"plan","history":[{"role":"system","content":"x"}]}`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("rate limited carries retry hint", func(t *testing.T) {
		planner := &MockPlanner{}
		planner.On("PlanningTurn", mock.Anything, "u1", mock.Anything).
			Return(assistant.PlanningResult{}, llm.RateLimitError{Provider: "gemini", Message: "Quota exceeded. Please retry in 37.2s."}).Once()

		server := newTestServer(t, memory.New(), events.NewBroker(), nil, planner, config.Config{})
		defer server.Close()

		resp := doJSON(t, http.MethodPost, server.URL+"/assistant/plan", "u1", `{"message":"plan my week"}`)
		require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		assert.Equal(t, "38", resp.Header.Get("Retry-After"))
	})

	t.Run("invalid input from the service", func(t *testing.T) {
		planner := &MockPlanner{}
		planner.On("PlanningTurn", mock.Anything, "u1", mock.Anything).
			Return(assistant.PlanningResult{}, fmt.Errorf("%w: message is required", assistant.ErrInvalidInput)).Once()

		server := newTestServer(t, memory.New(), events.NewBroker(), nil, planner, config.Config{})
		defer server.Close()

		resp := doJSON(t, http.MethodPost, server.URL+"/assistant/plan", "u1", `{"message":"x"}`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("store failure", func(t *testing.T) {
		planner := &MockPlanner{}
		planner.On("PlanningTurn", mock.Anything, "u1", mock.Anything).
			Return(assistant.PlanningResult{}, errors.New("db down")).Once()

		server := newTestServer(t, memory.New(), events.NewBroker(), nil, planner, config.Config{})
		defer server.Close()

		resp := doJSON(t, http.MethodPost, server.URL+"/assistant/plan", "u1", `{"message":"x"}`)
		require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	t.Run("unavailable without planner", func(t *testing.T) {
		server := newTestServer(t, memory.New(), events.NewBroker(), nil, nil, config.Config{})
		defer server.Close()

		resp := doJSON(t, http.MethodPost, server.URL+"/assistant/plan", "u1", `{"message":"x"}`)
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestConfirm(t *testing.T) {
	t.Run("forwards trimmed tags", func(t *testing.T) {
		created := 1
		planner := &MockPlanner{}
		planner.On("ConfirmTags", mock.Anything, "u1", assistant.ConfirmInput{
			PlanInput: assistant.PlanInput{Message: "Add gym on Monday"},
			Tags:      []string{"Gym"},
		}).Return(assistant.PlanningResult{Status: assistant.StatusCompleted, Text: "Added 1 event(s).", Created: &created}, nil).Once()

		server := newTestServer(t, memory.New(), events.NewBroker(), nil, planner, config.Config{})
		defer server.Close()

		resp := doJSON(t, http.MethodPost, server.URL+"/assistant/plan/confirm", "u1", `{"message":"Add gym on Monday","tags":[" Gym "]}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result assistant.PlanningResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, assistant.StatusCompleted, result.Status)
		require.NotNil(t, result.Created)
		assert.Equal(t, 1, *result.Created)
		planner.AssertExpectations(t)
	})

	t.Run("requires tags", func(t *testing.T) {
		server := newTestServer(t, memory.New(), events.NewBroker(), nil, &MockPlanner{}, config.Config{})
		defer server.Close()

		resp := doJSON(t, http.MethodPost, server.URL+"/assistant/plan/confirm", "u1", `{"message":"x","tags":[]}`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp = doJSON(t, http.MethodPost, server.URL+"/assistant/plan/confirm", "u1", `{"message":"x","tags":["  "]}`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestWriteErrorConflict(t *testing.T) {
	storeMock := &MockStore{}
	storeMock.On("CreateTag", mock.Anything, "u1", store.UserTag{Tag: "Work"}).
		Return(store.UserTag{}, store.ErrTagExists).Once()

	server := newTestServer(t, storeMock, events.NewBroker(), nil, nil, config.Config{})
	defer server.Close()

	resp := doJSON(t, http.MethodPost, server.URL+"/tags", "u1", `{"tag":"Work"}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	storeMock.AssertExpectations(t)
}

func TestRetryAfterSeconds(t *testing.T) {
	cases := []struct {
		message string
		seconds int
		ok      bool
	}{
		{"Please retry in 37.2s.", 38, true},
		{"too many requests (retry in 12s)", 12, true},
		{"Retry in 0.1 s", 1, true},
		{"slow down", 0, false},
	}
	for _, tc := range cases {
		seconds, ok := retryAfterSeconds(tc.message)
		assert.Equal(t, tc.ok, ok, tc.message)
		assert.Equal(t, tc.seconds, seconds, tc.message)
	}
}
