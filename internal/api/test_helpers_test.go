package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Keyring-Network/keyring-notes/internal/assistant"
	"github.com/Keyring-Network/keyring-notes/internal/config"
	"github.com/Keyring-Network/keyring-notes/internal/events"
	"github.com/Keyring-Network/keyring-notes/internal/store"
)

var fixedNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStore) AddFragment(ctx context.Context, fragment store.Fragment) error {
	args := m.Called(ctx, fragment)
	return args.Error(0)
}

func (m *MockStore) AddResource(ctx context.Context, resource store.Resource) error {
	args := m.Called(ctx, resource)
	return args.Error(0)
}

func (m *MockStore) SearchFragments(ctx context.Context, ownerID string, keywords []string, limit int) ([]store.Fragment, error) {
	args := m.Called(ctx, ownerID, keywords, limit)
	var result []store.Fragment
	if value := args.Get(0); value != nil {
		result = value.([]store.Fragment)
	}
	return result, args.Error(1)
}

func (m *MockStore) SearchResources(ctx context.Context, ownerID string, keywords []string) ([]store.Resource, error) {
	args := m.Called(ctx, ownerID, keywords)
	var result []store.Resource
	if value := args.Get(0); value != nil {
		result = value.([]store.Resource)
	}
	return result, args.Error(1)
}

func (m *MockStore) ListEvents(ctx context.Context, ownerID string, window store.EventWindow) ([]store.CalendarEvent, error) {
	args := m.Called(ctx, ownerID, window)
	var result []store.CalendarEvent
	if value := args.Get(0); value != nil {
		result = value.([]store.CalendarEvent)
	}
	return result, args.Error(1)
}

func (m *MockStore) CreateEvent(ctx context.Context, ownerID string, event store.CalendarEvent) (store.CalendarEvent, error) {
	args := m.Called(ctx, ownerID, event)
	return args.Get(0).(store.CalendarEvent), args.Error(1)
}

func (m *MockStore) ListTags(ctx context.Context, ownerID string) ([]store.UserTag, error) {
	args := m.Called(ctx, ownerID)
	var result []store.UserTag
	if value := args.Get(0); value != nil {
		result = value.([]store.UserTag)
	}
	return result, args.Error(1)
}

func (m *MockStore) CreateTag(ctx context.Context, ownerID string, tag store.UserTag) (store.UserTag, error) {
	args := m.Called(ctx, ownerID, tag)
	return args.Get(0).(store.UserTag), args.Error(1)
}

type MockBroker struct {
	mock.Mock
}

func (m *MockBroker) Subscribe(ctx context.Context, ownerID string) <-chan events.AssistantEvent {
	args := m.Called(ctx, ownerID)
	if value := args.Get(0); value != nil {
		return value.(chan events.AssistantEvent)
	}
	return nil
}

type MockAssistant struct {
	mock.Mock
}

func (m *MockAssistant) AnswerQuestion(ctx context.Context, ownerID string, input assistant.AskInput) (assistant.Answer, error) {
	args := m.Called(ctx, ownerID, input)
	return args.Get(0).(assistant.Answer), args.Error(1)
}

type MockPlanner struct {
	mock.Mock
}

func (m *MockPlanner) PlanningTurn(ctx context.Context, ownerID string, input assistant.PlanInput) (assistant.PlanningResult, error) {
	args := m.Called(ctx, ownerID, input)
	return args.Get(0).(assistant.PlanningResult), args.Error(1)
}

func (m *MockPlanner) ConfirmTags(ctx context.Context, ownerID string, input assistant.ConfirmInput) (assistant.PlanningResult, error) {
	args := m.Called(ctx, ownerID, input)
	return args.Get(0).(assistant.PlanningResult), args.Error(1)
}

func newTestServer(t *testing.T, st store.Store, broker Broker, assistant Assistant, planner Planner, cfg config.Config) *httptest.Server {
	t.Helper()
	server := NewServer(st, broker, assistant, planner, cfg, nil)
	server.now = func() time.Time { return fixedNow }
	return httptest.NewServer(server.Router())
}

func doJSON(t *testing.T, method, url, owner, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req.Header.Set(ownerHeader, owner)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

type noFlushWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (w *noFlushWriter) Header() http.Header {
	if w.header == nil {
		w.header = make(http.Header)
	}
	return w.header
}

func (w *noFlushWriter) WriteHeader(status int) {
	w.status = status
}

func (w *noFlushWriter) Write(data []byte) (int, error) {
	return w.body.Write(data)
}
