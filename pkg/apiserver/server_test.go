package apiserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nightgate/nightgate/pkg/auth"
	"github.com/nightgate/nightgate/pkg/config"
	"github.com/nightgate/nightgate/pkg/eventbus"
	"github.com/nightgate/nightgate/pkg/model"
	"github.com/nightgate/nightgate/pkg/store"
)

const testSecret = "test-secret"

type healthResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type listResponse struct {
	Runs []struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		Admitted int    `json:"admitted"`
	} `json:"runs"`
	Total int64 `json:"total"`
}

type fakeRuns struct {
	runs      []model.Run
	decisions map[uuid.UUID][]model.Decision
	filter    store.RunFilter
}

func (f *fakeRuns) List(_ context.Context, filter store.RunFilter) ([]model.Run, int64, error) {
	f.filter = filter
	return f.runs, int64(len(f.runs)), nil
}

func (f *fakeRuns) GetByID(_ context.Context, id uuid.UUID) (*model.Run, error) {
	for i := range f.runs {
		if f.runs[i].ID == id {
			return &f.runs[i], nil
		}
	}
	return nil, store.ErrRunNotFound
}

func (f *fakeRuns) ListDecisions(_ context.Context, runID uuid.UUID, limit, offset int) ([]model.Decision, error) {
	return f.decisions[runID], nil
}

type fakeSubscriber struct {
	events []*eventbus.Event
}

func (f *fakeSubscriber) Subscribe(_ context.Context, _ ...string) <-chan *eventbus.Event {
	ch := make(chan *eventbus.Event, len(f.events))
	for _, e := range f.events {
		ch <- e
	}
	close(ch)
	return ch
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = testSecret
	cfg.Auth.TokenTTL = time.Hour
	return cfg
}

func bearer(t *testing.T, scopes ...string) string {
	t.Helper()
	token, err := auth.NewTokenManager([]byte(testSecret), time.Hour).Generate("tester", scopes...)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return "Bearer " + token
}

func serve(server *Server, method, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	recorder := httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)
	return recorder
}

func TestHealthEndpoint(t *testing.T) {
	server := NewServer(nil, nil, &config.Config{}, zap.NewNop())

	recorder := serve(server, http.MethodGet, "/health", "")

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}

	var response healthResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Status != "ok" {
		t.Fatalf("expected status ok, got %q", response.Status)
	}
	if recorder.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a request id header")
	}
}

func TestAPIAuthRequired(t *testing.T) {
	server := NewServer(nil, nil, &config.Config{}, zap.NewNop())

	recorder := serve(server, http.MethodGet, "/api/v1/runs", "")

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, recorder.Code)
	}

	var response errorResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Error != "missing authorization" {
		t.Fatalf("expected missing authorization error, got %q", response.Error)
	}
}

func TestAPIRejectsForgedToken(t *testing.T) {
	server := NewServer(&fakeRuns{}, nil, testConfig(), zap.NewNop())

	forged, err := auth.NewTokenManager([]byte("wrong"), time.Hour).Generate("mallory")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	recorder := serve(server, http.MethodGet, "/api/v1/runs", "Bearer "+forged)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, recorder.Code)
	}
}

func TestAPIRequiresScope(t *testing.T) {
	server := NewServer(&fakeRuns{}, nil, testConfig(), zap.NewNop())

	recorder := serve(server, http.MethodGet, "/api/v1/runs", bearer(t, auth.ScopeEventsRead))

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, recorder.Code)
	}
}

func TestListRuns(t *testing.T) {
	runs := &fakeRuns{runs: []model.Run{
		{ID: uuid.New(), Status: model.RunCompleted, Admitted: 1000},
		{ID: uuid.New(), Status: model.RunFailed},
	}}
	server := NewServer(runs, nil, testConfig(), zap.NewNop())

	recorder := serve(server, http.MethodGet, "/api/v1/runs?status=completed&limit=5&offset=2", bearer(t))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, recorder.Code, recorder.Body.String())
	}
	var response listResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Total != 2 || len(response.Runs) != 2 {
		t.Fatalf("expected 2 runs, got total=%d len=%d", response.Total, len(response.Runs))
	}
	if response.Runs[0].Status != "COMPLETED" || response.Runs[0].Admitted != 1000 {
		t.Fatalf("unexpected first run %+v", response.Runs[0])
	}
	if runs.filter.Limit != 5 || runs.filter.Offset != 2 {
		t.Fatalf("expected limit 5 offset 2, got %+v", runs.filter)
	}
	if runs.filter.Status == nil || *runs.filter.Status != model.RunCompleted {
		t.Fatalf("expected status filter COMPLETED, got %v", runs.filter.Status)
	}
}

func TestListRunsInvalidStatus(t *testing.T) {
	server := NewServer(&fakeRuns{}, nil, testConfig(), zap.NewNop())

	recorder := serve(server, http.MethodGet, "/api/v1/runs?status=paused", bearer(t))

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}

func TestGetRun(t *testing.T) {
	id := uuid.New()
	runs := &fakeRuns{
		runs: []model.Run{{
			ID:            id,
			Status:        model.RunCompleted,
			NeedRemaining: model.JSONB{"young": 0},
		}},
		decisions: map[uuid.UUID][]model.Decision{
			id: {{RunID: id, CandidateIndex: 0, Accept: true, Reason: model.ReasonStandardHelp}},
		},
	}
	server := NewServer(runs, nil, testConfig(), zap.NewNop())

	recorder := serve(server, http.MethodGet, "/api/v1/runs/"+id.String(), bearer(t))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), `"need_remaining":{"young":0}`) {
		t.Fatalf("expected need_remaining in body, got %s", recorder.Body.String())
	}

	recorder = serve(server, http.MethodGet, "/api/v1/runs/"+id.String()+"/decisions", bearer(t))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	var decisions []struct {
		PersonIndex int    `json:"person_index"`
		Accept      bool   `json:"accept"`
		Reason      string `json:"reason"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &decisions); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(decisions) != 1 || !decisions[0].Accept || decisions[0].Reason != "standard_help" {
		t.Fatalf("unexpected decisions %+v", decisions)
	}
}

func TestGetRunErrors(t *testing.T) {
	server := NewServer(&fakeRuns{}, nil, testConfig(), zap.NewNop())

	recorder := serve(server, http.MethodGet, "/api/v1/runs/not-a-uuid", bearer(t))
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, recorder.Code)
	}

	recorder = serve(server, http.MethodGet, "/api/v1/runs/"+uuid.NewString(), bearer(t))
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, recorder.Code)
	}
}

func TestRunsUnavailableWithoutStore(t *testing.T) {
	server := NewServer(nil, nil, testConfig(), zap.NewNop())

	recorder := serve(server, http.MethodGet, "/api/v1/runs", bearer(t))

	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, recorder.Code)
	}
}

func TestEventStream(t *testing.T) {
	event, err := eventbus.NewEvent(eventbus.TypeRunFinished, eventbus.RunEvent{RunID: "r-1", Status: "COMPLETED"})
	if err != nil {
		t.Fatalf("failed to build event: %v", err)
	}
	server := NewServer(nil, &fakeSubscriber{events: []*eventbus.Event{&event}}, testConfig(), zap.NewNop())

	recorder := serve(server, http.MethodGet, "/api/v1/events", bearer(t))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	body := recorder.Body.String()
	if !strings.Contains(body, "event:"+eventbus.TypeRunFinished) {
		t.Fatalf("expected %s event in stream, got %q", eventbus.TypeRunFinished, body)
	}
}
