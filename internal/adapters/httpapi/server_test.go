package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/appraise/internal/core/tasktype"
	"github.com/example/appraise/internal/errs"
	"github.com/example/appraise/internal/metrics"
	"github.com/example/appraise/internal/ports/primary"
)

// mockAnnotationService implements primary.AnnotationService for testing.
type mockAnnotationService struct {
	password   string
	authCalls  int
	task       *primary.TaskContext
	nextErr    error
	submitErr  error
	submitted  []primary.Submission
	submitType tasktype.Type
	panicOn    string
}

func (m *mockAnnotationService) Authenticate(ctx context.Context, username, password string) (*primary.Annotator, error) {
	m.authCalls++
	if password != m.password {
		return nil, errs.New(errs.ErrUnauthorized, "authenticate", "bad credentials")
	}
	return &primary.Annotator{Username: username}, nil
}

func (m *mockAnnotationService) NextTask(ctx context.Context, username string, taskType tasktype.Type) (*primary.TaskContext, error) {
	if username == m.panicOn {
		panic("boom")
	}
	if m.nextErr != nil {
		return nil, m.nextErr
	}
	return m.task, nil
}

func (m *mockAnnotationService) Submit(ctx context.Context, username string, taskType tasktype.Type, sub primary.Submission) (*primary.SubmitReceipt, error) {
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	m.submitted = append(m.submitted, sub)
	m.submitType = taskType
	return &primary.SubmitReceipt{TaskID: sub.TaskID, ItemID: sub.ItemID, Scores: tasktype.Payload{"score": 99}}, nil
}

func newTestServer(t *testing.T, svc *mockAnnotationService) (*Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := metrics.NewCampaignMetrics(reg)
	require.NoError(t, err)
	return New(svc, WithMetrics(m, reg)), reg
}

func do(s *Server, method, target, body, contentType string, auth bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", contentType)
	} else {
		req = httptest.NewRequest(method, target, http.NoBody)
	}
	if auth {
		req.SetBasicAuth("engdeu0101", "secret")
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestNextTask(t *testing.T) {
	svc := &mockAnnotationService{
		password: "secret",
		task: &primary.TaskContext{
			TaskID: "t-1", ItemID: "1", TaskType: "Direct", Campaign: "wmt-demo",
			Fields: map[string]string{"source_text": "Hello"},
		},
	}
	s, _ := newTestServer(t, svc)

	rec := do(s, http.MethodGet, "/direct-assessment/", "", "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var task primary.TaskContext
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.Equal(t, "t-1", task.TaskID)
	assert.Equal(t, "Hello", task.Fields["source_text"])

	// Without the trailing slash too.
	rec = do(s, http.MethodGet, "/direct-assessment", "", "", true)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		target string
		auth   bool
		err    error
		code   int
	}{
		{"no task", "/direct-assessment/", true, errs.New(errs.ErrNoEligibleTask, "next task", "none"), http.StatusBadRequest},
		{"unknown slug", "/ranking/", true, nil, http.StatusNotFound},
		{"missing user", "/direct-assessment/", true, errs.New(errs.ErrNotFound, "sqlite", "user x not found"), http.StatusNotFound},
		{"store failure", "/direct-assessment/", true, errors.New("disk I/O error"), http.StatusInternalServerError},
		{"no auth", "/direct-assessment/", false, nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAnnotationService{password: "secret", nextErr: tt.err, task: &primary.TaskContext{}}
			s, _ := newTestServer(t, svc)

			rec := do(s, http.MethodGet, tt.target, "", "", tt.auth)
			assert.Equal(t, tt.code, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
			assert.NotContains(t, resp.Message, "disk I/O")
		})
	}
}

func TestWrongPasswordIsUnauthorized(t *testing.T) {
	svc := &mockAnnotationService{password: "other"}
	s, _ := newTestServer(t, svc)

	rec := do(s, http.MethodGet, "/direct-assessment/", "", "", true)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
}

func TestAuthIsCached(t *testing.T) {
	svc := &mockAnnotationService{password: "secret", task: &primary.TaskContext{}}
	s, _ := newTestServer(t, svc)

	for i := 0; i < 3; i++ {
		rec := do(s, http.MethodGet, "/direct-assessment/", "", "", true)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 1, svc.authCalls)
}

func TestSubmit_FormAndJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
	}{
		{
			"form",
			url.Values{
				"task_id": {"t-1"}, "item_id": {"1"}, "score": {"99"},
				"start_timestamp": {"1700000000"}, "end_timestamp": {"1700000010"},
			}.Encode(),
			"application/x-www-form-urlencoded",
		},
		{
			"json",
			`{"task_id": "t-1", "item_id": "1", "score": 99, "start_timestamp": 1700000000, "end_timestamp": "1700000010"}`,
			"application/json",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAnnotationService{password: "secret"}
			s, _ := newTestServer(t, svc)

			rec := do(s, http.MethodPost, "/direct-assessment/", tt.body, tt.contentType, true)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			require.Len(t, svc.submitted, 1)
			sub := svc.submitted[0]
			assert.Equal(t, "t-1", sub.TaskID)
			assert.Equal(t, "1", sub.ItemID)
			assert.Equal(t, "1700000000", sub.StartTimestamp)
			assert.Equal(t, "1700000010", sub.EndTimestamp)
			assert.Equal(t, map[string]string{"score": "99"}, sub.Values)
			assert.Equal(t, tasktype.Direct, svc.submitType)
		})
	}
}

func TestSubmit_Errors(t *testing.T) {
	svc := &mockAnnotationService{password: "secret", submitErr: errs.New(errs.ErrInvalidSubmission, "direct", "score 101 out of range")}
	s, _ := newTestServer(t, svc)

	rec := do(s, http.MethodPost, "/direct-assessment/", `{"score": 101}`, "application/json", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "out of range")

	rec = do(s, http.MethodPost, "/direct-assessment/", `{not json`, "application/json", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPanicIsRecovered(t *testing.T) {
	svc := &mockAnnotationService{password: "secret", panicOn: "engdeu0101"}
	s, _ := newTestServer(t, svc)

	rec := do(s, http.MethodGet, "/direct-assessment/", "", "", true)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// The server keeps serving.
	rec = do(s, http.MethodGet, "/healthz", "", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	s := New(&mockAnnotationService{}, WithHealthCheck(func(context.Context) error {
		return errors.New("database is locked")
	}))

	rec := do(s, http.MethodGet, "/healthz", "", "", false)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unavailable")
}

func TestMetricsEndpoint(t *testing.T) {
	svc := &mockAnnotationService{password: "secret", task: &primary.TaskContext{}}
	s, _ := newTestServer(t, svc)

	do(s, http.MethodGet, "/direct-assessment/", "", "", true)
	rec := do(s, http.MethodGet, "/metrics", "", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/:slug/"`)
}
