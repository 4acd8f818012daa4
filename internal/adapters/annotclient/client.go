// Package annotclient drives the task endpoints the way an annotator's
// browser would: fetch the next task, then post a score for it.
package annotclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/appraise/internal/core/tasktype"
	"github.com/example/appraise/internal/errs"
	"github.com/example/appraise/internal/ports/primary"
)

// DefaultScore is posted for every score field.
const DefaultScore = 99

// Client talks to a task endpoint server.
type Client struct {
	baseURL string
	http    *http.Client
	now     func() time.Time
}

// New creates a client for the server at baseURL.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		now:     time.Now,
	}
}

// NewInProcess creates a client that serves its requests with h directly,
// without opening a socket.
func NewInProcess(h http.Handler) *Client {
	return New("http://localhost", &http.Client{Transport: handlerTransport{h}})
}

type handlerTransport struct {
	h http.Handler
}

func (t handlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	t.h.ServeHTTP(rec, req)
	return rec.Result(), nil
}

// Result is one completed annotation.
type Result struct {
	URL     string
	Task    *primary.TaskContext
	Form    url.Values
	Receipt *primary.SubmitReceipt
}

// MakeAnnotation fetches the annotator's next task of taskType and submits
// DefaultScore for it, timed as five minutes of work ending now.
func (c *Client) MakeAnnotation(ctx context.Context, username, password string, taskType tasktype.Type) (*Result, error) {
	h, err := tasktype.Lookup(string(taskType))
	if err != nil {
		return nil, err
	}
	res := &Result{URL: c.baseURL + "/" + h.Slug() + "/"}

	var task primary.TaskContext
	if err := c.do(ctx, http.MethodGet, res.URL, username, password, nil, &task); err != nil {
		return nil, err
	}
	res.Task = &task

	end := c.now()
	start := end.Add(-5 * time.Minute)
	form := url.Values{
		"task_id":         {task.TaskID},
		"item_id":         {task.ItemID},
		"start_timestamp": {unixSeconds(start)},
		"end_timestamp":   {unixSeconds(end)},
	}
	for _, name := range h.ScoreFields() {
		form.Set(name, strconv.Itoa(DefaultScore))
	}
	res.Form = form

	var receipt primary.SubmitReceipt
	if err := c.do(ctx, http.MethodPost, res.URL, username, password, form, &receipt); err != nil {
		return nil, err
	}
	res.Receipt = &receipt
	return res, nil
}

func (c *Client) do(ctx context.Context, method, target, username, password string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(username, password)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return responseError(method, resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorBody mirrors the server's error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var kindsByName = func() map[string]error {
	m := make(map[string]error)
	for _, k := range []error{
		errs.ErrNoEligibleTask, errs.ErrInvalidSubmission, errs.ErrUnsupportedTaskType,
		errs.ErrNotFound, errs.ErrUnauthorized, errs.ErrValidation,
	} {
		m[k.Error()] = k
	}
	return m
}()

// responseError restores the server's error kind so callers can use errors.Is.
func responseError(method string, code int, data []byte) error {
	var body errorBody
	_ = json.Unmarshal(data, &body)
	msg := body.Message
	if msg == "" {
		msg = http.StatusText(code)
	}
	kind, ok := kindsByName[body.Error]
	if !ok {
		switch code {
		case http.StatusUnauthorized:
			kind = errs.ErrUnauthorized
		case http.StatusNotFound:
			kind = errs.ErrNotFound
		default:
			return fmt.Errorf("%s returned %d: %s", method, code, msg)
		}
	}
	return errs.New(kind, strings.ToLower(method)+" task", "status %d: %s", code, msg)
}

func unixSeconds(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixNano())/1e9, 'f', 6, 64)
}

// ParseLogin splits "user:password" on any of " ,:/".
func ParseLogin(arg string) (username, password string, err error) {
	parts := strings.FieldsFunc(arg, func(r rune) bool {
		return strings.ContainsRune(" ,:/", r)
	})
	if len(parts) != 2 {
		return "", "", fmt.Errorf("expected user and password separated by one of \" ,:/\", got %q", arg)
	}
	return parts[0], parts[1], nil
}
