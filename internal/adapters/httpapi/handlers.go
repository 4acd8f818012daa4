package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/example/appraise/internal/core/tasktype"
	"github.com/example/appraise/internal/errs"
	"github.com/example/appraise/internal/ports/primary"
)

// Submission fields that are not scores.
const (
	fieldTaskID         = "task_id"
	fieldItemID         = "item_id"
	fieldStartTimestamp = "start_timestamp"
	fieldEndTimestamp   = "end_timestamp"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// NextTask returns the caller's next open task for the slug's task type.
func (s *Server) NextTask(c echo.Context) error {
	h, err := tasktype.LookupSlug(c.Param("slug"))
	if err != nil {
		return err
	}
	a := annotatorFrom(c)
	task, err := s.annotation.NextTask(c.Request().Context(), a.Username, h.Type())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

// Submit records the caller's result for a task.
func (s *Server) Submit(c echo.Context) error {
	h, err := tasktype.LookupSlug(c.Param("slug"))
	if err != nil {
		return err
	}
	values, err := readValues(c)
	if err != nil {
		return err
	}

	sub := primary.Submission{
		TaskID:         values[fieldTaskID],
		ItemID:         values[fieldItemID],
		StartTimestamp: values[fieldStartTimestamp],
		EndTimestamp:   values[fieldEndTimestamp],
		Values:         make(map[string]string, len(values)),
	}
	for k, v := range values {
		switch k {
		case fieldTaskID, fieldItemID, fieldStartTimestamp, fieldEndTimestamp:
		default:
			sub.Values[k] = v
		}
	}

	a := annotatorFrom(c)
	receipt, err := s.annotation.Submit(c.Request().Context(), a.Username, h.Type(), sub)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, receipt)
}

// readValues flattens a JSON object or a form body into strings.
func readValues(c echo.Context) (map[string]string, error) {
	req := c.Request()
	if strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		dec := json.NewDecoder(req.Body)
		dec.UseNumber()
		var raw map[string]any
		if err := dec.Decode(&raw); err != nil {
			return nil, errs.New(errs.ErrInvalidSubmission, "submit", "malformed JSON body: %v", err)
		}
		values := make(map[string]string, len(raw))
		for k, v := range raw {
			switch v := v.(type) {
			case nil:
			case string:
				values[k] = v
			case json.Number:
				values[k] = v.String()
			default:
				values[k] = fmt.Sprint(v)
			}
		}
		return values, nil
	}

	form, err := c.FormParams()
	if err != nil {
		return nil, errs.New(errs.ErrInvalidSubmission, "submit", "malformed form body: %v", err)
	}
	values := make(map[string]string, len(form))
	for k := range form {
		values[k] = form.Get(k)
	}
	return values, nil
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.ErrInvalidSubmission, errs.ErrNoEligibleTask, errs.ErrValidation:
		return http.StatusBadRequest
	case errs.ErrUnauthorized:
		return http.StatusUnauthorized
	case errs.ErrNotFound, errs.ErrUnsupportedTaskType:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
		if err := c.JSON(he.Code, ErrorResponse{Error: strings.ToLower(http.StatusText(he.Code)), Message: msg, Code: he.Code}); err != nil {
			s.logger.Warn("failed to write error response", zap.Error(err))
		}
		return
	}

	code := statusFor(err)
	kind := "internal error"
	if k := errs.KindOf(err); k != nil {
		kind = k.Error()
	}
	msg := err.Error()
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.Request().URL.Path), zap.Error(err))
		msg = http.StatusText(code)
	}
	if err := c.JSON(code, ErrorResponse{Error: kind, Message: msg, Code: code}); err != nil {
		s.logger.Warn("failed to write error response", zap.Error(err))
	}
}
