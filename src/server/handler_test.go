package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Protocol-Lattice/quizbot/src/pipeline"
)

func init() { gin.SetMode(gin.TestMode) }

type handlerFunc func(ctx context.Context, rawURL string, reply pipeline.Replier) error

func (h handlerFunc) Handle(ctx context.Context, rawURL string, reply pipeline.Replier) error {
	return h(ctx, rawURL, reply)
}

func post(t *testing.T, h Handler, body string) (*httptest.ResponseRecorder, map[string]string) {
	t.Helper()
	r := NewRouter(h, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/solve", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return w, out
}

func TestSolveReturnsAnswer(t *testing.T) {
	var gotURL string
	h := handlerFunc(func(ctx context.Context, rawURL string, reply pipeline.Replier) error {
		gotURL = rawURL
		_ = reply.Reply(ctx, pipeline.MsgWaiting)
		return reply.Reply(ctx, pipeline.SuccessPrefix+"1. Rome")
	})
	w, out := post(t, h, `{"url":" https://forms.example "}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if out["answer"] != "1. Rome" {
		t.Fatalf("answer = %q", out["answer"])
	}
	if gotURL != "https://forms.example" {
		t.Fatalf("url = %q", gotURL)
	}
}

func TestSolveRejectsMissingURL(t *testing.T) {
	h := handlerFunc(func(context.Context, string, pipeline.Replier) error {
		t.Error("pipeline must not run")
		return nil
	})
	for _, body := range []string{`{}`, `{"url":"  "}`, `not json`} {
		w, _ := post(t, h, body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d", body, w.Code)
		}
	}
}

func TestSolveMapsStageErrors(t *testing.T) {
	cases := []struct {
		stage  pipeline.Stage
		msg    string
		status int
	}{
		{pipeline.StageFetch, pipeline.MsgFetchFailed, http.StatusBadGateway},
		{pipeline.StageExtract, pipeline.MsgNoQuestions, http.StatusUnprocessableEntity},
		{pipeline.StageFormat, pipeline.MsgEmptyPrompt, http.StatusUnprocessableEntity},
		{pipeline.StageGenerate, pipeline.MsgGenerationFailed, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(string(tc.stage), func(t *testing.T) {
			h := handlerFunc(func(ctx context.Context, _ string, reply pipeline.Replier) error {
				_ = reply.Reply(ctx, tc.msg)
				return &pipeline.StageError{Stage: tc.stage, Err: errors.New("boom")}
			})
			w, out := post(t, h, `{"url":"https://forms.example"}`)
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d", w.Code, tc.status)
			}
			if out["error"] != tc.msg {
				t.Fatalf("error = %q, want %q", out["error"], tc.msg)
			}
		})
	}
}

func TestStatusForUnknownError(t *testing.T) {
	if got := statusFor(errors.New("x")); got != http.StatusInternalServerError {
		t.Fatalf("statusFor = %d", got)
	}
}

func TestHealthz(t *testing.T) {
	r := NewRouter(handlerFunc(func(context.Context, string, pipeline.Replier) error { return nil }), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ok") {
		t.Fatalf("healthz = %d %s", w.Code, w.Body.String())
	}
}
