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

	"github.com/shellmind/shellmind-api/core"
	"github.com/shellmind/shellmind-api/engine"
	"github.com/shellmind/shellmind-api/githubauth"
	"github.com/shellmind/shellmind-api/provider"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeDispatcher returns a canned completion or error and records the
// requests it sees.
type fakeDispatcher struct {
	response *core.CompletionResponse
	err      error
	requests []*engine.Request
}

func (d *fakeDispatcher) Dispatch(_ context.Context, req *engine.Request) (*core.CompletionResponse, error) {
	d.requests = append(d.requests, req)
	if d.err != nil {
		return nil, d.err
	}
	resp := *d.response
	if resp.ConversationID == "" {
		resp.ConversationID = req.ConversationID
		if resp.ConversationID == "" {
			resp.ConversationID = "generated-id"
		}
	}
	return &resp, nil
}

// fakeGitHub satisfies DeviceFlow without the network.
type fakeGitHub struct {
	code   *githubauth.DeviceCode
	result *githubauth.TokenResult
	err    error
}

func (g *fakeGitHub) RequestDeviceCode(context.Context) (*githubauth.DeviceCode, error) {
	return g.code, g.err
}

func (g *fakeGitHub) PollToken(context.Context, string) (*githubauth.TokenResult, error) {
	return g.result, g.err
}

func completion(text string) *core.CompletionResponse {
	return &core.CompletionResponse{
		ID:      "cmpl-1",
		Object:  "chat.completion",
		Model:   "test-model",
		Choices: []core.Choice{{Message: core.ChatMessage{Role: core.RoleAssistant, Content: text}}},
	}
}

func doRequest(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestCompletionMissingPrompt(t *testing.T) {
	router := New(&fakeDispatcher{response: completion("ok")}, nil).Router()

	w := doRequest(t, router, http.MethodPost, "/v1/completions", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if body := decodeBody(t, w); body["error"] != "Prompt is required" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestCompletionPromptFromMessages(t *testing.T) {
	d := &fakeDispatcher{response: completion("ok")}
	router := New(d, nil).Router()

	w := doRequest(t, router, http.MethodPost, "/v1/completions",
		`{"messages":[{"role":"user","content":"from messages"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if d.requests[0].Input != "from messages" {
		t.Errorf("input = %q", d.requests[0].Input)
	}
}

func TestCompletionPromptWinsOverMessages(t *testing.T) {
	d := &fakeDispatcher{response: completion("ok")}
	router := New(d, nil).Router()

	doRequest(t, router, http.MethodPost, "/v1/completions",
		`{"prompt":"direct","messages":[{"role":"user","content":"ignored"}]}`)
	if d.requests[0].Input != "direct" {
		t.Errorf("input = %q, want direct", d.requests[0].Input)
	}
}

func TestCompletionSuccess(t *testing.T) {
	d := &fakeDispatcher{response: completion("answer text")}
	router := New(d, nil).Router()

	w := doRequest(t, router, http.MethodPost, "/v1/completions",
		`{"prompt":"a question","conversationId":"conv-9","mode":"chat"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["conversationId"] != "conv-9" {
		t.Errorf("conversationId = %v", body["conversationId"])
	}
	if d.requests[0].Mode != core.ModeChat {
		t.Errorf("mode = %v, want chat", d.requests[0].Mode)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS header missing on success response")
	}
}

func TestCompletionGeneratedConversationID(t *testing.T) {
	d := &fakeDispatcher{response: completion("hi")}
	router := New(d, nil).Router()

	w := doRequest(t, router, http.MethodPost, "/v1/completions", `{"prompt":"hello"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body := decodeBody(t, w); body["conversationId"] == "" || body["conversationId"] == nil {
		t.Error("conversationId missing from response")
	}
}

func TestCompletionTimeout(t *testing.T) {
	router := New(&fakeDispatcher{err: engine.ErrTimeout}, nil).Router()

	w := doRequest(t, router, http.MethodPost, "/v1/completions", `{"prompt":"slow"}`)
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", w.Code)
	}
	if body := decodeBody(t, w); body["error"] != "Request timeout" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestCompletionUpstreamFailure(t *testing.T) {
	upstream := &provider.UpstreamError{Provider: "hyperbolic", StatusCode: 404, Body: "model not found"}
	router := New(&fakeDispatcher{err: upstream}, nil).Router()

	w := doRequest(t, router, http.MethodPost, "/v1/completions", `{"prompt":"hi"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}

	body := decodeBody(t, w)
	if body["error"] != "Failed to get response from provider" {
		t.Errorf("error = %v", body["error"])
	}
	details, _ := body["details"].(string)
	if !strings.Contains(details, "404") {
		t.Errorf("details %q does not mention the upstream status", details)
	}
}

func TestCompletionGenericFailure(t *testing.T) {
	router := New(&fakeDispatcher{err: errors.New("connection refused")}, nil).Router()

	w := doRequest(t, router, http.MethodPost, "/v1/completions", `{"prompt":"hi"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	body := decodeBody(t, w)
	if details, _ := body["details"].(string); !strings.Contains(details, "connection refused") {
		t.Errorf("details = %q", details)
	}
}

func TestCompletionMethodNotAllowed(t *testing.T) {
	router := New(&fakeDispatcher{response: completion("ok")}, nil).Router()

	w := doRequest(t, router, http.MethodGet, "/v1/completions", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	router := New(&fakeDispatcher{response: completion("ok")}, nil).Router()

	w := doRequest(t, router, http.MethodOptions, "/v1/completions", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Access-Control-Allow-Origin missing")
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "POST") {
		t.Errorf("Allow-Methods = %q", w.Header().Get("Access-Control-Allow-Methods"))
	}
}

func TestHealthz(t *testing.T) {
	router := New(&fakeDispatcher{response: completion("ok")}, nil).Router()

	w := doRequest(t, router, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestDeviceCodeEndpoint(t *testing.T) {
	gh := &fakeGitHub{code: &githubauth.DeviceCode{
		DeviceCode:      "dc-1",
		UserCode:        "ABCD-1234",
		VerificationURI: "https://github.com/login/device",
		ExpiresIn:       900,
		Interval:        5,
	}}
	router := New(&fakeDispatcher{response: completion("ok")}, gh).Router()

	w := doRequest(t, router, http.MethodPost, "/v1/auth/device/code", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["user_code"] != "ABCD-1234" {
		t.Errorf("user_code = %v", body["user_code"])
	}
}

func TestDeviceCodeUnconfigured(t *testing.T) {
	router := New(&fakeDispatcher{response: completion("ok")}, nil).Router()

	w := doRequest(t, router, http.MethodPost, "/v1/auth/device/code", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestDeviceTokenPending(t *testing.T) {
	gh := &fakeGitHub{result: &githubauth.TokenResult{Pending: true}}
	router := New(&fakeDispatcher{response: completion("ok")}, gh).Router()

	w := doRequest(t, router, http.MethodPost, "/v1/auth/device/token", `{"device_code":"dc-1"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	if body := decodeBody(t, w); body["status"] != "pending" {
		t.Errorf("body = %v", body)
	}
}

func TestDeviceTokenIssued(t *testing.T) {
	gh := &fakeGitHub{result: &githubauth.TokenResult{AccessToken: "gho_abc"}}
	router := New(&fakeDispatcher{response: completion("ok")}, gh).Router()

	w := doRequest(t, router, http.MethodPost, "/v1/auth/device/token", `{"device_code":"dc-1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if body := decodeBody(t, w); body["token"] != "gho_abc" {
		t.Errorf("body = %v", body)
	}
}

func TestDeviceTokenMissingCode(t *testing.T) {
	gh := &fakeGitHub{result: &githubauth.TokenResult{Pending: true}}
	router := New(&fakeDispatcher{response: completion("ok")}, gh).Router()

	w := doRequest(t, router, http.MethodPost, "/v1/auth/device/token", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestDeviceTokenDenied(t *testing.T) {
	gh := &fakeGitHub{result: &githubauth.TokenResult{ErrorCode: "access_denied"}}
	router := New(&fakeDispatcher{response: completion("ok")}, gh).Router()

	w := doRequest(t, router, http.MethodPost, "/v1/auth/device/token", `{"device_code":"dc-1"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if body := decodeBody(t, w); body["error"] != "access_denied" {
		t.Errorf("body = %v", body)
	}
}
