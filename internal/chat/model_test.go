package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeCompleter struct {
	result CompletionResult
	err    error
	calls  int
	last   CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req CompletionRequest) (CompletionResult, error) {
	f.calls++
	f.last = req
	return f.result, f.err
}

func TestModelRespondBuildsRequest(t *testing.T) {
	fc := &fakeCompleter{result: CompletionResult{Text: "It is about owls."}}
	m := NewModelResponder(fc)

	got, err := m.Respond(context.Background(), "What is it about?", "Owls hunt at night.", "sk-test", "")
	if err != nil {
		t.Fatalf("Respond error = %v", err)
	}
	if got != "It is about owls." {
		t.Fatalf("Respond = %q", got)
	}
	if fc.last.Model != DefaultModel || fc.last.MaxTokens != 1000 || fc.last.Temperature != 0.3 {
		t.Fatalf("unexpected request %+v", fc.last)
	}
	if !strings.Contains(fc.last.UserPrompt, `"What is it about?"`) || !strings.Contains(fc.last.UserPrompt, "Owls hunt at night.") {
		t.Fatalf("user prompt missing question or text: %q", fc.last.UserPrompt)
	}
	if !strings.HasPrefix(fc.last.SystemPrompt, "You are an AI assistant that helps users understand PDF documents.") {
		t.Fatalf("system prompt = %q", fc.last.SystemPrompt)
	}
}

func TestModelRespondTruncates(t *testing.T) {
	fc := &fakeCompleter{result: CompletionResult{Text: "ok"}}
	m := NewModelResponder(fc)
	long := strings.Repeat("é", maxContentRunes+50)

	if _, err := m.Respond(context.Background(), "q", long, "sk", "gpt-4"); err != nil {
		t.Fatalf("Respond error = %v", err)
	}
	if !strings.Contains(fc.last.UserPrompt, strings.Repeat("é", maxContentRunes)+truncatedMarker) {
		t.Fatal("expected truncated content with marker")
	}
	if strings.Contains(fc.last.UserPrompt, strings.Repeat("é", maxContentRunes+1)) {
		t.Fatal("content not truncated")
	}
	if fc.last.Model != "gpt-4" {
		t.Fatalf("model = %q", fc.last.Model)
	}
}

func TestTruncateLeavesShortText(t *testing.T) {
	s := strings.Repeat("a", maxContentRunes)
	if truncate(s) != s {
		t.Fatal("text at the limit must not be truncated")
	}
}

func TestModelRespondEmptyCompletion(t *testing.T) {
	m := NewModelResponder(&fakeCompleter{result: CompletionResult{Text: "  "}})
	got, err := m.Respond(context.Background(), "q", "t", "sk", "")
	if err != nil {
		t.Fatalf("Respond error = %v", err)
	}
	if got != emptyCompletion {
		t.Fatalf("Respond = %q, want fallback", got)
	}
}

func TestModelRespondMissingKey(t *testing.T) {
	fc := &fakeCompleter{}
	m := NewModelResponder(fc)
	_, err := m.Respond(context.Background(), "q", "t", "  ", "")
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("err = %v, want ErrAuth", err)
	}
	if fc.calls != 0 {
		t.Fatal("completer must not be called without a key")
	}
}

func TestModelRespondErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unauthorized", &APIError{StatusCode: 401}, ErrAuth},
		{"rate limited", &APIError{StatusCode: 429}, ErrRateLimit},
		{"server error", &APIError{StatusCode: 500}, ErrServiceUnavailable},
		{"bad gateway", &APIError{StatusCode: 503}, ErrServiceUnavailable},
		{"bad request", &APIError{StatusCode: 400}, ErrRequest},
		{"transport", errors.New("connection reset"), ErrRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCompleter{err: tt.err}
			_, err := NewModelResponder(fc).Respond(context.Background(), "q", "t", "sk", "")
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			var me *ModelError
			if !errors.As(err, &me) {
				t.Fatalf("expected *ModelError, got %T", err)
			}
			if me.Error() != UserMessage(tt.want) {
				t.Fatalf("message = %q", me.Error())
			}
			if me.Cause != tt.err {
				t.Fatal("cause not kept")
			}
			if fc.calls != 1 {
				t.Fatalf("calls = %d, want exactly one attempt", fc.calls)
			}
		})
	}
}

func TestModelErrorMessages(t *testing.T) {
	tests := []struct {
		kind error
		want string
	}{
		{ErrAuth, "Invalid API key. Please check your OpenAI API key in settings."},
		{ErrRateLimit, "Rate limit exceeded. Please try again in a moment."},
		{ErrServiceUnavailable, "OpenAI service is temporarily unavailable. Please try again later."},
		{ErrRequest, "Failed to get AI response. Please try again."},
		{errors.New("other"), "Failed to get AI response. Please try again."},
	}
	for _, tt := range tests {
		if got := (&ModelError{Kind: tt.kind}).Error(); got != tt.want {
			t.Errorf("%v: message = %q, want %q", tt.kind, got, tt.want)
		}
	}

	for _, kind := range []error{ErrAuth, ErrRateLimit, ErrServiceUnavailable, ErrRequest} {
		msg := kind.Error()
		if strings.ToLower(msg[:1]) != msg[:1] || strings.HasSuffix(msg, ".") {
			t.Errorf("sentinel %q should be lower-case without trailing period", msg)
		}
	}
}

func TestOpenAIClientComplete(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("auth header = %q", r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Hello there. "}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL + "/")
	res, err := c.Complete(context.Background(), CompletionRequest{
		APIKey:       "sk-test",
		Model:        "gpt-4o-mini",
		SystemPrompt: "sys",
		UserPrompt:   "user",
		MaxTokens:    1000,
		Temperature:  0.3,
	})
	if err != nil {
		t.Fatalf("Complete error = %v", err)
	}
	if res.Text != "Hello there." {
		t.Fatalf("text = %q", res.Text)
	}
	if got.Model != "gpt-4o-mini" || len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.MaxTokens != 1000 {
		t.Fatalf("payload = %+v", got)
	}
}

func TestOpenAIClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit_error"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIClient(srv.URL).Complete(context.Background(), CompletionRequest{APIKey: "sk"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != 429 || apiErr.Message != "slow down" {
		t.Fatalf("api error = %+v", apiErr)
	}

	_, err = NewModelResponder(NewOpenAIClient(srv.URL)).Respond(context.Background(), "q", "t", "sk", "")
	if !errors.Is(err, ErrRateLimit) {
		t.Fatalf("err = %v, want ErrRateLimit", err)
	}
}

func TestOpenAIClientNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	got, err := NewModelResponder(NewOpenAIClient(srv.URL)).Respond(context.Background(), "q", "t", "sk", "")
	if err != nil {
		t.Fatalf("Respond error = %v", err)
	}
	if got != emptyCompletion {
		t.Fatalf("Respond = %q", got)
	}
}

func TestOpenAIClientVerifyKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") == "Bearer sk-good" {
			w.Write([]byte(`{"data":[]}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL)
	if err := c.VerifyKey(context.Background(), "sk-good"); err != nil {
		t.Fatalf("VerifyKey(good) = %v", err)
	}

	err := c.VerifyKey(context.Background(), "sk-bad")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("VerifyKey(bad) = %v", err)
	}
}

func TestIsSupportedModel(t *testing.T) {
	for _, m := range []string{"gpt-4o", "gpt-4o-mini", "gpt-4-turbo", "gpt-4", "gpt-3.5-turbo"} {
		if !IsSupportedModel(m) {
			t.Errorf("%s should be supported", m)
		}
	}
	if IsSupportedModel("gpt-2") {
		t.Error("gpt-2 should not be supported")
	}
}
