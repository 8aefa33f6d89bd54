package gpt

import (
	"FirstContact/internal/config"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
)

func testClient(t *testing.T, handler http.HandlerFunc) *openai.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return openai.NewClientWithConfig(cfg)
}

func testConfig() *config.Config {
	conf := &config.Config{}
	conf.OpenAI.Model = "gpt-4o"
	conf.Generator.Timeout = 2 * time.Second
	return conf
}

func TestGenerateRendersPrompt(t *testing.T) {
	var got openai.ChatCompletionRequest
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Здравствуйте!"}}],"usage":{"total_tokens":12}}`)
	})

	g := newGenerator(client, testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	reply, err := g.Generate(context.Background(), `Сообщение: "{message}"`, map[string]string{"message": "привет"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if reply != "Здравствуйте!" {
		t.Errorf("reply = %q", reply)
	}
	if got.Model != "gpt-4o" || len(got.Messages) != 1 || got.Messages[0].Content != `Сообщение: "привет"` {
		t.Errorf("request = %+v", got)
	}
}

func TestGenerateError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
	})
	g := newGenerator(client, testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if _, err := g.Generate(context.Background(), "x", nil); err == nil {
		t.Error("expected error")
	}
}

func TestGenerateNoChoices(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"1","choices":[]}`)
	})
	g := newGenerator(client, testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if _, err := g.Generate(context.Background(), "x", nil); err == nil || !strings.Contains(err.Error(), "no choices") {
		t.Errorf("err = %v", err)
	}
}

func TestLimiter(t *testing.T) {
	if l := NewLimiter(0); !l.Allow() || !l.Allow() {
		t.Error("disabled limiter must always allow")
	}
	l := NewLimiter(1)
	if !l.Allow() {
		t.Error("first call must pass")
	}
	if l.Allow() {
		t.Error("second immediate call must be throttled")
	}
}

func TestEmbedOrdersByIndex(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","data":[{"object":"embedding","index":1,"embedding":[0,1]},{"object":"embedding","index":0,"embedding":[1,0]}],"model":"text-embedding-3-small"}`)
	})
	e := newEmbedder(client, "")
	vectors, err := e.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vectors) != 2 || vectors[0][0] != 1 || vectors[1][1] != 1 {
		t.Errorf("vectors = %v", vectors)
	}
}

func TestTranscribe(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("multipart: %v", err)
		}
		if got := r.FormValue("model"); got != openai.Whisper1 {
			t.Errorf("model = %q", got)
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "Меня зовут Иван\n")
	})

	tr := &Transcriber{client: client}
	text, err := tr.Transcribe(context.Background(), "voice.ogg", strings.NewReader("OggS..."))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "Меня зовут Иван" {
		t.Errorf("text = %q", text)
	}
}
