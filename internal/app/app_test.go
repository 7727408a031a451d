package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ryan-quiz/backend/internal/config"
	"ryan-quiz/backend/internal/llm"
	"ryan-quiz/backend/internal/model"
	"ryan-quiz/backend/internal/quiz"
)

// fakeOllama answers /api/chat with reply and / with 200.
func fakeOllama(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": reply},
			"done":    true,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(ollamaURL string) *config.Config {
	return &config.Config{
		AppPort:            8000,
		LogLevel:           "DEBUG",
		OllamaURL:          ollamaURL,
		ModelName:          "ryan-mistral-gpu",
		ModelTimeout:       5 * time.Second,
		ModelRateBurst:     1,
		StoreDriver:        config.StoreMemory,
		SessionTTL:         time.Hour,
		ReaperInterval:     time.Minute,
		HistoryLimit:       20,
		CORSAllowedOrigins: []string{"*"},
	}
}

func TestNewApp(t *testing.T) {
	ollama := fakeOllama(t, "hi")

	t.Run("memory store", func(t *testing.T) {
		a, err := NewApp(testConfig(ollama.URL))
		require.NoError(t, err)
		defer func() { require.NoError(t, a.Close()) }()

		assert.NotNil(t, a.Server)
		assert.Equal(t, ":8000", a.Server.Addr)
		assert.NotNil(t, a.Reaper)
	})

	t.Run("sqlite store", func(t *testing.T) {
		cfg := testConfig(ollama.URL)
		cfg.StoreDriver = config.StoreSQLite
		cfg.DatabasePath = filepath.Join(t.TempDir(), "quiz.db")

		a, err := NewApp(cfg)
		require.NoError(t, err)
		require.NoError(t, a.Close())
	})

	t.Run("unknown store", func(t *testing.T) {
		cfg := testConfig(ollama.URL)
		cfg.StoreDriver = "mongo"
		_, err := NewApp(cfg)
		assert.Error(t, err)
	})
}

func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(url, "application/json", &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type sessionBody struct {
	ID       string                  `json:"id"`
	Messages []model.Message         `json:"messages"`
	State    model.ConversationState `json:"state"`
	Phase    model.Phase             `json:"phase"`
}

type submitBody struct {
	Session  sessionBody     `json:"session"`
	Appended []model.Message `json:"appended"`
}

func TestApp_EndToEnd(t *testing.T) {
	ollama := fakeOllama(t, `Ryan: "hey Alice!! love that name. so pretty. wow."`)
	a, err := NewApp(testConfig(ollama.URL))
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()

	srv := httptest.NewServer(a.Server.Handler)
	defer srv.Close()

	var created sessionBody
	require.Equal(t, http.StatusCreated, postJSON(t, srv.URL+"/api/v1/sessions", nil, &created))
	assert.Equal(t, model.PhaseIdle, created.Phase)
	require.Len(t, created.Messages, 1)
	assert.Equal(t, quiz.WelcomeText, created.Messages[0].Text)

	messagesURL := srv.URL + "/api/v1/sessions/" + created.ID + "/messages"

	var started submitBody
	require.Equal(t, http.StatusOK, postJSON(t, messagesURL, map[string]string{"text": "start"}, &started))
	assert.Equal(t, model.PhaseAsking, started.Session.Phase)
	require.Len(t, started.Appended, 1)
	assert.Equal(t, "q-0", started.Appended[0].ID)

	var answered submitBody
	require.Equal(t, http.StatusOK, postJSON(t, messagesURL, map[string]string{"text": "Alice"}, &answered))
	require.Len(t, answered.Appended, 3)
	assert.Equal(t, "hey Alice!! love that name.", answered.Appended[1].Text)
	assert.Equal(t, "q-1", answered.Appended[2].ID)
	assert.Equal(t, 1, answered.Session.State.Cursor)

	var errResp map[string]string
	assert.Equal(t, http.StatusBadRequest, postJSON(t, messagesURL, map[string]string{"text": "  "}, &errResp))
	assert.Equal(t, http.StatusNotFound, postJSON(t, srv.URL+"/api/v1/sessions/nope/messages", map[string]string{"text": "hi"}, &errResp))
}

func TestApp_ModelDown(t *testing.T) {
	ollama := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer ollama.Close()

	a, err := NewApp(testConfig(ollama.URL))
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()
	srv := httptest.NewServer(a.Server.Handler)
	defer srv.Close()

	var created sessionBody
	require.Equal(t, http.StatusCreated, postJSON(t, srv.URL+"/api/v1/sessions", nil, &created))
	messagesURL := srv.URL + "/api/v1/sessions/" + created.ID + "/messages"

	t.Run("free chat shows the error", func(t *testing.T) {
		var res submitBody
		require.Equal(t, http.StatusOK, postJSON(t, messagesURL, map[string]string{"text": "hello"}, &res))
		assert.Equal(t, "Model API error: 500 model not loaded", res.Appended[1].Text)
	})

	t.Run("the test falls back and keeps going", func(t *testing.T) {
		require.Equal(t, http.StatusOK, postJSON(t, messagesURL, map[string]string{"text": "start"}, nil))

		var res submitBody
		require.Equal(t, http.StatusOK, postJSON(t, messagesURL, map[string]string{"text": "Alice"}, &res))
		assert.Contains(t, quiz.Fallbacks(0, "Alice"), res.Appended[1].Text)
		assert.Equal(t, 1, res.Session.State.Cursor)
	})
}

type flakyProvider struct {
	failures atomic.Int32
}

func (p *flakyProvider) Chat(context.Context, *llm.ChatRequest) ([]byte, error) { return nil, nil }

func (p *flakyProvider) Ping(context.Context) error {
	if p.failures.Add(-1) >= 0 {
		return &llm.APIError{StatusCode: http.StatusServiceUnavailable}
	}
	return nil
}

func TestWaitForOllama(t *testing.T) {
	ctx := context.Background()

	t.Run("ready after retries", func(t *testing.T) {
		p := &flakyProvider{}
		p.failures.Store(2)
		assert.True(t, waitForOllama(ctx, p, time.Second, time.Millisecond))
	})

	t.Run("gives up after the timeout", func(t *testing.T) {
		p := &flakyProvider{}
		p.failures.Store(1 << 20)
		start := time.Now()
		assert.False(t, waitForOllama(ctx, p, 50*time.Millisecond, 5*time.Millisecond))
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("zero timeout skips the check", func(t *testing.T) {
		p := &flakyProvider{}
		p.failures.Store(1 << 20)
		assert.True(t, waitForOllama(ctx, p, 0, time.Millisecond))
	})
}
