package ai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/openai/openai-go/option"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/compliance-sdk/modules/policy/domain/skills"
	"github.com/iota-uz/compliance-sdk/modules/policy/infrastructure/ai"
)

type countingExecutor struct {
	mu     sync.Mutex
	calls  int
	result skills.Result
	err    error
}

func (c *countingExecutor) ExecuteSkill(_ context.Context, _ string, req skills.TranslateRequest) (skills.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return skills.Result{}, c.err
	}
	res := c.result
	if res.Translated == "" && res.Success {
		res.Translated = "[" + req.TargetLanguage + "] " + req.Content
	}
	return res, nil
}

type memoryStore struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
}

func (m *memoryStore) Get(_ context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return redis.NewStringResult("", m.getErr)
	}
	v, ok := m.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.values[key] = string(v)
	case string:
		m.values[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func TestOpenAISkillExecutor_Translate(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 0,
			"model": "gpt-4o-mini-2024",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": " <p>Reglas</p> "}}]
		}`))
	}))
	defer srv.Close()

	exec := ai.NewOpenAISkillExecutor(ai.OpenAIConfig{
		APIKey:  "test",
		BaseURL: srv.URL,
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
		Options: []option.RequestOption{option.WithMaxRetries(0)},
	})
	res, err := exec.ExecuteSkill(context.Background(), skills.Translate, skills.TranslateRequest{
		Content:            "<p>Rules</p>",
		TargetLanguage:     "es",
		PreserveFormatting: true,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "<p>Reglas</p>", res.Translated)
	assert.Equal(t, "gpt-4o-mini-2024", res.Model)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "Spanish (es)")
	assert.Contains(t, got.Messages[0].Content, "Preserve all HTML tags")
	assert.Equal(t, "<p>Rules</p>", got.Messages[1].Content)
}

func TestOpenAISkillExecutor_ServerErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "boom", "type": "server_error"}}`))
	}))
	defer srv.Close()

	exec := ai.NewOpenAISkillExecutor(ai.OpenAIConfig{
		APIKey:  "test",
		BaseURL: srv.URL,
		Model:   "gpt-4o-mini",
		Options: []option.RequestOption{option.WithMaxRetries(0)},
	})
	_, err := exec.ExecuteSkill(context.Background(), skills.Translate, skills.TranslateRequest{Content: "Rules", TargetLanguage: "de"})
	require.Error(t, err)
}

func TestOpenAISkillExecutor_UnsupportedSkill(t *testing.T) {
	exec := ai.NewOpenAISkillExecutor(ai.OpenAIConfig{APIKey: "test", Model: "m"})
	res, err := exec.ExecuteSkill(context.Background(), "summarize", skills.TranslateRequest{Content: "x"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "unsupported skill")
}

func TestBreakerSkillExecutor_OpensAfterThreshold(t *testing.T) {
	next := &countingExecutor{err: errors.New("upstream down")}
	exec := ai.NewBreakerSkillExecutor(next, ai.BreakerConfig{Threshold: 2, Cooldown: time.Minute}, nil)
	ctx := context.Background()
	req := skills.TranslateRequest{Content: "x", TargetLanguage: "fr"}

	for range 2 {
		_, err := exec.ExecuteSkill(ctx, skills.Translate, req)
		require.Error(t, err)
	}
	_, err := exec.ExecuteSkill(ctx, skills.Translate, req)
	require.Error(t, err)
	assert.Equal(t, 2, next.calls, "open circuit must not reach the provider")
}

func TestBreakerSkillExecutor_PassesThroughSuccess(t *testing.T) {
	next := &countingExecutor{result: skills.Result{Success: true, Model: "m"}}
	exec := ai.NewBreakerSkillExecutor(next, ai.BreakerConfig{}, nil)
	res, err := exec.ExecuteSkill(context.Background(), skills.Translate, skills.TranslateRequest{Content: "x", TargetLanguage: "fr"})
	require.NoError(t, err)
	assert.Equal(t, "[fr] x", res.Translated)
}

func TestCachedSkillExecutor(t *testing.T) {
	ctx := context.Background()
	req := skills.TranslateRequest{Content: "Rules", TargetLanguage: "de", PreserveFormatting: true}

	t.Run("second call is served from cache", func(t *testing.T) {
		next := &countingExecutor{result: skills.Result{Success: true, Model: "m"}}
		exec := ai.NewCachedSkillExecutor(next, &memoryStore{values: map[string]string{}}, "tr", time.Hour, nil)

		first, err := exec.ExecuteSkill(ctx, skills.Translate, req)
		require.NoError(t, err)
		second, err := exec.ExecuteSkill(ctx, skills.Translate, req)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, next.calls)

		other := req
		other.PreserveFormatting = false
		_, err = exec.ExecuteSkill(ctx, skills.Translate, other)
		require.NoError(t, err)
		assert.Equal(t, 2, next.calls)
	})

	t.Run("failures are not cached", func(t *testing.T) {
		next := &countingExecutor{result: skills.Result{Error: "quota"}}
		exec := ai.NewCachedSkillExecutor(next, &memoryStore{values: map[string]string{}}, "tr", time.Hour, nil)
		for range 2 {
			res, err := exec.ExecuteSkill(ctx, skills.Translate, req)
			require.NoError(t, err)
			assert.False(t, res.Success)
		}
		assert.Equal(t, 2, next.calls)
	})

	t.Run("redis errors fall through", func(t *testing.T) {
		next := &countingExecutor{result: skills.Result{Success: true}}
		store := &memoryStore{values: map[string]string{}, getErr: errors.New("connection refused")}
		exec := ai.NewCachedSkillExecutor(next, store, "tr", time.Hour, nil)
		res, err := exec.ExecuteSkill(ctx, skills.Translate, req)
		require.NoError(t, err)
		assert.True(t, res.Success)
	})
}
