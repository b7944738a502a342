// Package ai adapts LLM providers to the translate skill.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/iota-uz/compliance-sdk/modules/policy/domain/skills"
	"github.com/iota-uz/compliance-sdk/pkg/intl"
)

const (
	formattedPrompt = "You are a professional translator of compliance documents. " +
		"Translate the user's text into %s. Preserve all HTML tags, attributes and document structure exactly; " +
		"translate only human-readable text. Reply with the translated document and nothing else."
	plainPrompt = "You are a professional translator of compliance documents. " +
		"Translate the user's text into %s. Reply with the plain translated text only, without quotes or markup."
)

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Options []option.RequestOption
}

// OpenAISkillExecutor runs the translate skill as a chat completion.
// Transport failures are returned as errors so callers can trip a breaker on them.
type OpenAISkillExecutor struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAISkillExecutor(cfg OpenAIConfig) *OpenAISkillExecutor {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, cfg.Options...)
	return &OpenAISkillExecutor{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

func (e *OpenAISkillExecutor) ExecuteSkill(ctx context.Context, skill string, req skills.TranslateRequest) (skills.Result, error) {
	if skill != skills.Translate {
		return skills.Result{Error: fmt.Sprintf("unsupported skill %q", skill)}, nil
	}
	if strings.TrimSpace(req.Content) == "" {
		return skills.Result{Success: true, Model: e.model}, nil
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	prompt := plainPrompt
	if req.PreserveFormatting {
		prompt = formattedPrompt
	}
	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: e.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(fmt.Sprintf(prompt, intl.EnglishName(req.TargetLanguage))),
			openai.UserMessage(req.Content),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return skills.Result{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return skills.Result{Error: "no response from AI"}, nil
	}
	translated := strings.TrimSpace(resp.Choices[0].Message.Content)
	if translated == "" {
		return skills.Result{Error: "AI returned an empty translation"}, nil
	}
	model := resp.Model
	if model == "" {
		model = e.model
	}
	return skills.Result{Success: true, Translated: translated, Model: model}, nil
}

