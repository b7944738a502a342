// Package skills describes the AI capability the translation manager calls.
package skills

import "context"

const Translate = "translate"

type TranslateRequest struct {
	Content            string
	TargetLanguage     string
	PreserveFormatting bool
}

// Result mirrors the capability's envelope: Success=false carries Error, never a Go error.
type Result struct {
	Success    bool
	Translated string
	Model      string
	Error      string
}

type Executor interface {
	ExecuteSkill(ctx context.Context, skill string, req TranslateRequest) (Result, error)
}
