// Package assessment estimates disaster damage from an evidence photo using
// an external generative model.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	ErrNotConfigured = errors.New("assessment model not configured")
	ErrEmptyReply    = errors.New("empty reply from model")
	ErrMalformed     = errors.New("malformed reply")
)

// Model sends one prompt plus one image to a generative model and returns its text reply.
type Model interface {
	Generate(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// Result is a decoded assessment reply.
type Result struct {
	DamagePercentage      float64
	Reasoning             string
	EstimatedCompensation float64
	Recommendations       string
}

// AnalysisError reports a failed assessment. Op is "generate" or "decode".
type AnalysisError struct {
	Op  string
	Err error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("assessment %s: %v", e.Op, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

type Analyzer struct {
	model  Model
	prompt string
}

// NewAnalyzer returns an analyzer using model. A nil model makes every call
// fail with ErrNotConfigured.
func NewAnalyzer(model Model, compensationBase float64) *Analyzer {
	return &Analyzer{model: model, prompt: Prompt(compensationBase)}
}

func (a *Analyzer) Analyze(ctx context.Context, image []byte, mimeType string) (*Result, error) {
	if a.model == nil {
		return nil, &AnalysisError{Op: "generate", Err: ErrNotConfigured}
	}

	reply, err := a.model.Generate(ctx, a.prompt, image, mimeType)
	if err != nil {
		return nil, &AnalysisError{Op: "generate", Err: err}
	}

	result, err := Decode(reply)
	if err != nil {
		return nil, &AnalysisError{Op: "decode", Err: err}
	}

	return result, nil
}

// Decode parses a model reply that should be a JSON object, possibly wrapped
// in markdown code fences or surrounded by stray text.
func Decode(reply string) (*Result, error) {
	body := stripFences(reply)
	if body == "" {
		return nil, ErrEmptyReply
	}

	if !gjson.Valid(body) {
		start, end := strings.Index(body, "{"), strings.LastIndex(body, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("%w: no JSON object found", ErrMalformed)
		}
		body = body[start : end+1]
		if !gjson.Valid(body) {
			return nil, fmt.Errorf("%w: invalid JSON", ErrMalformed)
		}
	}

	doc := gjson.Parse(body)
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: reply is not an object", ErrMalformed)
	}

	damage, err := number(doc, "damage_percentage")
	if err != nil {
		return nil, err
	}
	if damage < 0 || damage > 100 {
		return nil, fmt.Errorf("%w: damage_percentage %v out of range 0-100", ErrMalformed, damage)
	}

	compensation, err := number(doc, "estimated_compensation")
	if err != nil {
		return nil, err
	}
	if compensation < 0 {
		return nil, fmt.Errorf("%w: estimated_compensation %v is negative", ErrMalformed, compensation)
	}

	reasoning, err := text(doc, "reasoning")
	if err != nil {
		return nil, err
	}

	recommendations, err := text(doc, "recommendations")
	if err != nil {
		return nil, err
	}

	return &Result{
		DamagePercentage:      damage,
		Reasoning:             reasoning,
		EstimatedCompensation: compensation,
		Recommendations:       recommendations,
	}, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func number(doc gjson.Result, field string) (float64, error) {
	v := doc.Get(field)
	if !v.Exists() {
		return 0, fmt.Errorf("%w: missing %s", ErrMalformed, field)
	}
	if v.Type != gjson.Number {
		return 0, fmt.Errorf("%w: %s must be a number", ErrMalformed, field)
	}
	return v.Float(), nil
}

func text(doc gjson.Result, field string) (string, error) {
	v := doc.Get(field)
	if !v.Exists() {
		return "", fmt.Errorf("%w: missing %s", ErrMalformed, field)
	}
	if v.Type != gjson.String {
		return "", fmt.Errorf("%w: %s must be a string", ErrMalformed, field)
	}
	return v.String(), nil
}
