package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	apierrors "github.com/yukikurage/task-approval-api/internal/errors"
	"github.com/yukikurage/task-approval-api/internal/models"
	"github.com/yukikurage/task-approval-api/internal/session"
)

// ErrTriageNotConfigured is returned when no OpenAI key is set.
var ErrTriageNotConfigured = apierrors.Transport("AI triage is not configured", nil)

// ChatCompleter is the part of the OpenAI client triage needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// TriageService suggests a category and priority for a draft task.
type TriageService struct {
	client ChatCompleter
	logger *zap.Logger
}

// NewTriageService returns a service backed by OpenAI, or an unconfigured one
// when apiKey is empty.
func NewTriageService(apiKey string, logger *zap.Logger) *TriageService {
	if apiKey == "" {
		return &TriageService{logger: logger}
	}
	return NewTriageServiceWithClient(openai.NewClient(apiKey), logger)
}

func NewTriageServiceWithClient(client ChatCompleter, logger *zap.Logger) *TriageService {
	return &TriageService{client: client, logger: logger}
}

// Configured reports whether suggestions are available.
func (s *TriageService) Configured() bool {
	return s != nil && s.client != nil
}

// TriageInput is the draft to classify.
type TriageInput struct {
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Description string `json:"description" validate:"max=5000"`
}

// Suggestion is the model's classification of a draft task.
type Suggestion struct {
	Category  models.TaskCategory `json:"category"`
	Priority  models.TaskPriority `json:"priority"`
	Rationale string              `json:"rationale"`
}

// Suggest asks the model for a category and priority. Values outside the
// known enums are rejected.
func (s *TriageService) Suggest(ctx context.Context, sess session.Session, input TriageInput) (*Suggestion, error) {
	if !sess.Active {
		return nil, apierrors.Forbidden("Your account is inactive")
	}
	if !s.Configured() {
		return nil, ErrTriageNotConfigured
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`You help a CEO triage incoming requests from the team.
Classify the task below.

Title: %s
Description:
%s

Reply with a single JSON object:
{
  "category": one of "financial", "project", "hr_operations", "client_relations", "pr_marketing", "administrative",
  "priority": one of "urgent", "high", "normal", "low",
  "rationale": one short sentence
}
Reply with JSON only.`, input.Title, input.Description)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4o,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("OpenAI API error: %w", err)
		}
		return nil, apierrors.Transport("AI triage request failed", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	suggestion, err := parseSuggestion(resp.Choices[0].Message.Content)
	if err != nil {
		s.logger.Warn("unusable triage response", zap.Error(err))
		return nil, err
	}
	return suggestion, nil
}

func parseSuggestion(content string) (*Suggestion, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var suggestion Suggestion
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &suggestion); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}
	if !suggestion.Category.Valid() {
		return nil, fmt.Errorf("AI suggested unknown category %q", suggestion.Category)
	}
	if !suggestion.Priority.Valid() {
		return nil, fmt.Errorf("AI suggested unknown priority %q", suggestion.Priority)
	}
	return &suggestion, nil
}
