package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"refacto/internal/logging"
	"refacto/internal/utils"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var (
	ErrMissingAPIKey = errors.New("missing OPENAI_API_KEY in environment")
	ErrEmptyResponse = errors.New("empty response from model")
)

const (
	FallbackAnswer = "The assistant produced a non-JSON reply; here is a safe wrapper."

	fallbackExcerpt = 300
	summaryExcerpt  = 100
)

// ChatClient is the part of the OpenAI client the agent uses.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Review is the structured feedback returned for a submission.
type Review struct {
	Answer string   `json:"answer"`
	Hints  []string `json:"hints"`
	Score  int      `json:"score"`

	// Fallback is set when the model reply was not a JSON review.
	Fallback bool `json:"-"`
}

type ReviewInput struct {
	Problem    string
	LintReport string
	Reference  string
	Code       string
}

type ChatReply struct {
	Message string `json:"message"`
}

// Agent talks to a chat-completion endpoint and keeps the review exchanges
// in a history shared by every caller of the same Agent.
type Agent struct {
	client      ChatClient
	model       string
	temperature float32
	log         *logrus.Entry

	mu      sync.Mutex
	history []openai.ChatCompletionMessage
}

type Option func(*Agent)

func WithModel(model string) Option {
	return func(a *Agent) {
		if model != "" {
			a.model = model
		}
	}
}

func WithTemperature(temperature float32) Option {
	return func(a *Agent) {
		a.temperature = temperature
	}
}

func New(client ChatClient, opts ...Option) *Agent {
	a := &Agent{
		client:      client,
		model:       openai.GPT4oMini,
		temperature: 0.4,
		log:         logging.Component("agent"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewFromConfig builds an Agent backed by the OpenAI API using the openai.*
// configuration keys.
func NewFromConfig() (*Agent, error) {
	key := viper.GetString("openai.api-key")
	if key == "" {
		return nil, ErrMissingAPIKey
	}

	cfg := openai.DefaultConfig(key)
	if baseURL := viper.GetString("openai.base-url"); baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return New(openai.NewClientWithConfig(cfg),
		WithModel(viper.GetString("openai.model")),
		WithTemperature(float32(viper.GetFloat64("openai.temperature"))),
	), nil
}

// Review asks the model for structured feedback on in.Code. The reply is
// always turned into a Review: a reply that is not a JSON object becomes a
// fallback review with a score of 0. Only transport failures are returned
// as errors.
func (a *Agent) Review(ctx context.Context, in ReviewInput) (Review, error) {
	payload := reviewPayload(in)

	messages := []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: MainPrompt}}
	messages = append(messages, a.History()...)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: payload})

	content, err := a.complete(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: a.temperature,
		Messages:    messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return Review{}, err
	}

	a.remember(payload, content)

	review, ok := ParseReview(content)
	if !ok {
		a.log.WithField("reply", utils.Truncate(content, summaryExcerpt)).Warn("model returned a non-JSON review")
		return FallbackReview(content), nil
	}
	return review, nil
}

// Chat returns free-text mentoring advice about payload. The exchange is
// not added to the history.
func (a *Agent) Chat(ctx context.Context, payload interface{}) (ChatReply, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return ChatReply{}, fmt.Errorf("invalid chat payload: %w", err)
	}

	content, err := a.complete(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: a.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(MentorPrompt, data)},
		},
	})
	if err != nil {
		return ChatReply{}, err
	}
	return ChatReply{Message: content}, nil
}

func (a *Agent) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		a.log.WithError(err).Error("chat completion failed")
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (a *Agent) remember(payload, reply string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.history = append(a.history,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: payload},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply},
	)
}

func (a *Agent) ClearHistory() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = nil
}

// History returns a copy of the review exchanges so far.
func (a *Agent) History() []openai.ChatCompletionMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]openai.ChatCompletionMessage(nil), a.history...)
}

// HistorySummary lists every history entry on its own line, truncated.
func (a *Agent) HistorySummary() string {
	history := a.History()

	lines := make([]string, 0, len(history))
	for i, msg := range history {
		role := "AI"
		if msg.Role == openai.ChatMessageRoleUser {
			role = "User"
		}
		lines = append(lines, fmt.Sprintf("[%d] %s: %s...", i+1, role, utils.Truncate(msg.Content, summaryExcerpt)))
	}
	return strings.Join(lines, "\n")
}

// ParseReview decodes a model reply into a Review. Markdown code fences
// around the JSON are tolerated; the score is clamped to 0..100.
func ParseReview(content string) (Review, bool) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var raw struct {
		Answer string   `json:"answer"`
		Hints  []string `json:"hints"`
		Score  float64  `json:"score"`
	}
	if !strings.HasPrefix(content, "{") {
		return Review{}, false
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return Review{}, false
	}

	if raw.Hints == nil {
		raw.Hints = []string{}
	}
	score := math.Round(raw.Score)
	score = math.Max(0, math.Min(100, score))

	return Review{Answer: raw.Answer, Hints: raw.Hints, Score: int(score)}, true
}

// FallbackReview wraps a reply that could not be parsed.
func FallbackReview(content string) Review {
	return Review{
		Answer:   FallbackAnswer,
		Hints:    []string{utils.Truncate(content, fallbackExcerpt)},
		Score:    0,
		Fallback: true,
	}
}
