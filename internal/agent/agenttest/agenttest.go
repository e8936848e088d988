// Package agenttest provides a scripted chat-completion client for tests.
package agenttest

import (
	"context"
	"sync"

	"github.com/sashabaranov/go-openai"
)

// Client answers with Replies in order. Once they run out it returns a
// response without choices. Err, when set, fails every call.
type Client struct {
	mu       sync.Mutex
	Replies  []string
	Err      error
	gate     chan struct{}
	requests []openai.ChatCompletionRequest
}

func NewClient(replies ...string) *Client {
	return &Client{Replies: replies}
}

func (c *Client) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	gate := c.gate
	c.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return openai.ChatCompletionResponse{}, ctx.Err()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Err != nil {
		return openai.ChatCompletionResponse{}, c.Err
	}
	if len(c.Replies) == 0 {
		return openai.ChatCompletionResponse{}, nil
	}

	reply := c.Replies[0]
	c.Replies = c.Replies[1:]
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply}},
		},
	}, nil
}

// Push queues more replies.
func (c *Client) Push(replies ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Replies = append(c.Replies, replies...)
}

// Hold makes calls block after they are recorded until the returned
// function is called or their context ends.
func (c *Client) Hold() (release func()) {
	gate := make(chan struct{})
	c.mu.Lock()
	c.gate = gate
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.gate = nil
			c.mu.Unlock()
			close(gate)
		})
	}
}

func (c *Client) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Err = err
}

// Requests returns the requests received so far.
func (c *Client) Requests() []openai.ChatCompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]openai.ChatCompletionRequest(nil), c.requests...)
}
