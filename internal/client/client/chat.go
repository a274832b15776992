package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/mcpforge/internal/client/models"
)

type createChatRequest struct {
	Prompt        string `json:"prompt"`
	ChatSessionID string `json:"chat_session_id,omitempty"`
}

type sendMessageRequest struct {
	ChatID  string `json:"chat_id"`
	Message string `json:"message"`
}

// CreateChat starts a generation run. chatSessionID continues an existing
// chat session and may be empty.
func (c *Client) CreateChat(ctx context.Context, prompt, chatSessionID string) (*models.CreatedChat, error) {
	var raw json.RawMessage
	req := createChatRequest{Prompt: prompt, ChatSessionID: chatSessionID}
	if err := c.call(ctx, http.MethodPost, "/chat/create", req, &raw, ""); err != nil {
		return nil, fmt.Errorf("client.CreateChat: %w", err)
	}

	var body struct {
		Success       bool   `json:"success"`
		ChatSessionID string `json:"chat_session_id"`
		Error         string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("client.CreateChat: %w: %w", ErrMalformedResponse, err)
	}
	if !body.Success {
		return nil, fmt.Errorf("client.CreateChat: %w", &BackendError{Message: body.Error})
	}
	return &models.CreatedChat{ChatID: body.ChatSessionID, Raw: raw}, nil
}

// SendMessage posts a follow-up message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID, message string) (json.RawMessage, error) {
	var raw json.RawMessage
	req := sendMessageRequest{ChatID: chatID, Message: message}
	if err := c.call(ctx, http.MethodPost, "/chat/message", req, &raw, ""); err != nil {
		return nil, fmt.Errorf("client.SendMessage: %w", err)
	}
	return raw, nil
}

// ChatHistory returns the messages of a chat. A missing chat is reported
// as an HTTPError with status 404.
func (c *Client) ChatHistory(ctx context.Context, chatID string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.call(ctx, http.MethodGet, "/chat/"+url.PathEscape(chatID)+"/history", nil, &raw, ""); err != nil {
		return nil, fmt.Errorf("client.ChatHistory: %w", err)
	}
	return raw, nil
}

func (c *Client) ChatStatus(ctx context.Context, chatID string) (*models.ChatStatus, error) {
	var raw json.RawMessage
	if err := c.call(ctx, http.MethodGet, "/chat/"+url.PathEscape(chatID)+"/status", nil, &raw, ""); err != nil {
		return nil, fmt.Errorf("client.ChatStatus: %w", err)
	}
	var st models.ChatStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("client.ChatStatus: %w: %w", ErrMalformedResponse, err)
	}
	st.Raw = raw
	return &st, nil
}

func (c *Client) ListChatSessions(ctx context.Context) (*models.ChatSessions, error) {
	var body models.ChatSessions
	if err := c.call(ctx, http.MethodGet, "/chat/sessions", nil, &body, ""); err != nil {
		return nil, fmt.Errorf("client.ListChatSessions: %w", err)
	}
	return &body, nil
}

// WaitForChat polls the chat status until done reports true, an error
// occurs or ctx ends. A nil done waits for a terminal status. Polls are
// spaced by the client's poll interval; the first one is immediate.
func (c *Client) WaitForChat(ctx context.Context, chatID string, done func(*models.ChatStatus) bool) (*models.ChatStatus, error) {
	if done == nil {
		done = (*models.ChatStatus).Terminal
	}
	limiter := rate.NewLimiter(rate.Every(c.pollInterval), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			// The limiter gives up early when the next slot lies past the
			// deadline; report the deadline itself.
			<-ctx.Done()
			return nil, fmt.Errorf("client.WaitForChat: %w", ctx.Err())
		}
		st, err := c.ChatStatus(ctx, chatID)
		if err != nil {
			return nil, fmt.Errorf("client.WaitForChat: %w", err)
		}
		if done(st) {
			return st, nil
		}
		c.log.Debug(ctx, "chat still running", "chat_id", chatID, "status", st.Status)
	}
}
