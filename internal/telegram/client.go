// Package telegram speaks the two Bot API request shapes the daemon needs:
// a long-polled getUpdates fetch and a best-effort sendMessage.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/harrylevesque/chesstap/internal/utils"
)

// Chat identifies a conversation.
type Chat struct {
	ID int64 `json:"id"`
}

// Message is the subset of a Telegram message the daemon reads.
type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

// Update is one entry of a getUpdates result.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// APIError is an ok:false response: the HTTP exchange succeeded but the Bot
// API rejected the request (e.g. an invalid credential). Distinct from
// transport failures, though both are retried on the same cadence.
type APIError struct {
	Description string
}

func (e *APIError) Error() string {
	return "telegram api: " + e.Description
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Client issues Bot API requests against baseURL plus the bot credential
// path segment.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a client for the given API base (normally
// https://api.telegram.org). The HTTP timeout leaves headroom over the 30s
// long-poll hold.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 50 * time.Second},
	}
}

func (c *Client) post(ctx context.Context, method string, body interface{}, result interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return utils.Newf(utils.CodeTransportFailure, "%s: encode request: %v", method, err)
	}

	url := c.baseURL + "/bot" + c.token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return utils.Newf(utils.CodeTransportFailure, "%s: build request: %v", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return utils.Newf(utils.CodeTransportFailure, "%s: %v", method, err)
	}
	defer resp.Body.Close()

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return utils.Newf(utils.CodeTransportFailure, "%s: decode response: %v", method, err)
	}
	if !api.OK {
		// An ok:false body accompanies non-2xx statuses too; prefer the
		// API description when one is present.
		if api.Description != "" {
			return &APIError{Description: api.Description}
		}
		return utils.Newf(utils.CodeTransportFailure, "%s: status %d", method, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return utils.Newf(utils.CodeTransportFailure, "%s: status %d", method, resp.StatusCode)
	}

	if result != nil && api.Result != nil {
		if err := json.Unmarshal(api.Result, result); err != nil {
			return utils.Newf(utils.CodeTransportFailure, "%s: decode result: %v", method, err)
		}
	}
	return nil
}

// GetUpdates long-polls for updates with identifiers >= offset. The request
// may block server-side for up to timeout seconds.
func (c *Client) GetUpdates(ctx context.Context, offset int64, limit, timeout int) ([]Update, error) {
	body := map[string]interface{}{
		"offset":  offset,
		"limit":   limit,
		"timeout": timeout,
	}
	var updates []Update
	if err := c.post(ctx, "getUpdates", body, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage posts text to a chat. Single best-effort request, no retry.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	body := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}
	return c.post(ctx, "sendMessage", body, nil)
}
