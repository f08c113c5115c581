// Package relay talks to the multi-model relay backend over its JSON HTTP API.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"relaychat/internal/models"
)

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *resty.Client
	log     zerolog.Logger

	debug         bool
	listRetries   int
	retryInterval time.Duration
}

// New constructs a Client for the relay at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid relay base URL %q", baseURL)
	}

	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		http:          resty.New(),
		log:           zerolog.Nop(),
		listRetries:   3,
		retryInterval: 300 * time.Millisecond,
	}
	c.http.SetTimeout(2 * time.Minute)

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	c.http.
		SetBaseURL(c.baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	c.installDebugHooks()
	return c, nil
}

// BaseURL returns the relay address this client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// ListConversations fetches every conversation summary. Network failures are
// retried with exponential backoff; backend errors are returned at once.
func (c *Client) ListConversations(ctx context.Context) ([]models.ConversationSummary, error) {
	var out []models.ConversationSummary
	op := func() error {
		list, err := c.listOnce(ctx)
		if err != nil {
			if IsNetworkFailure(err) && ctx.Err() == nil {
				c.log.Warn().Err(err).Msg("conversation list fetch failed, retrying")
				return err
			}
			return backoff.Permanent(err)
		}
		out = list
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryInterval
	var b backoff.BackOff = backoff.WithMaxRetries(eb, uint64(c.listRetries))
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) listOnce(ctx context.Context) ([]models.ConversationSummary, error) {
	const op = "list"
	var lr listResponse
	if err := c.do(ctx, op, http.MethodGet, "/conversations", nil, nil, &lr); err != nil {
		return nil, err
	}
	if lr.Error != "" {
		return nil, observe(op, backendError(op, http.StatusOK, lr.Error))
	}

	out := make([]models.ConversationSummary, 0, len(lr.Conversations))
	for _, cj := range lr.Conversations {
		s, ok := cj.toSummary()
		if !ok {
			c.log.Warn().Str("conversation_id", cj.ConversationID).Str("created_at", cj.CreatedAt).Msg("unparseable created_at")
		}
		out = append(out, s)
	}
	return out, observe(op, nil)
}

// Ask sends prompt to a single model and returns the answer and the model
// label reported by the backend (falling back to model when omitted).
func (c *Client) Ask(ctx context.Context, prompt, model, conversationID string) (answer, label string, err error) {
	const op = "ask"
	var ar askResponse
	req := askRequest{Prompt: prompt, Model: model, ConversationID: conversationID}
	if err := c.do(ctx, op, http.MethodPost, "/ask", nil, req, &ar); err != nil {
		return "", "", err
	}
	if ar.Error != "" {
		e := backendError(op, http.StatusOK, ar.Error)
		e.Model = ar.Model
		return "", "", observe(op, e)
	}
	label = ar.Model
	if label == "" {
		label = model
	}
	return ar.Response, label, observe(op, nil)
}

// History returns the stored messages of a conversation. The relay serves
// history from /ask when the prompt is empty.
func (c *Client) History(ctx context.Context, conversationID, model string) ([]models.Message, error) {
	const op = "history"
	var ar askResponse
	req := askRequest{Prompt: "", Model: model, ConversationID: conversationID}
	if err := c.do(ctx, op, http.MethodPost, "/ask", nil, req, &ar); err != nil {
		return nil, err
	}
	if ar.Error != "" {
		return nil, observe(op, backendError(op, http.StatusOK, ar.Error))
	}
	msgs := make([]models.Message, 0, len(ar.History))
	for _, h := range ar.History {
		msgs = append(msgs, h.toMessage())
	}
	return msgs, observe(op, nil)
}

// Compare sends message to every model in models and returns one response per
// model that answered.
func (c *Client) Compare(ctx context.Context, message string, modelIDs []string, conversationID string) ([]ModelResponse, error) {
	const op = "compare"
	var cr compareResponse
	req := compareRequest{Message: message, Models: modelIDs, ConversationID: conversationID}
	if err := c.do(ctx, op, http.MethodPost, "/compare", nil, req, &cr); err != nil {
		return nil, err
	}
	if cr.Error != "" {
		return nil, observe(op, backendError(op, http.StatusOK, cr.Error))
	}
	return cr.Responses, observe(op, nil)
}

// DeleteConversation removes a conversation and its messages on the relay.
func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	const op = "delete"
	var dr deleteResponse
	params := map[string]string{"id": conversationID}
	if err := c.do(ctx, op, http.MethodDelete, "/conversations/{id}", params, nil, &dr); err != nil {
		return err
	}
	if dr.Error != "" {
		return observe(op, backendError(op, http.StatusOK, dr.Error))
	}
	return observe(op, nil)
}

// do executes one request and decodes a 2xx body into out. Transport and
// decode failures become NetworkFailure; error statuses become BackendError.
func (c *Client) do(ctx context.Context, op, method, path string, pathParams map[string]string, body, out any) error {
	r := c.http.R().SetContext(ctx)
	if pathParams != nil {
		r.SetPathParams(pathParams)
	}
	if body != nil {
		r.SetBody(body)
	}

	resp, err := r.Execute(method, path)
	if err != nil {
		return observe(op, networkError(op, err))
	}

	if resp.IsError() {
		var env errorEnvelope
		_ = json.Unmarshal(resp.Body(), &env)
		msg := env.message()
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode())
		}
		e := backendError(op, resp.StatusCode(), msg)
		e.Model = env.Model
		return observe(op, e)
	}

	if len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return observe(op, networkError(op, fmt.Errorf("decode response: %w", err)))
	}
	return nil
}
