package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/unitecon/internal/config"
	"github.com/bryanwahyu/unitecon/internal/domain/analysis"
)

// Fixed sampling parameters; not configurable so results stay comparable.
const (
	maxTokens        = 2500
	temperature      = 0.3
	topP             = 0.9
	frequencyPenalty = 0.1
	presencePenalty  = 0.1

	requestTimeout = 60 * time.Second
	connectTimeout = 10 * time.Second
)

// Client implements analysis.Gateway on top of an OpenAI-compatible API.
type Client struct {
	api *openai.Client
	cfg config.AI
}

func NewClient(cfg config.AI) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	oc.HTTPClient = &http.Client{
		Timeout: requestTimeout,
		Transport: &routingTransport{
			base: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         (&net.Dialer{Timeout: connectTimeout}).DialContext,
				TLSHandshakeTimeout: connectTimeout,
				MaxIdleConns:        20,
				IdleConnTimeout:     90 * time.Second,
			},
			referer: cfg.Referer,
			title:   cfg.AppTitle,
		},
	}
	return &Client{api: openai.NewClientWithConfig(oc), cfg: cfg}
}

// Send performs exactly one chat completion call.
func (c *Client) Send(ctx context.Context, system, user string) (string, error) {
	if err := c.cfg.Validate(); err != nil {
		return "", err
	}

	req := openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:        maxTokens,
		Temperature:      temperature,
		TopP:             topP,
		FrequencyPenalty: frequencyPenalty,
		PresencePenalty:  presencePenalty,
		Stream:           false,
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", mapError(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", analysis.ErrMalformedUpstreamResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// mapError folds go-openai and transport errors into the domain taxonomy.
// Upstream messages are kept for server logs; the key never appears in them.
func mapError(err error) error {
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		return statusError(apiErr.HTTPStatusCode, apiErr.Message)
	case errors.As(err, &reqErr):
		return statusError(reqErr.HTTPStatusCode, http.StatusText(reqErr.HTTPStatusCode))
	default:
		// dial failures, timeouts, cancelled contexts
		return fmt.Errorf("%w: %v", analysis.ErrUpstreamUnavailable, err)
	}
}

func statusError(status int, msg string) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w (status %d): %s", analysis.ErrUpstreamUnauthorized, status, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w (status %d): %s", analysis.ErrUpstreamRateLimited, status, msg)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w (status %d): %s", analysis.ErrUpstreamUnavailable, status, msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w (status %d): %s", analysis.ErrUpstreamBadRequest, status, msg)
	default:
		return &analysis.UpstreamUnknownError{Status: status}
	}
}

// routingTransport adds the vendor routing headers to every request.
type routingTransport struct {
	base    http.RoundTripper
	referer string
	title   string
}

func (t *routingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("HTTP-Referer", t.referer)
	r.Header.Set("X-Title", t.title)
	return t.base.RoundTrip(r)
}
