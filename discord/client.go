package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

const DefaultAPIHost = "https://discord.com/api/v10"

// JSON error codes the indexer cares about.
const (
	ErrorCodeUnknownChannel      = 10003
	ErrorCodeMissingAccess       = 50001
	ErrorCodeInvalidWebhookToken = 50027
)

// APIError is a non-2xx response from the Discord REST API.
type APIError struct {
	StatusCode int
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord API error (HTTP %d, code %d): %s", e.StatusCode, e.Code, e.Message)
}

// IsTransient reports whether an error from a history fetch is worth
// resuming the pass for: server-side hiccups and the expired ephemeral
// webhook token that Discord surfaces mid-pagination on old channels.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.Code == ErrorCodeInvalidWebhookToken
	}
	return false
}

// Client is a minimal Discord REST client. Requests are rate limited
// client-side and retried on 429/5xx by the underlying retryable transport.
type Client struct {
	Host      string
	UserAgent string

	token   string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewClient(token string) *Client {
	retry := retryablehttp.NewClient()
	retry.RetryMax = 4
	retry.RetryWaitMin = time.Second
	retry.RetryWaitMax = 30 * time.Second
	retry.Logger = nil
	retry.HTTPClient = cleanhttp.DefaultPooledClient()
	retry.HTTPClient.Timeout = 60 * time.Second

	return &Client{
		Host:      DefaultAPIHost,
		UserAgent: "sibas/0.1",
		token:     token,
		http:      retry.StandardClient(),
		// Stay under the global 50 req/s application limit.
		limiter: rate.NewLimiter(rate.Limit(40), 5),
		logger:  slog.Default().With("component", "discord"),
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.Host + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("User-Agent", c.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if err := json.Unmarshal(raw, apiErr); err != nil {
			apiErr.Message = string(raw)
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// Application returns the bot's own application, used to learn the
// application ID for command registration and interaction edits.
func (c *Client) Application(ctx context.Context) (*struct {
	ID Snowflake `json:"id"`
}, error) {
	out := &struct {
		ID Snowflake `json:"id"`
	}{}
	if err := c.do(ctx, http.MethodGet, "/applications/@me", nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GatewayURL resolves the websocket URL for the gateway connection.
func (c *Client) GatewayURL(ctx context.Context) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodGet, "/gateway/bot", nil, nil, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

func (c *Client) Channel(ctx context.Context, id Snowflake) (*Channel, error) {
	var out Channel
	if err := c.do(ctx, http.MethodGet, "/channels/"+id.String(), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GuildChannels(ctx context.Context, guildID Snowflake) ([]*Channel, error) {
	var out []*Channel
	if err := c.do(ctx, http.MethodGet, "/guilds/"+guildID.String()+"/channels", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GuildRoles(ctx context.Context, guildID Snowflake) ([]*Role, error) {
	var roles []*Role
	path := "/guilds/" + guildID.String() + "/roles"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

func (c *Client) GuildMember(ctx context.Context, guildID, userID Snowflake) (*Member, error) {
	var member Member
	path := "/guilds/" + guildID.String() + "/members/" + userID.String()
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// MessagesBefore fetches up to limit messages older than beforeID,
// newest-first (the API's native order). A zero beforeID means "newest
// messages in the channel".
func (c *Client) MessagesBefore(ctx context.Context, channelID uint64, beforeID uint64, limit int) ([]*Message, error) {
	query := url.Values{}
	query.Set("limit", fmt.Sprintf("%d", limit))
	if beforeID != 0 {
		query.Set("before", Snowflake(beforeID).String())
	}
	return c.messages(ctx, channelID, query)
}

// MessagesAfter fetches up to limit messages newer than afterID,
// oldest-first. An afterID of zero fetches from the beginning of the
// channel's history.
func (c *Client) MessagesAfter(ctx context.Context, channelID uint64, afterID uint64, limit int) ([]*Message, error) {
	query := url.Values{}
	query.Set("limit", fmt.Sprintf("%d", limit))
	query.Set("after", Snowflake(afterID).String())

	msgs, err := c.messages(ctx, channelID, query)
	if err != nil {
		return nil, err
	}
	// The API returns newest-first even with `after`; flip to oldest-first.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (c *Client) messages(ctx context.Context, channelID uint64, query url.Values) ([]*Message, error) {
	var out []*Message
	path := "/channels/" + Snowflake(channelID).String() + "/messages"
	if err := c.do(ctx, http.MethodGet, path, query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CanReadHistory probes whether the bot can read a channel's history by
// fetching a single message. Used by the command/sweep layer to skip
// channels before a pass ever starts.
func (c *Client) CanReadHistory(ctx context.Context, channelID uint64) bool {
	_, err := c.MessagesBefore(ctx, channelID, 0, 1)
	if err == nil {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) &&
		(apiErr.StatusCode == http.StatusForbidden || apiErr.Code == ErrorCodeMissingAccess) {
		return false
	}
	// Unclear errors fall through to the indexing pass, which will surface
	// them properly.
	return true
}

func (c *Client) CreateMessage(ctx context.Context, channelID Snowflake, data *ResponseData) (*Message, error) {
	var out Message
	path := "/channels/" + channelID.String() + "/messages"
	if err := c.do(ctx, http.MethodPost, path, nil, data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) EditMessage(ctx context.Context, channelID, messageID Snowflake, data *ResponseData) error {
	path := "/channels/" + channelID.String() + "/messages/" + messageID.String()
	return c.do(ctx, http.MethodPatch, path, nil, data, nil)
}

// RegisterGuildCommands bulk-overwrites the application's slash commands in
// one guild. Guild commands propagate instantly, unlike global ones.
func (c *Client) RegisterGuildCommands(ctx context.Context, appID, guildID Snowflake, commands []Command) error {
	path := "/applications/" + appID.String() + "/guilds/" + guildID.String() + "/commands"
	return c.do(ctx, http.MethodPut, path, nil, commands, nil)
}

func (c *Client) RegisterGlobalCommands(ctx context.Context, appID Snowflake, commands []Command) error {
	path := "/applications/" + appID.String() + "/commands"
	return c.do(ctx, http.MethodPut, path, nil, commands, nil)
}

// Respond sends the initial response to an interaction.
func (c *Client) Respond(ctx context.Context, ix *Interaction, resp *InteractionResponse) error {
	path := "/interactions/" + ix.ID.String() + "/" + ix.Token + "/callback"
	return c.do(ctx, http.MethodPost, path, nil, resp, nil)
}

// EditResponse updates the original response of an interaction after the
// fact, used for progress edits during long foreground index passes.
func (c *Client) EditResponse(ctx context.Context, appID Snowflake, token string, data *ResponseData) error {
	path := "/webhooks/" + appID.String() + "/" + token + "/messages/@original"
	return c.do(ctx, http.MethodPatch, path, nil, data, nil)
}

// DeleteResponse removes the original response of an interaction.
func (c *Client) DeleteResponse(ctx context.Context, appID Snowflake, token string) error {
	path := "/webhooks/" + appID.String() + "/" + token + "/messages/@original"
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}
