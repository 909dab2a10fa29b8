package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Gateway intents for the events the bot consumes.
const (
	IntentGuilds                = 1 << 0
	IntentGuildMessages         = 1 << 9
	IntentGuildMessageReactions = 1 << 10
	IntentMessageContent        = 1 << 15
)

// Gateway opcodes.
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatAck   = 11
)

type gatewayPayload struct {
	Op   int             `json:"op"`
	Data json.RawMessage `json:"d"`
	Seq  *int64          `json:"s"`
	Type string          `json:"t"`
}

type ReadyEvent struct {
	User   *User `json:"user"`
	Guilds []struct {
		ID Snowflake `json:"id"`
	} `json:"guilds"`
}

// MessageDeleteEvent covers both single and bulk deletes.
type MessageDeleteEvent struct {
	ID        Snowflake   `json:"id,omitempty"`
	IDs       []Snowflake `json:"ids,omitempty"`
	ChannelID Snowflake   `json:"channel_id"`
	GuildID   Snowflake   `json:"guild_id,omitempty"`
}

type ReactionEvent struct {
	UserID    Snowflake `json:"user_id,omitempty"`
	ChannelID Snowflake `json:"channel_id"`
	MessageID Snowflake `json:"message_id"`
	GuildID   Snowflake `json:"guild_id,omitempty"`
	Emoji     Emoji     `json:"emoji"`
}

// GatewayCallbacks receives dispatched events. Nil callbacks are skipped.
// Handlers run on the read loop goroutine and therefore see events for any
// one channel in gateway order.
type GatewayCallbacks struct {
	Ready               func(*ReadyEvent)
	MessageCreate       func(*Message)
	MessageUpdate       func(*Message)
	MessageDelete       func(*MessageDeleteEvent)
	MessageDeleteBulk   func(*MessageDeleteEvent)
	ReactionAdd         func(*ReactionEvent)
	ReactionRemove      func(*ReactionEvent)
	ReactionRemoveAll   func(*ReactionEvent)
	ReactionRemoveEmoji func(*ReactionEvent)
	InteractionCreate   func(*Interaction)
}

// Gateway maintains the live websocket connection to Discord, reconnecting
// with jittered backoff when the connection drops.
type Gateway struct {
	Callbacks *GatewayCallbacks

	client  *Client
	token   string
	intents int
	logger  *slog.Logger

	writeMu sync.Mutex
	lastSeq atomic.Int64
}

func NewGateway(client *Client, token string, callbacks *GatewayCallbacks) *Gateway {
	return &Gateway{
		Callbacks: callbacks,
		client:    client,
		token:     token,
		intents:   IntentGuilds | IntentGuildMessages | IntentGuildMessageReactions | IntentMessageContent,
		logger:    slog.Default().With("component", "gateway"),
	}
}

// Run connects and consumes events until the context is cancelled.
func (g *Gateway) Run(ctx context.Context) error {
	retries := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		start := time.Now()
		err := g.connectAndConsume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// A connection that survived a while earns a fresh backoff.
		if time.Since(start) > time.Minute {
			retries = 0
		}
		wait := backoff(retries, 60)
		retries++
		g.logger.Warn("gateway connection lost, reconnecting", "error", err, "backoff", wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func backoff(retries int, maxSeconds int) time.Duration {
	// Clamp before shifting: a long outage would otherwise overflow the
	// shift and collapse the wait to jitter only.
	if retries > 30 {
		retries = 30
	}
	dur := 1 << retries
	if dur > maxSeconds {
		dur = maxSeconds
	}
	jitter := time.Millisecond * time.Duration(rand.Intn(1000))
	return time.Second*time.Duration(dur) + jitter
}

func (g *Gateway) connectAndConsume(ctx context.Context) error {
	gatewayURL, err := g.client.GatewayURL(ctx)
	if err != nil {
		return fmt.Errorf("resolving gateway URL: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, gatewayURL+"?v=10&encoding=json", nil)
	if err != nil {
		return fmt.Errorf("dialing gateway: %w", err)
	}
	defer conn.Close()

	// First frame must be HELLO with the heartbeat interval.
	var hello gatewayPayload
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("reading hello: %w", err)
	}
	if hello.Op != opHello {
		return fmt.Errorf("expected hello opcode, got %d", hello.Op)
	}
	var helloData struct {
		HeartbeatInterval int `json:"heartbeat_interval"`
	}
	if err := json.Unmarshal(hello.Data, &helloData); err != nil {
		return fmt.Errorf("decoding hello: %w", err)
	}

	if err := g.send(conn, opIdentify, map[string]any{
		"token":   g.token,
		"intents": g.intents,
		"properties": map[string]string{
			"os":      "linux",
			"browser": "sibas",
			"device":  "sibas",
		},
	}); err != nil {
		return fmt.Errorf("sending identify: %w", err)
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go g.heartbeatLoop(hbCtx, conn, time.Duration(helloData.HeartbeatInterval)*time.Millisecond)

	for {
		var payload gatewayPayload
		if err := conn.ReadJSON(&payload); err != nil {
			return fmt.Errorf("reading gateway frame: %w", err)
		}
		if payload.Seq != nil {
			g.lastSeq.Store(*payload.Seq)
		}

		switch payload.Op {
		case opDispatch:
			g.dispatch(payload.Type, payload.Data)
		case opHeartbeat:
			if err := g.send(conn, opHeartbeat, g.lastSeq.Load()); err != nil {
				return err
			}
		case opReconnect, opInvalidSession:
			return fmt.Errorf("gateway requested reconnect (op %d)", payload.Op)
		case opHeartbeatAck:
			// nothing to do
		}
	}
}

func (g *Gateway) heartbeatLoop(ctx context.Context, conn *websocket.Conn, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := g.send(conn, opHeartbeat, g.lastSeq.Load()); err != nil {
				g.logger.Debug("heartbeat failed", "error", err)
				conn.Close()
				return
			}
		}
	}
}

func (g *Gateway) send(conn *websocket.Conn, op int, data any) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	return conn.WriteJSON(map[string]any{"op": op, "d": data})
}

func (g *Gateway) dispatch(eventType string, data json.RawMessage) {
	cb := g.Callbacks
	if cb == nil {
		return
	}

	var err error
	switch eventType {
	case "READY":
		err = decodeTo(data, cb.Ready)
	case "MESSAGE_CREATE":
		err = decodeTo(data, cb.MessageCreate)
	case "MESSAGE_UPDATE":
		err = decodeTo(data, cb.MessageUpdate)
	case "MESSAGE_DELETE":
		err = decodeTo(data, cb.MessageDelete)
	case "MESSAGE_DELETE_BULK":
		err = decodeTo(data, cb.MessageDeleteBulk)
	case "MESSAGE_REACTION_ADD":
		err = decodeTo(data, cb.ReactionAdd)
	case "MESSAGE_REACTION_REMOVE":
		err = decodeTo(data, cb.ReactionRemove)
	case "MESSAGE_REACTION_REMOVE_ALL":
		err = decodeTo(data, cb.ReactionRemoveAll)
	case "MESSAGE_REACTION_REMOVE_EMOJI":
		err = decodeTo(data, cb.ReactionRemoveEmoji)
	case "INTERACTION_CREATE":
		err = decodeTo(data, cb.InteractionCreate)
	}
	if err != nil {
		g.logger.Error("failed to decode gateway event", "type", eventType, "error", err)
	}
}

func decodeTo[T any](data json.RawMessage, handler func(*T)) error {
	if handler == nil {
		return nil
	}
	evt := new(T)
	if err := json.Unmarshal(data, evt); err != nil {
		return err
	}
	handler(evt)
	return nil
}
