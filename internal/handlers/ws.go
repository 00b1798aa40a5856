package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AzimPial/Chat-Us/internal/models"
	"github.com/AzimPial/Chat-Us/internal/realtime"
	"github.com/AzimPial/Chat-Us/internal/services"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 4096
	wsSendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Session auth happens before the upgrade; cross-origin browser clients
	// are expected.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WSHandler struct {
	broker              *realtime.Broker
	userService         services.UserServiceInterface
	friendService       services.FriendServiceInterface
	conversationService services.ConversationServiceInterface
	messageService      services.MessageServiceInterface
}

func NewWSHandler(
	broker *realtime.Broker,
	userService services.UserServiceInterface,
	friendService services.FriendServiceInterface,
	conversationService services.ConversationServiceInterface,
	messageService services.MessageServiceInterface,
) *WSHandler {
	return &WSHandler{
		broker:              broker,
		userService:         userService,
		friendService:       friendService,
		conversationService: conversationService,
		messageService:      messageService,
	}
}

// clientCommand is one frame from the client.
type clientCommand struct {
	Action string `json:"action"` // "subscribe" or "unsubscribe"
	Topic  string `json:"topic"`
}

type wsClient struct {
	handler *WSHandler
	conn    *websocket.Conn
	user    *models.User
	send    chan realtime.Event

	mu     sync.Mutex
	subs   map[string]*realtime.Subscription
	closed bool
}

// Serve upgrades the connection and runs the read/write pumps until the
// client disconnects. Each subscribed topic yields a snapshot event first,
// then live events in order.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error upgrading websocket: %v", err)
		return
	}

	client := &wsClient{
		handler: h,
		conn:    conn,
		user:    user,
		send:    make(chan realtime.Event, wsSendBuffer),
		subs:    make(map[string]*realtime.Subscription),
	}

	go client.writePump()
	client.readPump()
}

func (c *wsClient) readPump() {
	defer c.teardown()

	c.conn.SetReadLimit(wsMaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Websocket read error: %v", err)
			}
			return
		}

		var cmd clientCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			c.sendError(cmd.Topic, "malformed command")
			continue
		}

		switch cmd.Action {
		case "subscribe":
			c.subscribe(cmd.Topic)
		case "unsubscribe":
			c.unsubscribe(cmd.Topic)
		default:
			c.sendError(cmd.Topic, "unknown action")
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// subscribe authorizes the topic, attaches a broker subscription, sends the
// current state as a snapshot, then forwards live events. Subscribing to an
// already-subscribed topic resends the snapshot.
func (c *wsClient) subscribe(topic string) {
	ctx := context.Background()

	if !c.authorized(ctx, topic) {
		c.sendError(topic, "not authorized for topic")
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if prev, ok := c.subs[topic]; ok {
		prev.Unsubscribe()
		delete(c.subs, topic)
	}
	sub := c.handler.broker.Subscribe(topic, wsSendBuffer)
	c.subs[topic] = sub
	c.mu.Unlock()

	if snapshot, err := c.snapshot(ctx, topic); err != nil {
		log.Printf("Error building snapshot for %s: %v", topic, err)
		c.sendError(topic, "snapshot failed")
	} else {
		c.deliver(realtime.Event{Topic: topic, Kind: realtime.KindSnapshot, Data: snapshot})
	}

	go func() {
		for event := range sub.C {
			c.deliver(event)
		}
		// The stream closed under us. If the topic is still registered this
		// was a broker-side drop, not an unsubscribe; the client would keep
		// believing it is live on a dead topic, so disconnect it and let the
		// reconnect re-sync from fresh snapshots.
		c.mu.Lock()
		dropped := !c.closed && c.subs[topic] == sub
		c.mu.Unlock()
		if dropped {
			c.teardown()
		}
	}()
}

func (c *wsClient) unsubscribe(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sub, ok := c.subs[topic]; ok {
		sub.Unsubscribe()
		delete(c.subs, topic)
	}
}

// authorized enforces topic visibility: profile streams are public to any
// signed-in user, the per-user streams belong to their owner only, and
// conversation streams require participation.
func (c *wsClient) authorized(ctx context.Context, topic string) bool {
	kind, rest, ok := strings.Cut(topic, ":")
	if !ok {
		return false
	}

	switch kind {
	case "profile":
		_, err := uuid.Parse(rest)
		return err == nil
	case "friends", "requests", "conversations":
		return rest == c.user.ID.String()
	case "conversation":
		canAccess, err := c.handler.messageService.CanAccess(ctx, rest, c.user.ID)
		if err != nil {
			log.Printf("Error authorizing conversation topic: %v", err)
			return false
		}
		return canAccess
	default:
		return false
	}
}

// snapshot materializes the current state behind a topic so a new subscriber
// starts from a consistent point before live events.
func (c *wsClient) snapshot(ctx context.Context, topic string) (json.RawMessage, error) {
	kind, rest, _ := strings.Cut(topic, ":")

	switch kind {
	case "profile":
		id, err := uuid.Parse(rest)
		if err != nil {
			return nil, err
		}
		profile, err := c.handler.userService.GetProfile(ctx, id)
		if err != nil {
			return nil, err
		}
		return json.Marshal(profile)
	case "friends":
		friends, err := c.handler.friendService.ListFriends(ctx, c.user.ID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(friends)
	case "requests":
		requests, err := c.handler.friendService.ListRequests(ctx, c.user.ID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(requests)
	case "conversations":
		summaries, err := c.handler.conversationService.ListSummaries(ctx, c.user.ID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(summaries)
	case "conversation":
		messages, err := c.handler.messageService.History(ctx, rest, c.user.ID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(messages)
	default:
		return nil, services.ErrInvalidOperation
	}
}

// deliver queues an event for the write pump. A full buffer means the client
// cannot keep up; silently skipping an event would break the per-stream
// ordering contract, so the connection is closed instead and the client
// re-syncs from fresh snapshots on reconnect.
func (c *wsClient) deliver(event realtime.Event) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	select {
	case c.send <- event:
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		c.teardown()
	}
}

func (c *wsClient) sendError(topic, reason string) {
	data, _ := json.Marshal(map[string]string{"error": reason})
	c.deliver(realtime.Event{Topic: topic, Kind: "error", Data: data})
}

func (c *wsClient) teardown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs := c.subs
	c.subs = make(map[string]*realtime.Subscription)
	close(c.send)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
