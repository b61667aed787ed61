// Package hub is the broadcast core: it owns connection state, routes
// client events to the state store under per-customer locks, and fans
// results out to every connected agent.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wanjiru/triagedesk/internal/domain"
	"github.com/wanjiru/triagedesk/internal/hooks"
	"github.com/wanjiru/triagedesk/internal/logging"
	"github.com/wanjiru/triagedesk/internal/presence"
	"github.com/wanjiru/triagedesk/internal/store"
)

// Conn is the hub's view of one client connection. Send must not block
// on a slow peer; the transport buffers and drops instead.
type Conn interface {
	ID() string
	Send(event string, payload any) error
	Close() error
}

// Hub routes events between connections and the store. One Dispatch
// call handles one client event; the gateway runs each in its own
// goroutine, and the per-customer lock restores ordering where it
// matters.
type Hub struct {
	store    *store.Store
	presence *presence.Registry
	hooks    *hooks.Manager
	log      *logging.Logger

	locks *keyedMutex

	connMu sync.RWMutex
	conns  map[string]Conn
}

// New creates a Hub. The hooks manager may be shared with the rest of
// the server.
func New(st *store.Store, reg *presence.Registry, hookMgr *hooks.Manager, log *logging.Logger) *Hub {
	return &Hub{
		store:    st,
		presence: reg,
		hooks:    hookMgr,
		log:      log.Sub("hub"),
		locks:    newKeyedMutex(),
		conns:    make(map[string]Conn),
	}
}

// Connect registers a connection and greets it with the current agent
// count. Only the new connection receives the greeting.
func (h *Hub) Connect(conn Conn) {
	h.connMu.Lock()
	h.conns[conn.ID()] = conn
	h.connMu.Unlock()

	h.send(conn, EventAgentsCount, h.presence.Count())
	h.log.Debug().Str("conn", conn.ID()).Msg("client connected")
}

// Disconnect removes the connection. If it had joined as an agent, the
// agent leaves presence exactly once, its stored status is set OFFLINE
// best-effort, and the roster change is broadcast. A second disconnect
// for the same connection is a no-op.
func (h *Hub) Disconnect(ctx context.Context, connID string) {
	h.connMu.Lock()
	_, known := h.conns[connID]
	delete(h.conns, connID)
	h.connMu.Unlock()
	if !known {
		return
	}

	entry, joined := h.presence.Leave(connID)
	if !joined {
		h.log.Debug().Str("conn", connID).Msg("client disconnected")
		return
	}

	if err := h.store.UpdateAgentStatus(ctx, entry.AgentID, domain.AgentOffline); err != nil {
		h.log.Warn().Err(err).Int64("agent", entry.AgentID).Msg("failed to persist offline status")
	}

	h.broadcast(EventAgentsCount, h.presence.Count())
	h.broadcast(EventAgentsList, agentList(h.presence.List()))
	h.hooks.EmitAsync(ctx, hooks.EventAgentLeft, map[string]any{"agentId": entry.AgentID})

	h.log.Info().Int64("agent", entry.AgentID).Int("online", h.presence.Count()).Msg("agent disconnected")
}

// Online returns the number of joined agents.
func (h *Hub) Online() int { return h.presence.Count() }

// Shutdown closes every connection. Used by the gateway on graceful stop.
func (h *Hub) Shutdown() {
	h.connMu.Lock()
	conns := make([]Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[string]Conn)
	h.connMu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

// Dispatch handles one client event. Unknown events get an error reply;
// handler failures go only to the originating connection.
func (h *Hub) Dispatch(ctx context.Context, connID, event string, data json.RawMessage) {
	conn, ok := h.conn(connID)
	if !ok {
		return
	}

	var err error
	switch event {
	case EventAgentJoin:
		err = h.handleJoin(ctx, conn, data)
	case EventMessageNew:
		err = h.handleNewMessage(ctx, conn, data)
	case EventMessageReply:
		err = h.handleReply(ctx, conn, data)
	case EventAgentTyping:
		h.handleTyping(conn, data, true)
	case EventAgentStoppedTyping:
		h.handleTyping(conn, data, false)
	case EventMessageRead:
		err = h.handleMessageRead(ctx, conn, data)
	case EventConversationResolve:
		err = h.handleResolve(ctx, conn, data)
	case EventConversationReopen:
		err = h.handleReopen(ctx, conn, data)
	case EventUpdateUrgency:
		err = h.handleUpdateUrgency(ctx, conn, data)
	case EventUpdatePriority:
		err = h.handleUpdatePriority(ctx, conn, data)
	default:
		err = fmt.Errorf("unknown event %q", event)
	}

	if err != nil {
		h.log.Warn().Err(err).Str("event", event).Str("conn", connID).Msg("event failed")
		h.sendError(conn, err)
	}
}

// hubError carries the client-facing message for a failed event.
type hubError struct {
	public string
	err    error
}

func (e *hubError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.public, e.err)
	}
	return e.public
}

func (e *hubError) Unwrap() error { return e.err }

func publicErr(public string, err error) error {
	return &hubError{public: public, err: err}
}

func (h *Hub) handleJoin(ctx context.Context, conn Conn, data json.RawMessage) error {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.AgentID == 0 {
		return publicErr("Invalid join payload", err)
	}
	if p.AgentName == "" {
		p.AgentName = fmt.Sprintf("Agent %d", p.AgentID)
	}

	h.presence.Join(conn.ID(), p.AgentID, p.AgentName)

	// Status persistence is advisory; a missing agent row must not
	// block the join.
	if err := h.store.UpdateAgentStatus(ctx, p.AgentID, domain.AgentAvailable); err != nil {
		h.log.Warn().Err(err).Int64("agent", p.AgentID).Msg("failed to persist available status")
	}

	h.broadcast(EventAgentsCount, h.presence.Count())
	h.broadcast(EventAgentsList, agentList(h.presence.List()))
	h.hooks.EmitAsync(ctx, hooks.EventAgentJoined, map[string]any{
		"agentId":   p.AgentID,
		"agentName": p.AgentName,
	})

	h.log.Info().Int64("agent", p.AgentID).Str("name", p.AgentName).
		Int("online", h.presence.Count()).Msg("agent joined")
	return nil
}

func (h *Hub) handleNewMessage(ctx context.Context, conn Conn, data json.RawMessage) error {
	var p newMessagePayload
	if err := json.Unmarshal(data, &p); err != nil || p.UserID <= 0 {
		return publicErr("Invalid user ID", err)
	}
	if p.Content == "" {
		return publicErr("Message content is required", nil)
	}

	cust, err := h.store.FindOrCreateCustomer(ctx, int64(p.UserID))
	if err != nil {
		return publicErr("Failed to send message", err)
	}

	h.locks.Lock(cust.ID)
	defer h.locks.Unlock(cust.ID)

	conv, _, err := h.store.FindOrCreateOpenConversation(ctx, cust.ID, time.Now())
	if err != nil {
		return publicErr("Failed to send message", err)
	}

	msg, result, err := h.store.AppendMessage(ctx, store.AppendMessageInput{
		ConversationID: conv.ID,
		CustomerID:     cust.ID,
		Content:        p.Content,
		Direction:      domain.DirectionInbound,
	})
	if err != nil {
		return publicErr("Failed to send message", err)
	}

	conv, err = h.store.Conversation(ctx, conv.ID)
	if err != nil {
		return publicErr("Failed to send message", err)
	}

	h.broadcast(EventMessageReceived, MessageEvent{
		Message:         msg,
		Customer:        &cust,
		Conversation:    &conv,
		UrgencyKeywords: result.Keywords,
	})
	h.hooks.EmitAsync(ctx, hooks.EventMessageReceived, map[string]any{
		"messageId":      msg.ID,
		"conversationId": conv.ID,
		"customerId":     cust.ID,
		"urgencyLevel":   string(msg.UrgencyLevel),
		"urgencyScore":   msg.UrgencyScore,
	})

	h.log.Info().Int64("message", msg.ID).Int64("conversation", conv.ID).
		Str("urgency", string(msg.UrgencyLevel)).Msg("message received")
	return nil
}

func (h *Hub) handleReply(ctx context.Context, conn Conn, data json.RawMessage) error {
	entry, joined := h.presence.Get(conn.ID())
	if !joined {
		return publicErr("Agent not authenticated", nil)
	}

	var p replyPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ConversationID == 0 {
		return publicErr("Invalid reply payload", err)
	}
	if p.Content == "" {
		return publicErr("Message content is required", nil)
	}

	conv, err := h.store.Conversation(ctx, p.ConversationID)
	if err != nil {
		return publicErr("Failed to send reply", err)
	}

	h.locks.Lock(conv.CustomerID)
	defer h.locks.Unlock(conv.CustomerID)

	// A reply implies the agent has seen the backlog, so the append
	// and the read-marking commit or fail together.
	msg, _, err := h.store.AppendMessage(ctx, store.AppendMessageInput{
		ConversationID:  conv.ID,
		CustomerID:      conv.CustomerID,
		Content:         p.Content,
		Direction:       domain.DirectionOutbound,
		AgentID:         &entry.AgentID,
		MarkInboundRead: true,
	})
	if err != nil {
		return publicErr("Failed to send reply", err)
	}

	cust, err := h.store.Customer(ctx, conv.CustomerID)
	if err != nil {
		return publicErr("Failed to send reply", err)
	}
	conv, err = h.store.Conversation(ctx, conv.ID)
	if err != nil {
		return publicErr("Failed to send reply", err)
	}

	ev := MessageEvent{Message: msg, Customer: &cust, Conversation: &conv}
	if agent, err := h.store.Agent(ctx, entry.AgentID); err == nil {
		ev.Agent = &agent
	}

	h.broadcast(EventMessageSent, ev)
	h.hooks.EmitAsync(ctx, hooks.EventMessageSent, map[string]any{
		"messageId":      msg.ID,
		"conversationId": conv.ID,
		"agentId":        entry.AgentID,
	})

	h.log.Info().Int64("agent", entry.AgentID).Int64("conversation", conv.ID).Msg("reply sent")
	return nil
}

func (h *Hub) handleTyping(conn Conn, data json.RawMessage, typing bool) {
	entry, joined := h.presence.Get(conn.ID())
	if !joined {
		return
	}
	var p typingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}

	ev := typingEvent{AgentID: entry.AgentID, ConversationID: p.ConversationID}
	event := EventAgentStoppedTyping
	if typing {
		ev.AgentName = entry.AgentName
		event = EventAgentTyping
	}
	h.broadcastExcept(conn.ID(), event, ev)
}

func (h *Hub) handleMessageRead(ctx context.Context, conn Conn, data json.RawMessage) error {
	id, err := parseID(data)
	if err != nil {
		return publicErr("Invalid message ID", err)
	}

	if err := h.store.MarkMessageRead(ctx, id); err != nil {
		return publicErr("Failed to mark message read", err)
	}

	h.broadcast(EventMessageStatus, statusEvent{MessageID: id, Status: domain.MessageRead})
	return nil
}

func (h *Hub) handleResolve(ctx context.Context, conn Conn, data json.RawMessage) error {
	id, err := parseID(data)
	if err != nil {
		return publicErr("Invalid conversation ID", err)
	}

	conv, err := h.store.Conversation(ctx, id)
	if err != nil {
		return publicErr("Failed to resolve conversation", err)
	}

	h.locks.Lock(conv.CustomerID)
	defer h.locks.Unlock(conv.CustomerID)

	if err := h.store.ResolveConversation(ctx, id); err != nil {
		return publicErr("Failed to resolve conversation", err)
	}

	h.broadcast(EventConversationResolved, conversationEvent{ConversationID: id})
	h.hooks.EmitAsync(ctx, hooks.EventConversationResolved, map[string]any{"conversationId": id})

	h.log.Info().Int64("conversation", id).Msg("conversation resolved")
	return nil
}

func (h *Hub) handleReopen(ctx context.Context, conn Conn, data json.RawMessage) error {
	id, err := parseID(data)
	if err != nil {
		return publicErr("Invalid conversation ID", err)
	}

	conv, err := h.store.Conversation(ctx, id)
	if err != nil {
		return publicErr("Failed to reopen conversation", err)
	}

	h.locks.Lock(conv.CustomerID)
	defer h.locks.Unlock(conv.CustomerID)

	if err := h.store.ReopenConversation(ctx, id); err != nil {
		return publicErr("Failed to reopen conversation", err)
	}

	h.broadcast(EventConversationReopened, conversationEvent{ConversationID: id})
	h.hooks.EmitAsync(ctx, hooks.EventConversationReopened, map[string]any{"conversationId": id})

	h.log.Info().Int64("conversation", id).Msg("conversation reopened")
	return nil
}

func (h *Hub) handleUpdateUrgency(ctx context.Context, conn Conn, data json.RawMessage) error {
	var p updateUrgencyPayload
	if err := json.Unmarshal(data, &p); err != nil || p.MessageID == 0 {
		return publicErr("Invalid urgency payload", err)
	}
	if !p.UrgencyLevel.Valid() {
		return publicErr("Invalid urgency level", nil)
	}

	msg, err := h.store.Message(ctx, p.MessageID)
	if err != nil {
		return publicErr("Failed to update urgency", err)
	}

	h.locks.Lock(msg.CustomerID)
	defer h.locks.Unlock(msg.CustomerID)

	convID, err := h.store.OverrideMessageUrgency(ctx, p.MessageID, p.UrgencyLevel)
	if err != nil {
		return publicErr("Failed to update urgency", err)
	}

	h.broadcast(EventUrgencyUpdated, urgencyUpdatedEvent{
		MessageID:      p.MessageID,
		UrgencyLevel:   p.UrgencyLevel,
		ConversationID: convID,
	})
	return nil
}

func (h *Hub) handleUpdatePriority(ctx context.Context, conn Conn, data json.RawMessage) error {
	var p updatePriorityPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ConversationID == 0 {
		return publicErr("Invalid priority payload", err)
	}
	if !p.Priority.Valid() {
		return publicErr("Invalid priority level", nil)
	}

	conv, err := h.store.Conversation(ctx, p.ConversationID)
	if err != nil {
		return publicErr("Failed to update priority", err)
	}

	h.locks.Lock(conv.CustomerID)
	defer h.locks.Unlock(conv.CustomerID)

	if err := h.store.OverrideConversationPriority(ctx, p.ConversationID, p.Priority); err != nil {
		return publicErr("Failed to update priority", err)
	}

	h.broadcast(EventPriorityUpdated, priorityUpdatedEvent{
		ConversationID: p.ConversationID,
		Priority:       p.Priority,
	})
	return nil
}

func (h *Hub) conn(id string) (Conn, bool) {
	h.connMu.RLock()
	defer h.connMu.RUnlock()
	c, ok := h.conns[id]
	return c, ok
}

// broadcast sends to every connection in stable id order.
func (h *Hub) broadcast(event string, payload any) {
	h.broadcastExcept("", event, payload)
}

func (h *Hub) broadcastExcept(skipID, event string, payload any) {
	h.connMu.RLock()
	conns := make([]Conn, 0, len(h.conns))
	for id, c := range h.conns {
		if id == skipID {
			continue
		}
		conns = append(conns, c)
	}
	h.connMu.RUnlock()

	sort.Slice(conns, func(i, j int) bool { return conns[i].ID() < conns[j].ID() })
	for _, c := range conns {
		h.send(c, event, payload)
	}
}

func (h *Hub) send(conn Conn, event string, payload any) {
	if err := conn.Send(event, payload); err != nil {
		h.log.Debug().Err(err).Str("conn", conn.ID()).Str("event", event).Msg("send failed")
	}
}

func (h *Hub) sendError(conn Conn, err error) {
	msg := "Internal error"
	var he *hubError
	if errors.As(err, &he) {
		msg = he.public
	}
	h.send(conn, EventError, errorEvent{Message: msg})
}
