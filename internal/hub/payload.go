package hub

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wanjiru/triagedesk/internal/domain"
	"github.com/wanjiru/triagedesk/internal/presence"
)

// Client event names.
const (
	EventAgentJoin           = "agent:join"
	EventMessageNew          = "message:new"
	EventMessageReply        = "message:reply"
	EventAgentTyping         = "agent:typing"
	EventAgentStoppedTyping  = "agent:stopped-typing"
	EventMessageRead         = "message:read"
	EventConversationResolve = "conversation:resolve"
	EventConversationReopen  = "conversation:reopen"
	EventUpdateUrgency       = "message:update-urgency"
	EventUpdatePriority      = "conversation:update-priority"
)

// Server event names.
const (
	EventAgentsCount          = "agents:count"
	EventAgentsList           = "agents:list"
	EventMessageReceived      = "message:received"
	EventMessageSent          = "message:sent"
	EventMessageStatus        = "message:status"
	EventConversationResolved = "conversation:resolved"
	EventConversationReopened = "conversation:reopened"
	EventUrgencyUpdated       = "message:urgency-updated"
	EventPriorityUpdated      = "conversation:priority-updated"
	EventError                = "error"
)

// externalID accepts a JSON number or a numeric string, the two shapes
// upstream systems send for user ids.
type externalID int64

func (e *externalID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", s)
	}
	*e = externalID(v)
	return nil
}

type joinPayload struct {
	AgentID   int64  `json:"agentId"`
	AgentName string `json:"agentName"`
}

type newMessagePayload struct {
	UserID  externalID `json:"userId"`
	Content string     `json:"content"`
}

type replyPayload struct {
	CustomerID     int64  `json:"customerId"`
	ConversationID int64  `json:"conversationId"`
	Content        string `json:"content"`
}

type typingPayload struct {
	ConversationID int64 `json:"conversationId"`
}

type updateUrgencyPayload struct {
	MessageID    int64               `json:"messageId"`
	UrgencyLevel domain.UrgencyLevel `json:"urgencyLevel"`
}

type updatePriorityPayload struct {
	ConversationID int64               `json:"conversationId"`
	Priority       domain.UrgencyLevel `json:"priority"`
}

// MessageEvent is the enriched message broadcast to agents.
type MessageEvent struct {
	domain.Message
	Customer        *domain.Customer     `json:"customer,omitempty"`
	Conversation    *domain.Conversation `json:"conversation,omitempty"`
	Agent           *domain.Agent        `json:"agent,omitempty"`
	UrgencyKeywords []string             `json:"urgencyKeywords,omitempty"`
}

type typingEvent struct {
	AgentID        int64  `json:"agentId"`
	AgentName      string `json:"agentName,omitempty"`
	ConversationID int64  `json:"conversationId"`
}

type statusEvent struct {
	MessageID int64                `json:"messageId"`
	Status    domain.MessageStatus `json:"status"`
}

type conversationEvent struct {
	ConversationID int64 `json:"conversationId"`
}

type urgencyUpdatedEvent struct {
	MessageID      int64               `json:"messageId"`
	UrgencyLevel   domain.UrgencyLevel `json:"urgencyLevel"`
	ConversationID int64               `json:"conversationId"`
}

type priorityUpdatedEvent struct {
	ConversationID int64               `json:"conversationId"`
	Priority       domain.UrgencyLevel `json:"priority"`
}

type errorEvent struct {
	Message string `json:"message"`
}

type agentListEntry struct {
	AgentID   int64     `json:"agentId"`
	AgentName string    `json:"agentName"`
	JoinedAt  time.Time `json:"joinedAt"`
}

func agentList(entries []presence.Entry) []agentListEntry {
	out := make([]agentListEntry, len(entries))
	for i, e := range entries {
		out[i] = agentListEntry{AgentID: e.AgentID, AgentName: e.AgentName, JoinedAt: e.JoinedAt}
	}
	return out
}

func parseID(data json.RawMessage) (int64, error) {
	var id externalID
	if err := json.Unmarshal(data, &id); err != nil {
		return 0, err
	}
	return int64(id), nil
}
