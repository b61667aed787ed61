// Package domain defines the core support-desk entities shared by the
// state store, the broadcast hub, and the HTTP layer.
package domain

import "time"

// Customer is the identity anchor for a person messaging in. Created on
// the first message from a previously unseen external user id.
type Customer struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"userId"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	AccountStatus string    `json:"accountStatus"`
	CreditScore   *int      `json:"creditScore,omitempty"`
	AccountAge    string    `json:"accountAge,omitempty"`
	LoanStatus    string    `json:"loanStatus,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Conversation is the unit of triage. At most one conversation per
// customer may be OPEN or IN_PROGRESS at any time.
type Conversation struct {
	ID            int64              `json:"id"`
	CustomerID    int64              `json:"customerId"`
	AgentID       *int64             `json:"agentId,omitempty"`
	Status        ConversationStatus `json:"status"`
	LastMessageAt time.Time          `json:"lastMessageAt"`
	ResolvedAt    *time.Time         `json:"resolvedAt,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// Open reports whether the conversation counts against the
// one-open-conversation-per-customer rule.
func (c Conversation) Open() bool {
	return c.Status == ConversationOpen || c.Status == ConversationInProgress
}

// Message is one inbound or outbound turn. Immutable after creation
// except for its status and urgency fields.
type Message struct {
	ID             int64            `json:"id"`
	CustomerID     int64            `json:"customerId"`
	ConversationID int64            `json:"conversationId"`
	Content        string           `json:"content"`
	Direction      MessageDirection `json:"direction"`
	UrgencyScore   int              `json:"urgencyScore"`
	UrgencyLevel   UrgencyLevel     `json:"urgencyLevel"`
	Status         MessageStatus    `json:"status"`
	AgentID        *int64           `json:"agentId,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// Agent is a support operator. Status is advisory presence driven by
// the connection lifecycle, not a lock.
type Agent struct {
	ID           int64       `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Status       AgentStatus `json:"status"`
	LastActiveAt time.Time   `json:"lastActiveAt"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// CannedResponse is a reusable reply template for agents.
type CannedResponse struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
