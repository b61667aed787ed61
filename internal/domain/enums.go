package domain

// ConversationStatus is the triage lifecycle state of a conversation.
type ConversationStatus string

const (
	ConversationOpen       ConversationStatus = "OPEN"
	ConversationInProgress ConversationStatus = "IN_PROGRESS"
	ConversationResolved   ConversationStatus = "RESOLVED"
	ConversationClosed     ConversationStatus = "CLOSED"
)

// MessageDirection distinguishes customer messages from agent replies.
type MessageDirection string

const (
	DirectionInbound  MessageDirection = "INBOUND"
	DirectionOutbound MessageDirection = "OUTBOUND"
)

// MessageStatus tracks how far a message has progressed through triage.
type MessageStatus string

const (
	MessageUnread   MessageStatus = "UNREAD"
	MessageRead     MessageStatus = "READ"
	MessageReplied  MessageStatus = "REPLIED"
	MessageResolved MessageStatus = "RESOLVED"
)

// UrgencyLevel is the classifier-assigned priority label.
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "LOW"
	UrgencyMedium   UrgencyLevel = "MEDIUM"
	UrgencyHigh     UrgencyLevel = "HIGH"
	UrgencyCritical UrgencyLevel = "CRITICAL"
)

// Valid reports whether l is one of the four known levels.
func (l UrgencyLevel) Valid() bool {
	switch l {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// ScoreForLevel maps an urgency level to its fixed override score.
// Unknown levels map to the MEDIUM score.
func ScoreForLevel(l UrgencyLevel) int {
	switch l {
	case UrgencyLow:
		return 3
	case UrgencyMedium:
		return 5
	case UrgencyHigh:
		return 8
	case UrgencyCritical:
		return 10
	default:
		return 5
	}
}

// AgentStatus is the advisory presence state of a support agent.
type AgentStatus string

const (
	AgentAvailable AgentStatus = "AVAILABLE"
	AgentBusy      AgentStatus = "BUSY"
	AgentOffline   AgentStatus = "OFFLINE"
)
