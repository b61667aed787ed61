package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wanjiru/triagedesk/internal/domain"
)

// urgencyRank orders urgency levels inside SQL. Higher is more urgent.
const urgencyRank = `CASE urgency_level
	WHEN 'CRITICAL' THEN 4
	WHEN 'HIGH' THEN 3
	WHEN 'MEDIUM' THEN 2
	ELSE 1 END`

// ConversationSummary is one row of the triage inbox: the conversation,
// its customer, and fields derived from its unread inbound messages.
type ConversationSummary struct {
	Conversation   domain.Conversation `json:"conversation"`
	Customer       domain.Customer     `json:"customer"`
	LastMessage    *domain.Message     `json:"lastMessage,omitempty"`
	UnreadCount    int                 `json:"unreadCount"`
	HighestUrgency domain.UrgencyLevel `json:"highestUrgency"`
}

// ConversationFilter narrows ListConversations.
type ConversationFilter struct {
	Status domain.ConversationStatus // empty means all
	Limit  int
	Offset int
}

// ListConversations returns the inbox ordered by highest unread urgency
// first, then most recent activity. HighestUrgency and UnreadCount are
// derived from unread inbound messages at query time, never stored.
func (s *Store) ListConversations(ctx context.Context, f ConversationFilter) ([]ConversationSummary, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}

	query := `
		SELECT c.id, c.customer_id, c.agent_id, c.status, c.last_message_at,
		       c.resolved_at, c.created_at, c.updated_at,
		       COALESCE((SELECT COUNT(*) FROM messages m
		                 WHERE m.conversation_id = c.id
		                   AND m.direction = 'INBOUND' AND m.status = 'UNREAD'), 0) AS unread,
		       COALESCE((SELECT MAX(` + urgencyRank + `) FROM messages m
		                 WHERE m.conversation_id = c.id
		                   AND m.direction = 'INBOUND' AND m.status = 'UNREAD'), 0) AS urgency
		FROM conversations c`
	var args []any
	if f.Status != "" {
		query += ` WHERE c.status = ?`
		args = append(args, f.Status)
	}
	query += ` ORDER BY urgency DESC, c.last_message_at DESC, c.id DESC LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset)

	rows, err := s.db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var out []ConversationSummary
	for rows.Next() {
		var sum ConversationSummary
		var rank int
		c := &sum.Conversation
		var agentID sql.NullInt64
		var lastMsg, createdAt, updatedAt string
		var resolvedAt sql.NullString
		err := rows.Scan(&c.ID, &c.CustomerID, &agentID, &c.Status, &lastMsg,
			&resolvedAt, &createdAt, &updatedAt, &sum.UnreadCount, &rank)
		if err != nil {
			return nil, fmt.Errorf("scanning conversation summary: %w", err)
		}
		c.AgentID = nullInt(agentID)
		c.LastMessageAt = parseTime(lastMsg)
		c.ResolvedAt = nullTime(resolvedAt)
		c.CreatedAt = parseTime(createdAt)
		c.UpdatedAt = parseTime(updatedAt)
		sum.HighestUrgency = levelForRank(rank)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		cust, err := s.Customer(ctx, out[i].Conversation.CustomerID)
		if err != nil {
			return nil, err
		}
		out[i].Customer = cust

		last, err := s.lastMessage(ctx, out[i].Conversation.ID)
		if err != nil {
			return nil, err
		}
		out[i].LastMessage = last
	}
	return out, nil
}

func levelForRank(rank int) domain.UrgencyLevel {
	switch rank {
	case 4:
		return domain.UrgencyCritical
	case 3:
		return domain.UrgencyHigh
	case 2:
		return domain.UrgencyMedium
	default:
		return domain.UrgencyLow
	}
}

func (s *Store) lastMessage(ctx context.Context, conversationID int64) (*domain.Message, error) {
	row := s.db.sql.QueryRowContext(ctx,
		`SELECT `+messageCols+` FROM messages
		 WHERE conversation_id = ? ORDER BY timestamp DESC, id DESC LIMIT 1`,
		conversationID)
	msg, err := scanMessage(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ConversationMessages returns the full transcript in chronological order.
func (s *Store) ConversationMessages(ctx context.Context, conversationID int64) ([]domain.Message, error) {
	if _, err := s.Conversation(ctx, conversationID); err != nil {
		return nil, err
	}
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT `+messageCols+` FROM messages
		 WHERE conversation_id = ? ORDER BY timestamp, id`,
		conversationID)
	if err != nil {
		return nil, fmt.Errorf("listing conversation messages: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

// MessageFilter narrows ListMessages. Zero values mean "any".
type MessageFilter struct {
	CustomerID int64
	Direction  domain.MessageDirection
	Status     domain.MessageStatus
	Urgency    domain.UrgencyLevel
	Limit      int
	Offset     int
}

// ListMessages returns messages newest first, filtered.
func (s *Store) ListMessages(ctx context.Context, f MessageFilter) ([]domain.Message, error) {
	if f.Limit <= 0 {
		f.Limit = 100
	}

	query := `SELECT ` + messageCols + ` FROM messages WHERE 1=1`
	var args []any
	if f.CustomerID != 0 {
		query += ` AND customer_id = ?`
		args = append(args, f.CustomerID)
	}
	if f.Direction != "" {
		query += ` AND direction = ?`
		args = append(args, f.Direction)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.Urgency != "" {
		query += ` AND urgency_level = ?`
		args = append(args, f.Urgency)
	}
	query += ` ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset)

	rows, err := s.db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

func collectMessages(rows *sql.Rows) ([]domain.Message, error) {
	var out []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SearchResults groups matches across entities for the global search box.
type SearchResults struct {
	Customers []domain.Customer `json:"customers"`
	Messages  []domain.Message  `json:"messages"`
}

// Search matches customers by name, email or phone and messages by
// content, using a case-insensitive substring match.
func (s *Store) Search(ctx context.Context, q string, limit int) (SearchResults, error) {
	var res SearchResults
	if q == "" {
		return res, nil
	}
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + q + "%"

	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT `+customerCols+` FROM customers
		 WHERE name LIKE ? OR email LIKE ? OR phone LIKE ?
		 ORDER BY name LIMIT ?`,
		pattern, pattern, pattern, limit)
	if err != nil {
		return res, fmt.Errorf("searching customers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return res, err
		}
		res.Customers = append(res.Customers, c)
	}
	if err := rows.Err(); err != nil {
		return res, err
	}

	mrows, err := s.db.sql.QueryContext(ctx,
		`SELECT `+messageCols+` FROM messages
		 WHERE content LIKE ? ORDER BY timestamp DESC, id DESC LIMIT ?`,
		pattern, limit)
	if err != nil {
		return res, fmt.Errorf("searching messages: %w", err)
	}
	defer mrows.Close()
	res.Messages, err = collectMessages(mrows)
	return res, err
}

// DashboardStats is the aggregate snapshot behind /api/stats.
type DashboardStats struct {
	Customers      int            `json:"customers"`
	Conversations  int            `json:"conversations"`
	Open           int            `json:"open"`
	InProgress     int            `json:"inProgress"`
	Resolved       int            `json:"resolved"`
	UnreadMessages int            `json:"unreadMessages"`
	UnreadByLevel  map[string]int `json:"unreadByLevel"`
	Agents         AgentStats     `json:"agents"`
}

// Stats computes the dashboard snapshot.
func (s *Store) Stats(ctx context.Context) (DashboardStats, error) {
	st := DashboardStats{UnreadByLevel: map[string]int{}}

	err := s.db.sql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM customers`).Scan(&st.Customers)
	if err != nil {
		return st, fmt.Errorf("counting customers: %w", err)
	}

	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM conversations GROUP BY status`)
	if err != nil {
		return st, fmt.Errorf("counting conversations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return st, err
		}
		st.Conversations += n
		switch domain.ConversationStatus(status) {
		case domain.ConversationOpen:
			st.Open = n
		case domain.ConversationInProgress:
			st.InProgress = n
		case domain.ConversationResolved:
			st.Resolved = n
		}
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	urows, err := s.db.sql.QueryContext(ctx,
		`SELECT urgency_level, COUNT(*) FROM messages
		 WHERE direction = 'INBOUND' AND status = 'UNREAD'
		 GROUP BY urgency_level`)
	if err != nil {
		return st, fmt.Errorf("counting unread messages: %w", err)
	}
	defer urows.Close()
	for urows.Next() {
		var level string
		var n int
		if err := urows.Scan(&level, &n); err != nil {
			return st, err
		}
		st.UnreadMessages += n
		st.UnreadByLevel[level] = n
	}
	if err := urows.Err(); err != nil {
		return st, err
	}

	st.Agents, err = s.AgentStatusCounts(ctx)
	return st, err
}
