package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wanjiru/triagedesk/internal/domain"
	"github.com/wanjiru/triagedesk/internal/urgency"
)

// CustomerSeed describes the profile synthesized for a customer created
// on first contact. Zero fields fall back to placeholders derived from
// the external user id.
type CustomerSeed struct {
	UserID        int64
	Name          string
	Email         string
	Phone         string
	AccountStatus string
	CreditScore   *int
	AccountAge    string
	LoanStatus    string
}

// EnsureCustomer finds the customer with the given external user id,
// creating it from the seed if absent. The UNIQUE constraint on user_id
// makes concurrent first-contact creation race-safe. Returns whether a
// new row was created.
func (s *Store) EnsureCustomer(ctx context.Context, seed CustomerSeed) (domain.Customer, bool, error) {
	if seed.Name == "" {
		seed.Name = fmt.Sprintf("Customer %d", seed.UserID)
	}
	if seed.Email == "" {
		seed.Email = fmt.Sprintf("customer%d@example.com", seed.UserID)
	}
	if seed.AccountStatus == "" {
		seed.AccountStatus = "active"
	}

	res, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO customers (user_id, name, email, phone, account_status, credit_score, account_age, loan_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO NOTHING`,
		seed.UserID, seed.Name, seed.Email, seed.Phone, seed.AccountStatus,
		seed.CreditScore, seed.AccountAge, seed.LoanStatus,
	)
	if err != nil {
		return domain.Customer{}, false, fmt.Errorf("creating customer: %w", err)
	}
	inserted, _ := res.RowsAffected()

	cust, err := s.CustomerByUserID(ctx, seed.UserID)
	if err != nil {
		return domain.Customer{}, false, err
	}
	return cust, inserted > 0, nil
}

// FindOrCreateCustomer is EnsureCustomer with placeholder profile fields.
func (s *Store) FindOrCreateCustomer(ctx context.Context, userID int64) (domain.Customer, error) {
	cust, _, err := s.EnsureCustomer(ctx, CustomerSeed{UserID: userID})
	return cust, err
}

// FindOrCreateOpenConversation returns the customer's OPEN or
// IN_PROGRESS conversation, creating a fresh OPEN one when none exists.
// RESOLVED and CLOSED conversations are never reused. Returns whether a
// new conversation was created.
func (s *Store) FindOrCreateOpenConversation(ctx context.Context, customerID int64, at time.Time) (domain.Conversation, bool, error) {
	if at.IsZero() {
		at = time.Now()
	}

	conv, err := s.openConversation(ctx, customerID)
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return domain.Conversation{}, false, err
	}

	res, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO conversations (customer_id, status, last_message_at) VALUES (?, 'OPEN', ?)`,
		customerID, fmtTime(at),
	)
	if err != nil {
		return domain.Conversation{}, false, fmt.Errorf("creating conversation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Conversation{}, false, fmt.Errorf("reading conversation id: %w", err)
	}

	conv, err = s.Conversation(ctx, id)
	return conv, true, err
}

func (s *Store) openConversation(ctx context.Context, customerID int64) (domain.Conversation, error) {
	row := s.db.sql.QueryRowContext(ctx,
		`SELECT `+conversationCols+` FROM conversations
		 WHERE customer_id = ? AND status IN ('OPEN', 'IN_PROGRESS')
		 ORDER BY id LIMIT 1`, customerID)
	return scanConversation(row)
}

// Conversation returns one conversation by id.
func (s *Store) Conversation(ctx context.Context, id int64) (domain.Conversation, error) {
	row := s.db.sql.QueryRowContext(ctx,
		`SELECT `+conversationCols+` FROM conversations WHERE id = ?`, id)
	return scanConversation(row)
}

// AppendMessageInput carries everything needed to record one turn.
type AppendMessageInput struct {
	ConversationID int64
	CustomerID     int64
	Content        string
	Direction      domain.MessageDirection
	AgentID        *int64 // set only for agent-authored OUTBOUND messages
	At             time.Time

	// MarkInboundRead also marks the conversation's UNREAD inbound
	// messages READ, in the same transaction. Used for replies, where
	// a recorded reply must never leave the backlog unread.
	MarkInboundRead bool
}

// AppendMessage records one message and atomically bumps the owning
// conversation. INBOUND content is classified for urgency; OUTBOUND
// messages carry the fixed minimum score. An agent-authored message
// advances the conversation to IN_PROGRESS and assigns the agent.
func (s *Store) AppendMessage(ctx context.Context, in AppendMessageInput) (domain.Message, urgency.Result, error) {
	if in.At.IsZero() {
		in.At = time.Now()
	}

	result := urgency.Result{Score: 1, Level: domain.UrgencyLow}
	status := domain.MessageReplied
	if in.Direction == domain.DirectionInbound {
		result = urgency.Classify(in.Content)
		status = domain.MessageUnread
	}

	tx, err := s.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return domain.Message{}, result, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	var res sql.Result
	if in.AgentID != nil {
		res, err = tx.ExecContext(ctx,
			`UPDATE conversations
			 SET last_message_at = ?, status = 'IN_PROGRESS', agent_id = ?, updated_at = datetime('now')
			 WHERE id = ?`,
			fmtTime(in.At), *in.AgentID, in.ConversationID)
	} else {
		res, err = tx.ExecContext(ctx,
			`UPDATE conversations SET last_message_at = ?, updated_at = datetime('now') WHERE id = ?`,
			fmtTime(in.At), in.ConversationID)
	}
	if err != nil {
		return domain.Message{}, result, fmt.Errorf("bumping conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Message{}, result, fmt.Errorf("conversation %d: %w", in.ConversationID, ErrNotFound)
	}

	res, err = tx.ExecContext(ctx,
		`INSERT INTO messages (customer_id, conversation_id, content, direction, urgency_score, urgency_level, status, agent_id, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.CustomerID, in.ConversationID, in.Content, in.Direction,
		result.Score, result.Level, status, in.AgentID, fmtTime(in.At))
	if err != nil {
		return domain.Message{}, result, fmt.Errorf("inserting message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Message{}, result, fmt.Errorf("reading message id: %w", err)
	}

	if in.MarkInboundRead {
		if _, err := tx.ExecContext(ctx,
			`UPDATE messages SET status = 'READ'
			 WHERE conversation_id = ? AND direction = 'INBOUND' AND status = 'UNREAD'`,
			in.ConversationID); err != nil {
			return domain.Message{}, result, fmt.Errorf("marking inbound read: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Message{}, result, fmt.Errorf("commit append: %w", err)
	}

	msg, err := s.Message(ctx, id)
	return msg, result, err
}

// Message returns one message by id.
func (s *Store) Message(ctx context.Context, id int64) (domain.Message, error) {
	row := s.db.sql.QueryRowContext(ctx,
		`SELECT `+messageCols+` FROM messages WHERE id = ?`, id)
	return scanMessage(row)
}

// MarkMessageRead sets one message's status to READ.
func (s *Store) MarkMessageRead(ctx context.Context, id int64) error {
	res, err := s.db.sql.ExecContext(ctx,
		`UPDATE messages SET status = 'READ' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("marking message read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("message %d: %w", id, ErrNotFound)
	}
	return nil
}

// MarkAllInboundRead marks every UNREAD inbound message in the
// conversation as READ.
func (s *Store) MarkAllInboundRead(ctx context.Context, conversationID int64) error {
	_, err := s.db.sql.ExecContext(ctx,
		`UPDATE messages SET status = 'READ'
		 WHERE conversation_id = ? AND direction = 'INBOUND' AND status = 'UNREAD'`,
		conversationID)
	if err != nil {
		return fmt.Errorf("marking inbound read: %w", err)
	}
	return nil
}

// ResolveConversation sets the conversation RESOLVED and cascades every
// message in it to RESOLVED status.
func (s *Store) ResolveConversation(ctx context.Context, id int64) error {
	tx, err := s.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin resolve: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE conversations
		 SET status = 'RESOLVED', resolved_at = ?, updated_at = datetime('now')
		 WHERE id = ?`, fmtTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("resolving conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("conversation %d: %w", id, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE messages SET status = 'RESOLVED' WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("cascading resolve: %w", err)
	}

	return tx.Commit()
}

// ReopenConversation sets the conversation back to OPEN, clears the
// resolved timestamp, and marks inbound messages UNREAD again.
// Outbound messages are untouched.
func (s *Store) ReopenConversation(ctx context.Context, id int64) error {
	tx, err := s.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reopen: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE conversations
		 SET status = 'OPEN', resolved_at = NULL, updated_at = datetime('now')
		 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("reopening conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("conversation %d: %w", id, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE messages SET status = 'UNREAD'
		 WHERE conversation_id = ? AND direction = 'INBOUND'`, id); err != nil {
		return fmt.Errorf("cascading reopen: %w", err)
	}

	return tx.Commit()
}

// OverrideMessageUrgency remaps one message's urgency to the fixed
// score for the level. Returns the owning conversation id so the caller
// can scope the broadcast.
func (s *Store) OverrideMessageUrgency(ctx context.Context, messageID int64, level domain.UrgencyLevel) (int64, error) {
	res, err := s.db.sql.ExecContext(ctx,
		`UPDATE messages SET urgency_level = ?, urgency_score = ? WHERE id = ?`,
		level, domain.ScoreForLevel(level), messageID)
	if err != nil {
		return 0, fmt.Errorf("overriding urgency: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, fmt.Errorf("message %d: %w", messageID, ErrNotFound)
	}

	var convID int64
	err = s.db.sql.QueryRowContext(ctx,
		`SELECT conversation_id FROM messages WHERE id = ?`, messageID).Scan(&convID)
	if err != nil {
		return 0, fmt.Errorf("reading conversation id: %w", err)
	}
	return convID, nil
}

// OverrideConversationPriority bulk-applies the fixed urgency remap to
// every INBOUND message in the conversation. Outbound messages keep
// their values. This is a display-priority mechanism.
func (s *Store) OverrideConversationPriority(ctx context.Context, conversationID int64, level domain.UrgencyLevel) error {
	if _, err := s.Conversation(ctx, conversationID); err != nil {
		return err
	}
	_, err := s.db.sql.ExecContext(ctx,
		`UPDATE messages SET urgency_level = ?, urgency_score = ?
		 WHERE conversation_id = ? AND direction = 'INBOUND'`,
		level, domain.ScoreForLevel(level), conversationID)
	if err != nil {
		return fmt.Errorf("overriding priority: %w", err)
	}
	return nil
}

// Column lists and scanners shared by the query helpers.

const conversationCols = `id, customer_id, agent_id, status, last_message_at, resolved_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (domain.Conversation, error) {
	var c domain.Conversation
	var agentID sql.NullInt64
	var lastMsg, createdAt, updatedAt string
	var resolvedAt sql.NullString

	err := row.Scan(&c.ID, &c.CustomerID, &agentID, &c.Status, &lastMsg, &resolvedAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Conversation{}, ErrNotFound
	}
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("scanning conversation: %w", err)
	}

	c.AgentID = nullInt(agentID)
	c.LastMessageAt = parseTime(lastMsg)
	c.ResolvedAt = nullTime(resolvedAt)
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return c, nil
}

const messageCols = `id, customer_id, conversation_id, content, direction, urgency_score, urgency_level, status, agent_id, timestamp, created_at`

func scanMessage(row rowScanner) (domain.Message, error) {
	var m domain.Message
	var agentID sql.NullInt64
	var ts, createdAt string

	err := row.Scan(&m.ID, &m.CustomerID, &m.ConversationID, &m.Content, &m.Direction,
		&m.UrgencyScore, &m.UrgencyLevel, &m.Status, &agentID, &ts, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Message{}, ErrNotFound
	}
	if err != nil {
		return domain.Message{}, fmt.Errorf("scanning message: %w", err)
	}

	m.AgentID = nullInt(agentID)
	m.Timestamp = parseTime(ts)
	m.CreatedAt = parseTime(createdAt)
	return m, nil
}
