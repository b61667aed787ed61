package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wanjiru/triagedesk/internal/domain"
)

// ErrDuplicateEmail is returned when creating an agent with an email
// already in use.
var ErrDuplicateEmail = errors.New("email already in use")

const agentCols = `id, name, email, status, last_active_at, created_at, updated_at`

func scanAgent(row rowScanner) (domain.Agent, error) {
	var a domain.Agent
	var lastActive, createdAt, updatedAt string

	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Status, &lastActive, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Agent{}, ErrNotFound
	}
	if err != nil {
		return domain.Agent{}, fmt.Errorf("scanning agent: %w", err)
	}

	a.LastActiveAt = parseTime(lastActive)
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return a, nil
}

// Agent returns one agent by id.
func (s *Store) Agent(ctx context.Context, id int64) (domain.Agent, error) {
	row := s.db.sql.QueryRowContext(ctx,
		`SELECT `+agentCols+` FROM agents WHERE id = ?`, id)
	return scanAgent(row)
}

// ListAgents returns all agents ordered by name.
func (s *Store) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT `+agentCols+` FROM agents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing agents: %w", err)
	}
	defer rows.Close()

	var out []domain.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateAgent inserts a new agent. Email must be unique.
func (s *Store) CreateAgent(ctx context.Context, name, email string, status domain.AgentStatus) (domain.Agent, error) {
	if status == "" {
		status = domain.AgentAvailable
	}
	res, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO agents (name, email, status, last_active_at) VALUES (?, ?, ?, ?)`,
		name, email, status, fmtTime(time.Now()))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return domain.Agent{}, ErrDuplicateEmail
		}
		return domain.Agent{}, fmt.Errorf("creating agent: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Agent{}, fmt.Errorf("reading agent id: %w", err)
	}
	return s.Agent(ctx, id)
}

// UpdateAgentStatus sets the agent's presence status and bumps its
// last-active timestamp.
func (s *Store) UpdateAgentStatus(ctx context.Context, id int64, status domain.AgentStatus) error {
	res, err := s.db.sql.ExecContext(ctx,
		`UPDATE agents SET status = ?, last_active_at = ?, updated_at = datetime('now') WHERE id = ?`,
		status, fmtTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("updating agent status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("agent %d: %w", id, ErrNotFound)
	}
	return nil
}

// AgentStats summarizes agents by presence status.
type AgentStats struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Busy      int `json:"busy"`
	Offline   int `json:"offline"`
}

// AgentStatusCounts returns agent counts per presence status.
func (s *Store) AgentStatusCounts(ctx context.Context) (AgentStats, error) {
	var st AgentStats
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM agents GROUP BY status`)
	if err != nil {
		return st, fmt.Errorf("counting agents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return st, err
		}
		st.Total += n
		switch domain.AgentStatus(status) {
		case domain.AgentAvailable:
			st.Available = n
		case domain.AgentBusy:
			st.Busy = n
		case domain.AgentOffline:
			st.Offline = n
		}
	}
	return st, rows.Err()
}
