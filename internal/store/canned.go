package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wanjiru/triagedesk/internal/domain"
)

const cannedCols = `id, title, content, category, created_at, updated_at`

func scanCanned(row rowScanner) (domain.CannedResponse, error) {
	var cr domain.CannedResponse
	var createdAt, updatedAt string

	err := row.Scan(&cr.ID, &cr.Title, &cr.Content, &cr.Category, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CannedResponse{}, ErrNotFound
	}
	if err != nil {
		return domain.CannedResponse{}, fmt.Errorf("scanning canned response: %w", err)
	}

	cr.CreatedAt = parseTime(createdAt)
	cr.UpdatedAt = parseTime(updatedAt)
	return cr, nil
}

// CannedResponse returns one canned response by id.
func (s *Store) CannedResponse(ctx context.Context, id int64) (domain.CannedResponse, error) {
	row := s.db.sql.QueryRowContext(ctx,
		`SELECT `+cannedCols+` FROM canned_responses WHERE id = ?`, id)
	return scanCanned(row)
}

// ListCannedResponses returns canned responses, optionally filtered by
// category, ordered by category then title.
func (s *Store) ListCannedResponses(ctx context.Context, category string) ([]domain.CannedResponse, error) {
	query := `SELECT ` + cannedCols + ` FROM canned_responses`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY category, title`

	rows, err := s.db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing canned responses: %w", err)
	}
	defer rows.Close()

	var out []domain.CannedResponse
	for rows.Next() {
		cr, err := scanCanned(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}

// CreateCannedResponse inserts a new reply template.
func (s *Store) CreateCannedResponse(ctx context.Context, title, content, category string) (domain.CannedResponse, error) {
	res, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO canned_responses (title, content, category) VALUES (?, ?, ?)`,
		title, content, category)
	if err != nil {
		return domain.CannedResponse{}, fmt.Errorf("creating canned response: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.CannedResponse{}, fmt.Errorf("reading canned response id: %w", err)
	}
	return s.CannedResponse(ctx, id)
}

// UpdateCannedResponse replaces the template's title, content and category.
func (s *Store) UpdateCannedResponse(ctx context.Context, id int64, title, content, category string) (domain.CannedResponse, error) {
	res, err := s.db.sql.ExecContext(ctx,
		`UPDATE canned_responses
		 SET title = ?, content = ?, category = ?, updated_at = datetime('now')
		 WHERE id = ?`,
		title, content, category, id)
	if err != nil {
		return domain.CannedResponse{}, fmt.Errorf("updating canned response: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.CannedResponse{}, ErrNotFound
	}
	return s.CannedResponse(ctx, id)
}

// DeleteCannedResponse removes a reply template.
func (s *Store) DeleteCannedResponse(ctx context.Context, id int64) error {
	res, err := s.db.sql.ExecContext(ctx,
		`DELETE FROM canned_responses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting canned response: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
