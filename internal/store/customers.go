package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wanjiru/triagedesk/internal/domain"
)

const customerCols = `id, user_id, name, email, phone, account_status, credit_score, account_age, loan_status, created_at, updated_at`

func scanCustomer(row rowScanner) (domain.Customer, error) {
	var c domain.Customer
	var creditScore sql.NullInt64
	var createdAt, updatedAt string

	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.AccountStatus,
		&creditScore, &c.AccountAge, &c.LoanStatus, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, ErrNotFound
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("scanning customer: %w", err)
	}

	if creditScore.Valid {
		v := int(creditScore.Int64)
		c.CreditScore = &v
	}
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return c, nil
}

// Customer returns one customer by internal id.
func (s *Store) Customer(ctx context.Context, id int64) (domain.Customer, error) {
	row := s.db.sql.QueryRowContext(ctx,
		`SELECT `+customerCols+` FROM customers WHERE id = ?`, id)
	return scanCustomer(row)
}

// CustomerByUserID returns one customer by external user id.
func (s *Store) CustomerByUserID(ctx context.Context, userID int64) (domain.Customer, error) {
	row := s.db.sql.QueryRowContext(ctx,
		`SELECT `+customerCols+` FROM customers WHERE user_id = ?`, userID)
	return scanCustomer(row)
}

// ListCustomers returns customers ordered by creation time, newest first.
func (s *Store) ListCustomers(ctx context.Context, limit, offset int) ([]domain.Customer, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT `+customerCols+` FROM customers ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CustomerProfileUpdate carries the mutable profile fields; nil fields
// are left unchanged.
type CustomerProfileUpdate struct {
	Name          *string `json:"name,omitempty"`
	Email         *string `json:"email,omitempty"`
	Phone         *string `json:"phone,omitempty"`
	AccountStatus *string `json:"accountStatus,omitempty"`
	CreditScore   *int    `json:"creditScore,omitempty"`
	AccountAge    *string `json:"accountAge,omitempty"`
	LoanStatus    *string `json:"loanStatus,omitempty"`
}

// UpdateCustomerProfile applies a partial profile update.
func (s *Store) UpdateCustomerProfile(ctx context.Context, id int64, up CustomerProfileUpdate) (domain.Customer, error) {
	cust, err := s.Customer(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}

	if up.Name != nil {
		cust.Name = *up.Name
	}
	if up.Email != nil {
		cust.Email = *up.Email
	}
	if up.Phone != nil {
		cust.Phone = *up.Phone
	}
	if up.AccountStatus != nil {
		cust.AccountStatus = *up.AccountStatus
	}
	if up.CreditScore != nil {
		cust.CreditScore = up.CreditScore
	}
	if up.AccountAge != nil {
		cust.AccountAge = *up.AccountAge
	}
	if up.LoanStatus != nil {
		cust.LoanStatus = *up.LoanStatus
	}

	_, err = s.db.sql.ExecContext(ctx,
		`UPDATE customers
		 SET name = ?, email = ?, phone = ?, account_status = ?, credit_score = ?,
		     account_age = ?, loan_status = ?, updated_at = datetime('now')
		 WHERE id = ?`,
		cust.Name, cust.Email, cust.Phone, cust.AccountStatus, cust.CreditScore,
		cust.AccountAge, cust.LoanStatus, id)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("updating customer: %w", err)
	}
	return s.Customer(ctx, id)
}
