package sqlite

import (
	"context"
	"database/sql"
	"time"

	krishi "github.com/krishihq/krishi/internal"
)

// CreateExpense inserts a transaction for a user and fills in its ID.
func (s *Store) CreateExpense(ctx context.Context, userID int64, e *krishi.Expense) error {
	e.CreatedAt = time.Now().UTC()
	result, err := s.write.ExecContext(ctx,
		`INSERT INTO expenses (user_id, title, amount, kind, category, date, description, crop_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, e.Title, e.Amount, e.Kind, nullStr(e.Category), e.Date,
		nullStr(e.Description), nullID(e.CropID), timeToStr(e.CreatedAt),
	)
	if err != nil {
		return err
	}
	e.ID, err = lastInsertID(result)
	return err
}

// GetExpense retrieves one transaction owned by a user.
func (s *Store) GetExpense(ctx context.Context, userID, id int64) (*krishi.Expense, error) {
	row := s.read.QueryRowContext(ctx,
		`SELECT e.id, e.title, e.amount, e.kind, e.category, e.date, e.description,
		 e.crop_id, c.name, e.created_at
		 FROM expenses e LEFT JOIN crops c ON c.id = e.crop_id
		 WHERE e.id = ? AND e.user_id = ?`, id, userID,
	)
	return scanExpense(row)
}

// ListExpenses returns a user's transactions, newest date first. A non-empty
// kind restricts to "income" or "expense" rows.
func (s *Store) ListExpenses(ctx context.Context, userID int64, kind string) ([]*krishi.Expense, error) {
	query := `SELECT e.id, e.title, e.amount, e.kind, e.category, e.date, e.description,
	 e.crop_id, c.name, e.created_at
	 FROM expenses e LEFT JOIN crops c ON c.id = e.crop_id
	 WHERE e.user_id = ?`
	args := []any{userID}
	if kind != "" {
		query += ` AND e.kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY e.date DESC, e.id DESC`

	rows, err := s.read.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []*krishi.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// DeleteExpense removes a transaction owned by a user.
func (s *Store) DeleteExpense(ctx context.Context, userID, id int64) error {
	result, err := s.write.ExecContext(ctx,
		`DELETE FROM expenses WHERE id=? AND user_id=?`, id, userID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(result, "expense")
}

// SummarizeExpenses totals a user's income and expenses.
func (s *Store) SummarizeExpenses(ctx context.Context, userID int64) (*krishi.ExpenseSummary, error) {
	var sum krishi.ExpenseSummary
	err := s.read.QueryRowContext(ctx,
		`SELECT
		 COALESCE(SUM(CASE WHEN kind = 'income' THEN amount ELSE 0 END), 0),
		 COALESCE(SUM(CASE WHEN kind = 'expense' THEN amount ELSE 0 END), 0)
		 FROM expenses WHERE user_id = ?`, userID,
	).Scan(&sum.TotalIncome, &sum.TotalExpense)
	if err != nil {
		return nil, err
	}
	sum.Profit = sum.TotalIncome - sum.TotalExpense
	return &sum, nil
}

func scanExpense(s scanner) (*krishi.Expense, error) {
	var e krishi.Expense
	var category, description, cropName sql.NullString
	var cropID sql.NullInt64
	var createdAt string

	err := s.Scan(&e.ID, &e.Title, &e.Amount, &e.Kind, &category, &e.Date,
		&description, &cropID, &cropName, &createdAt)
	if err != nil {
		return nil, notFoundErr(err)
	}
	e.Category = category.String
	e.Description = description.String
	e.CropName = cropName.String
	if cropID.Valid {
		e.CropID = &cropID.Int64
	}
	e.CreatedAt = parseTime(createdAt)
	return &e, nil
}
