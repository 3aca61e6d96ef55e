// Package storage defines persistence interfaces for the krishi backend.
package storage

import (
	"context"

	krishi "github.com/krishihq/krishi/internal"
)

// CropStore manages crop record persistence.
type CropStore interface {
	CreateCrop(ctx context.Context, userID int64, c *krishi.Crop) error
	GetCrop(ctx context.Context, userID, id int64) (*krishi.Crop, error)
	ListCrops(ctx context.Context, userID int64) ([]*krishi.Crop, error)
	UpdateCrop(ctx context.Context, userID int64, c *krishi.Crop) error
	DeleteCrop(ctx context.Context, userID, id int64) error
}

// ExpenseStore manages income and expense transaction persistence.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, userID int64, e *krishi.Expense) error
	GetExpense(ctx context.Context, userID, id int64) (*krishi.Expense, error)
	ListExpenses(ctx context.Context, userID int64, kind string) ([]*krishi.Expense, error)
	DeleteExpense(ctx context.Context, userID, id int64) error
	SummarizeExpenses(ctx context.Context, userID int64) (*krishi.ExpenseSummary, error)
}

// SoilStore manages soil report persistence.
type SoilStore interface {
	CreateSoilReport(ctx context.Context, userID int64, s *krishi.SoilReport) error
	ListSoilReports(ctx context.Context, userID int64) ([]*krishi.SoilReport, error)
	DeleteSoilReport(ctx context.Context, userID, id int64) error
}

// UserStore manages account persistence.
type UserStore interface {
	CreateUser(ctx context.Context, u *krishi.User) error
	GetUser(ctx context.Context, id int64) (*krishi.User, error)
	GetUserByUsername(ctx context.Context, username string) (*krishi.User, error)
}

// SessionStore manages login session persistence.
type SessionStore interface {
	CreateSession(ctx context.Context, s *krishi.Session) error
	GetSession(ctx context.Context, tokenHash string) (*krishi.Session, error)
	DeleteSession(ctx context.Context, tokenHash string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// Store combines all storage interfaces.
type Store interface {
	CropStore
	ExpenseStore
	SoilStore
	UserStore
	SessionStore
	Close() error
}
