package sqlite

import (
	"context"
	"database/sql"
	"time"

	krishi "github.com/krishihq/krishi/internal"
)

// CreateSoilReport inserts a soil report for a user and fills in its ID.
func (s *Store) CreateSoilReport(ctx context.Context, userID int64, r *krishi.SoilReport) error {
	r.CreatedAt = time.Now().UTC()
	result, err := s.write.ExecContext(ctx,
		`INSERT INTO soil_reports (user_id, field, ph, nitrogen, phosphorus, potassium, moisture, last_tested, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, r.Field, r.PH, r.Nitrogen, r.Phosphorus, r.Potassium, r.Moisture,
		nullStr(r.LastTested), nullStr(r.Notes), timeToStr(r.CreatedAt),
	)
	if err != nil {
		return err
	}
	r.ID, err = lastInsertID(result)
	return err
}

// ListSoilReports returns all soil reports for a user, newest first.
func (s *Store) ListSoilReports(ctx context.Context, userID int64) ([]*krishi.SoilReport, error) {
	rows, err := s.read.QueryContext(ctx,
		`SELECT id, field, ph, nitrogen, phosphorus, potassium, moisture, last_tested, notes, created_at
		 FROM soil_reports WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*krishi.SoilReport
	for rows.Next() {
		r, err := scanSoilReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// DeleteSoilReport removes a soil report owned by a user.
func (s *Store) DeleteSoilReport(ctx context.Context, userID, id int64) error {
	result, err := s.write.ExecContext(ctx,
		`DELETE FROM soil_reports WHERE id=? AND user_id=?`, id, userID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(result, "soil report")
}

func scanSoilReport(s scanner) (*krishi.SoilReport, error) {
	var r krishi.SoilReport
	var lastTested, notes sql.NullString
	var createdAt string

	err := s.Scan(&r.ID, &r.Field, &r.PH, &r.Nitrogen, &r.Phosphorus,
		&r.Potassium, &r.Moisture, &lastTested, &notes, &createdAt)
	if err != nil {
		return nil, notFoundErr(err)
	}
	r.LastTested = lastTested.String
	r.Notes = notes.String
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}
