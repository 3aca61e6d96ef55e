package sqlite

import (
	"context"
	"database/sql"
	"time"

	krishi "github.com/krishihq/krishi/internal"
)

// CreateCrop inserts a crop record for a user and fills in its ID.
func (s *Store) CreateCrop(ctx context.Context, userID int64, c *krishi.Crop) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Stage == "" {
		c.Stage = "Sown"
	}
	result, err := s.write.ExecContext(ctx,
		`INSERT INTO crops (user_id, name, plot, sown_date, stage, expected_harvest, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, c.Name, nullStr(c.Plot), nullStr(c.SownDate), c.Stage,
		nullStr(c.ExpectedHarvest), nullStr(c.Notes), timeToStr(now), timeToStr(now),
	)
	if err != nil {
		return err
	}
	c.ID, err = lastInsertID(result)
	return err
}

// GetCrop retrieves one crop owned by a user.
func (s *Store) GetCrop(ctx context.Context, userID, id int64) (*krishi.Crop, error) {
	row := s.read.QueryRowContext(ctx,
		`SELECT id, name, plot, sown_date, stage, expected_harvest, notes, created_at, updated_at
		 FROM crops WHERE id = ? AND user_id = ?`, id, userID,
	)
	return scanCrop(row)
}

// ListCrops returns all crops for a user, newest first.
func (s *Store) ListCrops(ctx context.Context, userID int64) ([]*krishi.Crop, error) {
	rows, err := s.read.QueryContext(ctx,
		`SELECT id, name, plot, sown_date, stage, expected_harvest, notes, created_at, updated_at
		 FROM crops WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var crops []*krishi.Crop
	for rows.Next() {
		c, err := scanCrop(rows)
		if err != nil {
			return nil, err
		}
		crops = append(crops, c)
	}
	return crops, rows.Err()
}

// UpdateCrop updates a crop owned by a user.
func (s *Store) UpdateCrop(ctx context.Context, userID int64, c *krishi.Crop) error {
	c.UpdatedAt = time.Now().UTC()
	result, err := s.write.ExecContext(ctx,
		`UPDATE crops SET name=?, plot=?, sown_date=?, stage=?, expected_harvest=?, notes=?, updated_at=?
		 WHERE id=? AND user_id=?`,
		c.Name, nullStr(c.Plot), nullStr(c.SownDate), c.Stage,
		nullStr(c.ExpectedHarvest), nullStr(c.Notes), timeToStr(c.UpdatedAt),
		c.ID, userID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(result, "crop")
}

// DeleteCrop removes a crop owned by a user.
func (s *Store) DeleteCrop(ctx context.Context, userID, id int64) error {
	result, err := s.write.ExecContext(ctx,
		`DELETE FROM crops WHERE id=? AND user_id=?`, id, userID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(result, "crop")
}

func scanCrop(s scanner) (*krishi.Crop, error) {
	var c krishi.Crop
	var plot, sownDate, harvest, notes sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(&c.ID, &c.Name, &plot, &sownDate, &c.Stage, &harvest, &notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, notFoundErr(err)
	}
	c.Plot = plot.String
	c.SownDate = sownDate.String
	c.ExpectedHarvest = harvest.String
	c.Notes = notes.String
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}
