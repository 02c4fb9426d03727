package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Kakrote/udyam-registration-app/internal/location/models"
	"github.com/Kakrote/udyam-registration-app/pkg/platform/sentinel"
)

// PostgresStore persists records in the postal_codes table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, code models.PostalCode) (*models.LocationRecord, error) {
	query := `
		SELECT city, district, state, created_at
		FROM postal_codes
		WHERE postal_code = $1
	`
	rec := models.LocationRecord{PostalCode: code, Source: models.SourceCache}
	err := s.db.QueryRowContext(ctx, query, code.String()).Scan(&rec.City, &rec.District, &rec.State, &rec.ResolvedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find postal code: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) PutIfAbsent(ctx context.Context, rec models.LocationRecord) (bool, error) {
	query := `
		INSERT INTO postal_codes (postal_code, city, district, state, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (postal_code) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		rec.PostalCode.String(),
		rec.City,
		rec.District,
		rec.State,
		string(rec.Source),
		rec.ResolvedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert postal code: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert postal code rows affected: %w", err)
	}
	return n == 1, nil
}
