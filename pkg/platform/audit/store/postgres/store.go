package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	audit "github.com/Kakrote/udyam-registration-app/pkg/platform/audit"
)

// Store implements audit.Store on the submission_logs table. Every event
// becomes one row; endpoint columns are null for events without them.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const insertQuery = `
	INSERT INTO submission_logs (
		id, category, action, subject, outcome,
		endpoint, method, status_code, duration_ms,
		client_ip, user_agent, request_id,
		request_payload, error_message, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
`

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	var payload any
	if len(event.Payload) > 0 {
		payload = string(event.Payload)
	}
	_, err := s.db.ExecContext(ctx, insertQuery,
		uuid.New(),
		string(event.Category),
		event.Action,
		event.Subject,
		nullString(event.Outcome),
		nullString(event.Endpoint),
		nullString(event.Method),
		nullInt(int64(event.StatusCode)),
		nullInt(event.DurationMs),
		nullString(event.ClientIP),
		nullString(event.UserAgent),
		nullString(event.RequestID),
		payload,
		nullString(event.ErrorMessage),
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert submission log: %w", err)
	}
	return nil
}

// ListRecent returns the most recent events, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT category, action, subject, outcome, endpoint, method,
			   status_code, duration_ms, client_ip, user_agent, request_id,
			   request_payload, error_message, created_at
		FROM submission_logs
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query submission logs: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e                                      audit.Event
			category                               string
			outcome, endpoint, method, ip, ua, rid sql.NullString
			errMsg                                 sql.NullString
			status, duration                       sql.NullInt64
			payload                                []byte
		)
		if err := rows.Scan(&category, &e.Action, &e.Subject, &outcome, &endpoint, &method,
			&status, &duration, &ip, &ua, &rid, &payload, &errMsg, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan submission log: %w", err)
		}
		e.Category = audit.EventCategory(category)
		e.Outcome = outcome.String
		e.Endpoint = endpoint.String
		e.Method = method.String
		e.StatusCode = int(status.Int64)
		e.DurationMs = duration.Int64
		e.ClientIP = ip.String
		e.UserAgent = ua.String
		e.RequestID = rid.String
		e.Payload = payload
		e.ErrorMessage = errMsg.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submission logs: %w", err)
	}
	return events, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int64) sql.NullInt64 {
	return sql.NullInt64{Int64: n, Valid: n != 0}
}
