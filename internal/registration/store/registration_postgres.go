package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Kakrote/udyam-registration-app/internal/registration/models"
	"github.com/Kakrote/udyam-registration-app/pkg/domain"
	"github.com/Kakrote/udyam-registration-app/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresRegistrationStore persists registrations in the registrations table.
type PostgresRegistrationStore struct {
	db *sql.DB
}

func NewPostgresRegistrationStore(db *sql.DB) *PostgresRegistrationStore {
	return &PostgresRegistrationStore{db: db}
}

func (s *PostgresRegistrationStore) Create(ctx context.Context, r *models.Registration) error {
	query := `
		INSERT INTO registrations (
			id, aadhaar_number, applicant_name, mobile_number, email_address, pan_number,
			business_name, business_type, business_address, pincode, state, district, city,
			gstin_number, bank_account_number, ifsc_code,
			submission_step, is_completed, ip_address, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(r.ID),
		r.Identity.AadhaarNumber,
		r.Identity.ApplicantName,
		r.Identity.MobileNumber,
		r.Identity.EmailAddress,
		nullString(r.Identity.PANNumber),
		r.Enterprise.BusinessName,
		r.Enterprise.BusinessType,
		r.Enterprise.BusinessAddress,
		r.Enterprise.Pincode,
		r.Enterprise.State,
		r.Enterprise.District,
		nullString(r.Enterprise.City),
		nullString(r.Enterprise.GSTINNumber),
		nullString(r.Enterprise.BankAccountNumber),
		nullString(r.Enterprise.IFSCCode),
		r.SubmissionStep,
		r.IsCompleted,
		nullString(r.ClientIP),
		nullString(r.UserAgent),
		r.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (s *PostgresRegistrationStore) FindByID(ctx context.Context, id domain.RegistrationID) (*models.Registration, error) {
	query := `
		SELECT id, aadhaar_number, applicant_name, mobile_number, email_address, pan_number,
			business_name, business_type, business_address, pincode, state, district, city,
			gstin_number, bank_account_number, ifsc_code,
			submission_step, is_completed, ip_address, user_agent, created_at
		FROM registrations
		WHERE id = $1
	`
	var (
		r                                          models.Registration
		rid                                        uuid.UUID
		pan, city, gstin, account, ifsc, ip, agent sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(id)).Scan(
		&rid,
		&r.Identity.AadhaarNumber,
		&r.Identity.ApplicantName,
		&r.Identity.MobileNumber,
		&r.Identity.EmailAddress,
		&pan,
		&r.Enterprise.BusinessName,
		&r.Enterprise.BusinessType,
		&r.Enterprise.BusinessAddress,
		&r.Enterprise.Pincode,
		&r.Enterprise.State,
		&r.Enterprise.District,
		&city,
		&gstin,
		&account,
		&ifsc,
		&r.SubmissionStep,
		&r.IsCompleted,
		&ip,
		&agent,
		&r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	r.ID = domain.RegistrationID(rid)
	r.Identity.PANNumber = pan.String
	r.Enterprise.City = city.String
	r.Enterprise.GSTINNumber = gstin.String
	r.Enterprise.BankAccountNumber = account.String
	r.Enterprise.IFSCCode = ifsc.String
	r.ClientIP = ip.String
	r.UserAgent = agent.String
	return &r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
