package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Blaineeey/Planning-Suite-sub000/services/esign/internal/esign"
)

type Store struct{ DB *pgxpool.Pool }

func New(db *pgxpool.Pool) *Store { return &Store{DB: db} }

const uniqueViolation = "23505"

func (s *Store) GetContract(ctx context.Context, contractID string) (esign.Contract, error) {
	var c esign.Contract
	err := s.DB.QueryRow(ctx, `
SELECT contract_id,organization_id,title,content,terms,status,signed_at,created_at
FROM contracts WHERE contract_id=$1
`, contractID).Scan(&c.ContractID, &c.OrganizationID, &c.Title, &c.Content, &c.Terms, &c.Status, &c.SignedAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return esign.Contract{}, esign.ErrContractNotFound
		}
		return esign.Contract{}, err
	}
	return c, nil
}

// CreateContract exists for seeding and for the contract-authoring flow that
// lives outside this service.
func (s *Store) CreateContract(ctx context.Context, c esign.Contract) error {
	_, err := s.DB.Exec(ctx, `
INSERT INTO contracts(contract_id,organization_id,title,content,terms,status)
VALUES($1,$2,$3,$4,$5,$6)
`, c.ContractID, c.OrganizationID, c.Title, c.Content, c.Terms, c.Status)
	return err
}

func (s *Store) CreateRequest(ctx context.Context, req esign.SignatureRequest) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
INSERT INTO signature_requests(request_id,contract_id,organization_id,recipient_email,recipient_name,token_hash,status,expires_at,created_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)
`, req.RequestID, req.ContractID, req.OrganizationID, req.RecipientEmail, req.RecipientName, req.TokenHash, req.Status, req.ExpiresAt, req.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return esign.ErrDuplicateToken
		}
		return err
	}

	// Re-sending never downgrades an already signed contract.
	_, err = tx.Exec(ctx, `
UPDATE contracts SET status=$2 WHERE contract_id=$1 AND status <> 'SIGNED'
`, req.ContractID, esign.ContractSent)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) GetRequest(ctx context.Context, requestID string) (esign.SignatureRequest, error) {
	return s.getRequest(ctx, `request_id=$1`, requestID)
}

func (s *Store) GetRequestByTokenHash(ctx context.Context, tokenHash string) (esign.SignatureRequest, error) {
	return s.getRequest(ctx, `token_hash=$1`, tokenHash)
}

const requestColumns = `request_id,contract_id,organization_id,recipient_email,recipient_name,token_hash,status,expires_at,created_at,
signed_at,signature_data,signature_type,signature_hash,signed_by,ip_address,last_reminder_sent`

func (s *Store) getRequest(ctx context.Context, where string, arg any) (esign.SignatureRequest, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+requestColumns+` FROM signature_requests WHERE `+where, arg)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return esign.SignatureRequest{}, esign.ErrRequestNotFound
		}
		return esign.SignatureRequest{}, err
	}
	return req, nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanRequest(row rowScanner) (esign.SignatureRequest, error) {
	var r esign.SignatureRequest
	err := row.Scan(&r.RequestID, &r.ContractID, &r.OrganizationID, &r.RecipientEmail, &r.RecipientName, &r.TokenHash,
		&r.Status, &r.ExpiresAt, &r.CreatedAt,
		&r.SignedAt, &r.SignatureData, &r.SignatureType, &r.SignatureHash, &r.SignedBy, &r.IPAddress, &r.LastReminderSent)
	return r, err
}

func (s *Store) ListRequestsByContract(ctx context.Context, contractID string) ([]esign.SignatureRequest, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+requestColumns+` FROM signature_requests WHERE contract_id=$1 ORDER BY created_at DESC, request_id DESC`, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []esign.SignatureRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) ListPendingRequests(ctx context.Context, organizationID string) ([]esign.PendingRequest, error) {
	rows, err := s.DB.Query(ctx, `
SELECT r.request_id,r.contract_id,r.organization_id,r.recipient_email,r.recipient_name,r.token_hash,r.status,r.expires_at,r.created_at,
r.signed_at,r.signature_data,r.signature_type,r.signature_hash,r.signed_by,r.ip_address,r.last_reminder_sent,
COALESCE(c.title,'')
FROM signature_requests r
LEFT JOIN contracts c ON c.contract_id=r.contract_id
WHERE r.organization_id=$1 AND r.status='PENDING'
ORDER BY r.created_at DESC, r.request_id DESC
`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []esign.PendingRequest
	for rows.Next() {
		var p esign.PendingRequest
		r := &p.SignatureRequest
		if err := rows.Scan(&r.RequestID, &r.ContractID, &r.OrganizationID, &r.RecipientEmail, &r.RecipientName, &r.TokenHash,
			&r.Status, &r.ExpiresAt, &r.CreatedAt,
			&r.SignedAt, &r.SignatureData, &r.SignatureType, &r.SignatureHash, &r.SignedBy, &r.IPAddress, &r.LastReminderSent,
			&p.ContractTitle); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSigned performs the single mandatory concurrency control of this
// service: a compare-and-swap on status inside one transaction covering the
// request, the contract, and the audit append. Two racing signers cannot
// both pass the WHERE clause.
func (s *Store) MarkSigned(ctx context.Context, rec esign.SignedRecord) (bool, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `
UPDATE signature_requests
SET status='SIGNED', signed_at=$2, signature_data=$3, signature_type=$4, signature_hash=$5, signed_by=$6, ip_address=$7
WHERE request_id=$1 AND status='PENDING'
`, rec.RequestID, rec.SignedAt, rec.SignatureData, rec.SignatureType, rec.SignatureHash, rec.SignedBy, rec.IPAddress)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() == 0 {
		return false, nil
	}

	_, err = tx.Exec(ctx, `
UPDATE contracts SET status='SIGNED', signed_at=$2 WHERE contract_id=$1
`, rec.ContractID, rec.SignedAt)
	if err != nil {
		return false, err
	}

	metadata, err := json.Marshal(map[string]any{
		"signature_request_id": rec.RequestID,
		"signed_by":            rec.SignedBy,
		"ip_address":           rec.IPAddress,
		"signature_hash":       rec.SignatureHash,
	})
	if err != nil {
		return false, err
	}
	_, err = tx.Exec(ctx, `
INSERT INTO audit_logs(audit_id,organization_id,action,entity_type,entity_id,metadata,created_at)
VALUES($1,$2,$3,'contract',$4,$5::jsonb,$6)
`, "aud_"+uuid.NewString(), rec.OrganizationID, esign.ActionContractSigned, rec.ContractID, string(metadata), rec.SignedAt)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) CancelRequest(ctx context.Context, requestID string) (bool, error) {
	ct, err := s.DB.Exec(ctx, `
UPDATE signature_requests SET status='CANCELLED' WHERE request_id=$1 AND status='PENDING'
`, requestID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (s *Store) TouchReminder(ctx context.Context, requestID string, at time.Time) (bool, error) {
	ct, err := s.DB.Exec(ctx, `
UPDATE signature_requests SET last_reminder_sent=$2 WHERE request_id=$1 AND status='PENDING'
`, requestID, at)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (s *Store) ListAuditEntries(ctx context.Context, contractID string) ([]esign.AuditEntry, error) {
	rows, err := s.DB.Query(ctx, `
SELECT audit_id,organization_id,action,entity_type,entity_id,metadata,created_at
FROM audit_logs WHERE entity_type='contract' AND entity_id=$1
ORDER BY created_at ASC, audit_id ASC
`, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []esign.AuditEntry
	for rows.Next() {
		var e esign.AuditEntry
		var metadata []byte
		if err := rows.Scan(&e.AuditID, &e.OrganizationID, &e.Action, &e.EntityType, &e.EntityID, &metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(metadata, &e.Metadata)
		out = append(out, e)
	}
	return out, rows.Err()
}
