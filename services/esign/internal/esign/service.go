package esign

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Blaineeey/Planning-Suite-sub000/pkg/sealhash"
	"github.com/Blaineeey/Planning-Suite-sub000/pkg/sigtoken"
)

// Store is the persistence boundary. The only hard concurrency requirement
// lives in MarkSigned and CancelRequest: both are compare-and-swap writes
// that must succeed for at most one caller while the request is PENDING.
type Store interface {
	GetContract(ctx context.Context, contractID string) (Contract, error)
	// CreateRequest inserts the request and moves the contract to SENT
	// (without downgrading a SIGNED contract) in one transaction. A
	// token-hash collision returns ErrDuplicateToken.
	CreateRequest(ctx context.Context, req SignatureRequest) error
	GetRequest(ctx context.Context, requestID string) (SignatureRequest, error)
	GetRequestByTokenHash(ctx context.Context, tokenHash string) (SignatureRequest, error)
	ListRequestsByContract(ctx context.Context, contractID string) ([]SignatureRequest, error)
	ListPendingRequests(ctx context.Context, organizationID string) ([]PendingRequest, error)
	// MarkSigned applies the terminal signing write, the contract SIGNED
	// update, and the audit append transactionally. It reports false
	// without writing anything when the request is no longer PENDING.
	MarkSigned(ctx context.Context, rec SignedRecord) (bool, error)
	// CancelRequest flips PENDING to CANCELLED; false when the request
	// was not PENDING.
	CancelRequest(ctx context.Context, requestID string) (bool, error)
	// TouchReminder records the reminder timestamp; false when the
	// request reached a terminal state since it was read.
	TouchReminder(ctx context.Context, requestID string, at time.Time) (bool, error)
	ListAuditEntries(ctx context.Context, contractID string) ([]AuditEntry, error)
}

// Notifier is the outbound delivery collaborator (email/SMS). Sends are
// best-effort from this service's point of view.
type Notifier interface {
	SignatureRequested(ctx context.Context, req SignatureRequest, signingURL string)
	SignatureReminder(ctx context.Context, req SignatureRequest)
}

type Service struct {
	store    Store
	notifier Notifier
	baseURL  string
	now      func() time.Time
}

func NewService(store Store, notifier Notifier, baseURL string) *Service {
	return &Service{store: store, notifier: notifier, baseURL: baseURL, now: time.Now}
}

// createTokenAttempts bounds the defensive retry on a token-hash collision.
// With 256-bit tokens a collision is not expected in practice.
const createTokenAttempts = 3

// CreateRequest issues a new signature request against an existing contract
// owned by organizationID, marks the contract SENT, and hands the signing
// link to the notifier.
func (s *Service) CreateRequest(ctx context.Context, organizationID, contractID, recipientEmail, recipientName string) (CreatedRequest, error) {
	contract, err := s.store.GetContract(ctx, contractID)
	if err != nil {
		return CreatedRequest{}, err
	}
	if organizationID != "" && contract.OrganizationID != organizationID {
		return CreatedRequest{}, ErrContractNotFound
	}

	now := s.now().UTC()
	for attempt := 0; attempt < createTokenAttempts; attempt++ {
		token, err := sigtoken.New()
		if err != nil {
			return CreatedRequest{}, err
		}
		req := SignatureRequest{
			RequestID:      "sr_" + uuid.NewString(),
			ContractID:     contract.ContractID,
			OrganizationID: contract.OrganizationID,
			RecipientEmail: recipientEmail,
			RecipientName:  recipientName,
			TokenHash:      sigtoken.Hash(token),
			Status:         StatusPending,
			ExpiresAt:      now.Add(SigningWindow),
			CreatedAt:      now,
		}
		if err := s.store.CreateRequest(ctx, req); err != nil {
			if errors.Is(err, ErrDuplicateToken) {
				continue
			}
			return CreatedRequest{}, err
		}
		created := CreatedRequest{
			Request:      req,
			Token:        token,
			SignatureURL: s.signingURL(token),
		}
		s.notifier.SignatureRequested(ctx, req, created.SignatureURL)
		return created, nil
	}
	return CreatedRequest{}, ErrDuplicateToken
}

func (s *Service) signingURL(token string) string {
	return strings.TrimRight(s.baseURL, "/") + "/sign/" + token
}

// ProcessSignature consumes a signing token exactly once. Validation order:
// unknown token, derived expiry (PENDING past its deadline), terminal
// states. The store's compare-and-swap closes the race between the status
// check and the terminal write.
func (s *Service) ProcessSignature(ctx context.Context, token, signatureData, signatureType, ipAddress string) (SignResult, error) {
	if strings.TrimSpace(token) == "" {
		return SignResult{}, ErrRequestNotFound
	}
	req, err := s.store.GetRequestByTokenHash(ctx, sigtoken.Hash(token))
	if err != nil {
		return SignResult{}, err
	}
	// timestamptz keeps microseconds; seal the hash over the exact value
	// the store will hand back to verification.
	now := s.now().UTC().Truncate(time.Microsecond)
	if err := requestBlocksSigning(req, now); err != nil {
		return SignResult{}, err
	}

	hash := sealhash.Signature(req.ContractID, signatureData, now, ipAddress)
	ok, err := s.store.MarkSigned(ctx, SignedRecord{
		RequestID:      req.RequestID,
		ContractID:     req.ContractID,
		OrganizationID: req.OrganizationID,
		SignedAt:       now,
		SignatureData:  signatureData,
		SignatureType:  signatureType,
		SignatureHash:  hash,
		SignedBy:       req.RecipientName,
		IPAddress:      ipAddress,
	})
	if err != nil {
		return SignResult{}, err
	}
	if !ok {
		// Lost the race: someone else reached a terminal state first.
		current, err := s.store.GetRequest(ctx, req.RequestID)
		if err != nil {
			return SignResult{}, err
		}
		if current.Status == StatusCancelled {
			return SignResult{}, ErrRequestCancelled
		}
		return SignResult{}, ErrAlreadySigned
	}
	return SignResult{ContractID: req.ContractID, SignatureHash: hash}, nil
}

// requestBlocksSigning reports why a request cannot be signed right now.
// Expiry is derived, not stored: it only applies while the request is still
// PENDING, so a SIGNED request keeps answering "already signed" forever.
func requestBlocksSigning(req SignatureRequest, now time.Time) error {
	if req.Status == StatusPending && now.After(req.ExpiresAt) {
		return ErrRequestExpired
	}
	switch req.Status {
	case StatusSigned:
		return ErrAlreadySigned
	case StatusCancelled:
		return ErrRequestCancelled
	}
	return nil
}

// VerifySignature recomputes the seal from the stored fields and compares
// it to the stored hash. This detects post-hoc tampering with the record,
// not the signer's original intent. Unknown or unsigned requests verify
// false rather than erroring.
func (s *Service) VerifySignature(ctx context.Context, organizationID, requestID string) (bool, error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			return false, nil
		}
		return false, err
	}
	if organizationID != "" && req.OrganizationID != organizationID {
		return false, nil
	}
	if req.SignatureHash == nil || req.SignatureData == nil || req.SignedAt == nil {
		return false, nil
	}
	ip := ""
	if req.IPAddress != nil {
		ip = *req.IPAddress
	}
	recomputed := sealhash.Signature(req.ContractID, *req.SignatureData, *req.SignedAt, ip)
	return sealhash.Equal(recomputed, *req.SignatureHash), nil
}

// CancelRequest is a terminal write. Cancelling a SIGNED request is a
// conflict; cancelling twice is a no-op success.
func (s *Service) CancelRequest(ctx context.Context, organizationID, requestID string) error {
	req, err := s.getScopedRequest(ctx, organizationID, requestID)
	if err != nil {
		return err
	}
	switch req.Status {
	case StatusSigned:
		return ErrCannotCancelSigned
	case StatusCancelled:
		return nil
	}
	ok, err := s.store.CancelRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if !ok {
		current, err := s.store.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if current.Status == StatusSigned {
			return ErrCannotCancelSigned
		}
	}
	return nil
}

func (s *Service) SendReminder(ctx context.Context, organizationID, requestID string) (SignatureRequest, error) {
	req, err := s.getScopedRequest(ctx, organizationID, requestID)
	if err != nil {
		return SignatureRequest{}, err
	}
	if req.Status != StatusPending {
		return SignatureRequest{}, ErrReminderNotPending
	}
	now := s.now().UTC()
	ok, err := s.store.TouchReminder(ctx, requestID, now)
	if err != nil {
		return SignatureRequest{}, err
	}
	if !ok {
		// Signed or cancelled between the read and the touch.
		return SignatureRequest{}, ErrReminderNotPending
	}
	req.LastReminderSent = &now
	s.notifier.SignatureReminder(ctx, req)
	return req, nil
}

func (s *Service) ContractSignatures(ctx context.Context, organizationID, contractID string) ([]SignatureRequest, error) {
	contract, err := s.store.GetContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if organizationID != "" && contract.OrganizationID != organizationID {
		return nil, ErrContractNotFound
	}
	return s.store.ListRequestsByContract(ctx, contractID)
}

func (s *Service) PendingSignatures(ctx context.Context, organizationID string) ([]PendingRequest, error) {
	return s.store.ListPendingRequests(ctx, organizationID)
}

func (s *Service) AuditTrail(ctx context.Context, organizationID, contractID string) ([]AuditEntry, error) {
	contract, err := s.store.GetContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if organizationID != "" && contract.OrganizationID != organizationID {
		return nil, ErrContractNotFound
	}
	return s.store.ListAuditEntries(ctx, contractID)
}

// SigningView resolves the public signing page for a token. The token is the
// capability: no tenant check happens here. Expired pending requests error;
// other states are returned for the page to render.
func (s *Service) SigningView(ctx context.Context, token string) (SignatureRequest, *ContractSnapshot, error) {
	if strings.TrimSpace(token) == "" {
		return SignatureRequest{}, nil, ErrRequestNotFound
	}
	req, err := s.store.GetRequestByTokenHash(ctx, sigtoken.Hash(token))
	if err != nil {
		return SignatureRequest{}, nil, err
	}
	if req.Status == StatusPending && s.now().UTC().After(req.ExpiresAt) {
		return SignatureRequest{}, nil, ErrRequestExpired
	}
	var snapshot *ContractSnapshot
	contract, err := s.store.GetContract(ctx, req.ContractID)
	if err == nil {
		snapshot = &ContractSnapshot{
			ContractID: contract.ContractID,
			Title:      contract.Title,
			Content:    contract.Content,
			Terms:      contract.Terms,
		}
	} else if !errors.Is(err, ErrContractNotFound) {
		return SignatureRequest{}, nil, err
	}
	return req, snapshot, nil
}

func (s *Service) getScopedRequest(ctx context.Context, organizationID, requestID string) (SignatureRequest, error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return SignatureRequest{}, err
	}
	if organizationID != "" && req.OrganizationID != organizationID {
		return SignatureRequest{}, ErrRequestNotFound
	}
	return req, nil
}
