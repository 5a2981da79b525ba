package esign

import "time"

// SigningWindow is how long a recipient has to sign after a request is
// issued. Fixed at creation, never extended.
const SigningWindow = 7 * 24 * time.Hour

type RequestStatus string

const (
	StatusPending   RequestStatus = "PENDING"
	StatusSigned    RequestStatus = "SIGNED"
	StatusCancelled RequestStatus = "CANCELLED"
)

type ContractStatus string

const (
	ContractDraft     ContractStatus = "DRAFT"
	ContractSent      ContractStatus = "SENT"
	ContractSigned    ContractStatus = "SIGNED"
	ContractCancelled ContractStatus = "CANCELLED"
)

// Contract is the slice of the contract entity this service touches: id,
// tenant, the content shown on the public signing page, and the status the
// signing workflow drives SENT -> SIGNED.
type Contract struct {
	ContractID     string         `json:"contract_id"`
	OrganizationID string         `json:"organization_id"`
	Title          string         `json:"title"`
	Content        string         `json:"content"`
	Terms          string         `json:"terms"`
	Status         ContractStatus `json:"status"`
	SignedAt       *time.Time     `json:"signed_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// SignatureRequest tracks one invitation for one recipient to sign one
// contract. The signing token itself is never stored, only its hash.
type SignatureRequest struct {
	RequestID      string        `json:"signature_request_id"`
	ContractID     string        `json:"contract_id"`
	OrganizationID string        `json:"organization_id"`
	RecipientEmail string        `json:"recipient_email"`
	RecipientName  string        `json:"recipient_name"`
	TokenHash      string        `json:"-"`
	Status         RequestStatus `json:"status"`
	ExpiresAt      time.Time     `json:"expires_at"`
	CreatedAt      time.Time     `json:"created_at"`

	// Populated exactly once, on successful signing.
	SignedAt      *time.Time `json:"signed_at,omitempty"`
	SignatureData *string    `json:"signature_data,omitempty"`
	SignatureType *string    `json:"signature_type,omitempty"`
	SignatureHash *string    `json:"signature_hash,omitempty"`
	SignedBy      *string    `json:"signed_by,omitempty"`
	IPAddress     *string    `json:"ip_address,omitempty"`

	LastReminderSent *time.Time `json:"last_reminder_sent,omitempty"`
}

// PendingRequest is a pending signature request joined with its contract
// title for dashboard listings.
type PendingRequest struct {
	SignatureRequest
	ContractTitle string `json:"contract_title"`
}

const ActionContractSigned = "CONTRACT_SIGNED"

// AuditEntry is an append-only record of a signing event. Entries are never
// mutated or deleted.
type AuditEntry struct {
	AuditID        string         `json:"audit_id"`
	OrganizationID string         `json:"organization_id"`
	Action         string         `json:"action"`
	EntityType     string         `json:"entity_type"`
	EntityID       string         `json:"entity_id"`
	Metadata       map[string]any `json:"metadata"`
	CreatedAt      time.Time      `json:"created_at"`
}

// SignedRecord carries the terminal write applied when a request is signed.
// The store must apply it together with the contract update and the audit
// append as one transaction, and only while the request is still PENDING.
type SignedRecord struct {
	RequestID      string
	ContractID     string
	OrganizationID string
	SignedAt       time.Time
	SignatureData  string
	SignatureType  string
	SignatureHash  string
	SignedBy       string
	IPAddress      string
}

// SignResult is what a successful ProcessSignature returns to the signer.
type SignResult struct {
	ContractID    string `json:"contract_id"`
	SignatureHash string `json:"signature_hash"`
}

// CreatedRequest is the issuer's result: the stored record plus the one-time
// plaintext token and the URL to deliver to the recipient.
type CreatedRequest struct {
	Request      SignatureRequest
	Token        string
	SignatureURL string
}

// ContractSnapshot is the public-safe contract projection shown on the
// signing page.
type ContractSnapshot struct {
	ContractID string `json:"contract_id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Terms      string `json:"terms"`
}
