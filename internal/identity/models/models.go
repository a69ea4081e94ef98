// Package models holds the identity types shared by the remote identity client
// and the session controller.
//
// Every type here is a value: credentials are immutable once issued, and
// accounts and DIDs are opaque handles owned by the wallet and the backend.
package models

import (
	"strings"
	"time"

	dErrors "kycpass/pkg/domain-errors"
)

// AccountID is the opaque handle of the connected wallet account.
// The zero value means no account is connected.
type AccountID string

// ParseAccountID validates an account handle at a trust boundary.
func ParseAccountID(value string) (AccountID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "account is required")
	}
	return AccountID(value), nil
}

// String returns the account handle as a string.
func (a AccountID) String() string { return string(a) }

// IsNil reports whether no account is bound.
func (a AccountID) IsNil() bool { return a == "" }

// DID is the backend-issued decentralized identifier handle.
type DID string

// String returns the DID as a string.
func (d DID) String() string { return string(d) }

// DIDStatus is the result of a DID presence check.
type DIDStatus struct {
	Present bool
	DID     DID
}

// CredentialID identifies an issued credential.
type CredentialID string

// ParseCredentialID validates a credential id at a trust boundary.
func ParseCredentialID(value string) (CredentialID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", dErrors.New(dErrors.CodeValidation, "credential_id is required")
	}
	return CredentialID(value), nil
}

// String returns the credential id as a string.
func (id CredentialID) String() string { return string(id) }

// CredentialData is the KYC payload submitted for issuance.
// Field contents are opaque; all four must be present.
type CredentialData struct {
	FullName    string `json:"fullName" validate:"required,notblank"`
	DateOfBirth string `json:"dateOfBirth" validate:"required,notblank"`
	NationalID  string `json:"nationalId" validate:"required,notblank"`
	Address     string `json:"address" validate:"required,notblank"`
}

// Credential is an issued KYC assertion bound to an account.
//
// LedgerID is set only once the backend has anchored the credential on the
// ledger; callers must not assume it is present.
type Credential struct {
	ID       CredentialID
	Owner    AccountID
	Data     CredentialData
	IssuedAt time.Time
	LedgerID string
}

// Anchored reports whether the credential carries a ledger id.
func (c Credential) Anchored() bool {
	return c.LedgerID != ""
}

// VerificationKey is the id a consumer submits to verify this credential:
// the ledger id once anchored, otherwise the backend id.
func (c Credential) VerificationKey() CredentialID {
	if c.Anchored() {
		return CredentialID(c.LedgerID)
	}
	return c.ID
}

// VerificationOutcome is the backend's answer to a verification request.
// IsValid and HasAccess are independent: a valid credential may still fail
// the access policy, and every combination is rendered as received.
type VerificationOutcome struct {
	IsValid   bool
	HasAccess bool
	Message   string
}
