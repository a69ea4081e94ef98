// Package models defines the session snapshot that consumers read.
package models

import (
	"github.com/samber/lo"

	idmodels "kycpass/internal/identity/models"
)

// Phase is the controller state for the current account.
type Phase string

const (
	// PhaseUnbound means no account is connected.
	PhaseUnbound Phase = "unbound"
	// PhaseChecking means a DID lookup is in flight.
	PhaseChecking Phase = "checking"
	// PhaseNoDID means the account has no DID, or presence could not be confirmed.
	PhaseNoDID Phase = "no_did"
	// PhaseHasDID means a DID is confirmed and credentials are not loaded.
	PhaseHasDID Phase = "has_did"
	// PhaseFetchingCredentials means the credential list is being replaced.
	PhaseFetchingCredentials Phase = "fetching_credentials"
	// PhaseReady holds the working snapshot for the account.
	PhaseReady Phase = "ready"
)

// Snapshot is an immutable view of the session at one point in time.
//
// Credentials are in issuance order. Verification is nil until a
// verification succeeds. Version increases with every applied mutation.
type Snapshot struct {
	Account      idmodels.AccountID
	Phase        Phase
	HasDID       bool
	DID          idmodels.DID
	Credentials  []idmodels.Credential
	Verification *idmodels.VerificationOutcome
	Loading      bool
	Error        string
	Version      uint64
}

// Clone returns a deep copy so readers never share memory with the store.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Credentials != nil {
		out.Credentials = make([]idmodels.Credential, len(s.Credentials))
		copy(out.Credentials, s.Credentials)
	}
	if s.Verification != nil {
		v := *s.Verification
		out.Verification = &v
	}
	return out
}

// Bound reports whether an account is connected.
func (s Snapshot) Bound() bool {
	return !s.Account.IsNil()
}

// ContentUnlocked reports whether the latest verification granted access to
// protected content. Validity alone does not unlock.
func (s Snapshot) ContentUnlocked() bool {
	return s.Verification != nil && s.Verification.HasAccess
}

// Credential finds a credential by backend id or ledger id.
func (s Snapshot) Credential(id idmodels.CredentialID) (idmodels.Credential, bool) {
	return lo.Find(s.Credentials, func(c idmodels.Credential) bool {
		return c.ID == id || (c.Anchored() && idmodels.CredentialID(c.LedgerID) == id)
	})
}
