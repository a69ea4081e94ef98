package testutil

import (
	"time"

	"kycpass/internal/identity/models"
)

// TestAccounts provides fixed wallet accounts for tests.
var TestAccounts = struct {
	Alice models.AccountID
	Bob   models.AccountID
}{
	Alice: models.AccountID("0xA1"),
	Bob:   models.AccountID("0xB2"),
}

// ValidCredentialData returns a complete KYC payload.
func ValidCredentialData() models.CredentialData {
	return models.CredentialData{
		FullName:    "Jane Doe",
		DateOfBirth: "1990-01-01",
		NationalID:  "123-45-6789",
		Address:     "1 Main St",
	}
}

// CredentialBuilder provides a fluent interface for building test credentials.
type CredentialBuilder struct {
	cred models.Credential
}

// NewCredential creates a builder for a credential owned by Alice.
func NewCredential(id string) *CredentialBuilder {
	return &CredentialBuilder{
		cred: models.Credential{
			ID:       models.CredentialID(id),
			Owner:    TestAccounts.Alice,
			Data:     ValidCredentialData(),
			IssuedAt: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func (b *CredentialBuilder) OwnedBy(account models.AccountID) *CredentialBuilder {
	b.cred.Owner = account
	return b
}

func (b *CredentialBuilder) AnchoredAs(ledgerID string) *CredentialBuilder {
	b.cred.LedgerID = ledgerID
	return b
}

func (b *CredentialBuilder) IssuedAt(t time.Time) *CredentialBuilder {
	b.cred.IssuedAt = t
	return b
}

func (b *CredentialBuilder) Build() models.Credential {
	return b.cred
}
