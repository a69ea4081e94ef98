package handler

import (
	"time"

	"github.com/samber/lo"

	"kycpass/internal/identity/models"
	"kycpass/internal/platform/config"
	sessionmodels "kycpass/internal/session/models"
)

// SnapshotResponse is the JSON view of the session snapshot.
type SnapshotResponse struct {
	Account         string                `json:"account,omitempty"`
	Phase           string                `json:"phase"`
	HasDID          bool                  `json:"hasDid"`
	DID             string                `json:"did,omitempty"`
	Credentials     []CredentialResponse  `json:"credentials"`
	Verification    *VerificationResponse `json:"verification,omitempty"`
	ContentUnlocked bool                  `json:"contentUnlocked"`
	Loading         bool                  `json:"loading"`
	Error           string                `json:"error,omitempty"`
	Version         uint64                `json:"version"`
}

// CredentialResponse is one credential in issuance order.
type CredentialResponse struct {
	ID              string             `json:"id"`
	Owner           string             `json:"owner"`
	Data            CredentialDataView `json:"credentialData"`
	IssuedAt        time.Time          `json:"issuedAt"`
	LedgerID        string             `json:"ledgerId,omitempty"`
	VerificationKey string             `json:"verificationKey"`
}

// CredentialDataView mirrors the KYC payload.
type CredentialDataView struct {
	FullName    string `json:"fullName"`
	DateOfBirth string `json:"dateOfBirth"`
	NationalID  string `json:"nationalId"`
	Address     string `json:"address"`
}

// VerificationResponse is the latest verification outcome.
type VerificationResponse struct {
	IsValid   bool   `json:"isValid"`
	HasAccess bool   `json:"hasAccess"`
	Message   string `json:"message,omitempty"`
}

// CredentialListResponse wraps the session's credential list.
type CredentialListResponse struct {
	Credentials []CredentialResponse `json:"credentials"`
	Total       int                  `json:"total"`
}

// AccessResponse reports whether protected content is unlocked.
type AccessResponse struct {
	Unlocked bool   `json:"unlocked"`
	Message  string `json:"message,omitempty"`
}

// NewSnapshotResponse renders snap for consumers.
func NewSnapshotResponse(snap sessionmodels.Snapshot) *SnapshotResponse {
	return &SnapshotResponse{
		Account:         snap.Account.String(),
		Phase:           string(snap.Phase),
		HasDID:          snap.HasDID,
		DID:             snap.DID.String(),
		Credentials:     toCredentialResponses(snap.Credentials),
		Verification:    toVerificationResponse(snap.Verification),
		ContentUnlocked: snap.ContentUnlocked(),
		Loading:         snap.Loading,
		Error:           snap.Error,
		Version:         snap.Version,
	}
}

func toCredentialResponses(creds []models.Credential) []CredentialResponse {
	return lo.Map(creds, func(c models.Credential, _ int) CredentialResponse {
		return NewCredentialResponse(c)
	})
}

// NewCredentialListResponse renders creds in order.
func NewCredentialListResponse(creds []models.Credential) *CredentialListResponse {
	list := toCredentialResponses(creds)
	return &CredentialListResponse{Credentials: list, Total: len(list)}
}

func NewCredentialResponse(c models.Credential) CredentialResponse {
	return CredentialResponse{
		ID:    c.ID.String(),
		Owner: c.Owner.String(),
		Data: CredentialDataView{
			FullName:    c.Data.FullName,
			DateOfBirth: c.Data.DateOfBirth,
			NationalID:  c.Data.NationalID,
			Address:     c.Data.Address,
		},
		IssuedAt:        c.IssuedAt,
		LedgerID:        c.LedgerID,
		VerificationKey: c.VerificationKey().String(),
	}
}

func toVerificationResponse(v *models.VerificationOutcome) *VerificationResponse {
	if v == nil {
		return nil
	}
	return &VerificationResponse{
		IsValid:   v.IsValid,
		HasAccess: v.HasAccess,
		Message:   v.Message,
	}
}

func toAccessResponse(snap sessionmodels.Snapshot) *AccessResponse {
	resp := &AccessResponse{Unlocked: snap.ContentUnlocked()}
	if snap.Verification != nil {
		resp.Message = snap.Verification.Message
	}
	return resp
}

// VerifyResponse is the outcome of one verification.
type VerifyResponse struct {
	VerificationResponse
	ContentUnlocked bool `json:"contentUnlocked"`
}

// LedgerResponse exposes the ledger anchoring identifiers read-only.
type LedgerResponse struct {
	config.Ledger
	Missing []string `json:"missing,omitempty"`
}

// NewVerifyResponse renders a verification outcome; v must not be nil.
func NewVerifyResponse(v *models.VerificationOutcome) *VerifyResponse {
	return &VerifyResponse{
		VerificationResponse: *toVerificationResponse(v),
		ContentUnlocked:      v.HasAccess,
	}
}
