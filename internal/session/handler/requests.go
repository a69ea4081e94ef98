package handler

import (
	"kycpass/internal/identity/models"
	s "kycpass/pkg/string"
	"kycpass/pkg/validation"
)

// BindAccountRequest carries the wallet's account signal.
type BindAccountRequest struct {
	Account string `json:"account"`
}

func (r *BindAccountRequest) Sanitize() {
	s.TrimStrings(&r.Account)
}

func (r *BindAccountRequest) Validate() error {
	_, err := models.ParseAccountID(r.Account)
	return err
}

// CreateCredentialRequest is the KYC payload for issuance.
type CreateCredentialRequest struct {
	FullName    string `json:"fullName" validate:"required,notblank,max=256"`
	DateOfBirth string `json:"dateOfBirth" validate:"required,notblank,max=32"`
	NationalID  string `json:"nationalId" validate:"required,notblank,max=64"`
	Address     string `json:"address" validate:"required,notblank,max=512"`
}

func (r *CreateCredentialRequest) Sanitize() {
	s.TrimStrings(&r.FullName, &r.DateOfBirth, &r.NationalID, &r.Address)
}

func (r *CreateCredentialRequest) Validate() error {
	return validation.Validate(r)
}

func (r *CreateCredentialRequest) toModel() models.CredentialData {
	return models.CredentialData{
		FullName:    r.FullName,
		DateOfBirth: r.DateOfBirth,
		NationalID:  r.NationalID,
		Address:     r.Address,
	}
}

// VerifyRequest names the credential to verify. Either the backend id or
// the ledger id is accepted; the backend resolves both.
type VerifyRequest struct {
	CredentialID string `json:"credentialId"`
}

func (r *VerifyRequest) Sanitize() {
	s.TrimStrings(&r.CredentialID)
}

func (r *VerifyRequest) Validate() error {
	_, err := models.ParseCredentialID(r.CredentialID)
	return err
}
