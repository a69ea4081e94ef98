// Package identity hosts the JSON shapes exchanged with the backend identity
// service. Keep these in lockstep with the backend's /api/users routes; the
// session packages convert them into internal/identity/models values.
package identity

// DIDStatusResponse is returned by GET /users/{address}/did.
type DIDStatusResponse struct {
	HasDID bool   `json:"hasDid"`
	DIDID  string `json:"didId,omitempty"`
}

// CreateDIDResponse is returned by POST /users/{address}/did.
type CreateDIDResponse struct {
	DIDID string `json:"didId"`
}

// CredentialData is the KYC payload carried by issuance requests and records.
type CredentialData struct {
	FullName    string `json:"fullName"`
	DateOfBirth string `json:"dateOfBirth"`
	NationalID  string `json:"nationalId"`
	Address     string `json:"address"`
}

// UserCredential is a credential record as reported by the backend.
// SuiVCID is omitted until the credential is anchored on the ledger.
type UserCredential struct {
	ID             string         `json:"id"`
	UserAddress    string         `json:"userAddress"`
	CredentialData CredentialData `json:"credentialData"`
	IssuedAt       string         `json:"issuedAt"`
	SuiVCID        string         `json:"suiVcId,omitempty"`
}

// CreateCredentialRequest is the body of POST /users/credentials.
type CreateCredentialRequest struct {
	UserAddress    string         `json:"userAddress"`
	CredentialData CredentialData `json:"credentialData"`
}

// VerifyCredentialRequest is the body of POST /users/verify.
type VerifyCredentialRequest struct {
	UserAddress string `json:"userAddress"`
	VCID        string `json:"vcId"`
}

// VerifyCredentialResponse is returned by POST /users/verify.
type VerifyCredentialResponse struct {
	IsValid   bool   `json:"isValid"`
	HasAccess bool   `json:"hasAccess"`
	Message   string `json:"message"`
}

// ErrorResponse is the error body the backend sends on failures.
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}
