package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	contract "kycpass/contracts/identity"
	"kycpass/internal/identity/client"
	"kycpass/internal/platform/config"
	"kycpass/internal/session/handler"
	dErrors "kycpass/pkg/domain-errors"
)

type WalletdSuite struct {
	suite.Suite
	backend *httptest.Server

	mu          sync.Mutex
	hasDID      bool
	didStatus   int
	credentials []contract.UserCredential
	verified    []contract.VerifyCredentialRequest
}

func TestWalletdSuite(t *testing.T) {
	suite.Run(t, new(WalletdSuite))
}

func (s *WalletdSuite) SetupTest() {
	s.hasDID = true
	s.didStatus = http.StatusOK
	s.credentials = nil
	s.verified = nil

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/api/users/{account}/did", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.didStatus != http.StatusOK {
			s.writeJSON(w, s.didStatus, contract.ErrorResponse{Message: "DID registry unavailable"})
			return
		}
		resp := contract.DIDStatusResponse{HasDID: s.hasDID}
		if s.hasDID {
			resp.DIDID = "did:sui:0xA1"
		}
		s.writeJSON(w, http.StatusOK, resp)
	})
	r.Post("/api/users/{account}/did", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.hasDID = true
		s.writeJSON(w, http.StatusOK, contract.CreateDIDResponse{DIDID: "did:sui:0xA1"})
	})
	r.Get("/api/users/{account}/credentials", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.writeJSON(w, http.StatusOK, append([]contract.UserCredential{}, s.credentials...))
	})
	r.Post("/api/users/credentials", func(w http.ResponseWriter, r *http.Request) {
		var req contract.CreateCredentialRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		defer s.mu.Unlock()
		cred := contract.UserCredential{
			ID:             "cred-new",
			UserAddress:    req.UserAddress,
			CredentialData: req.CredentialData,
			IssuedAt:       "2026-03-01T10:00:00Z",
		}
		s.credentials = append(s.credentials, cred)
		s.writeJSON(w, http.StatusOK, cred)
	})
	r.Post("/api/users/verify", func(w http.ResponseWriter, r *http.Request) {
		var req contract.VerifyCredentialRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		defer s.mu.Unlock()
		s.verified = append(s.verified, req)
		s.writeJSON(w, http.StatusOK, contract.VerifyCredentialResponse{IsValid: true, HasAccess: true, Message: "Access granted"})
	})
	s.backend = httptest.NewServer(r)
}

func (s *WalletdSuite) TearDownTest() {
	s.backend.Close()
}

// backendState serializes test-side access to the fake backend's state.
func (s *WalletdSuite) backendState(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

func (s *WalletdSuite) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *WalletdSuite) verifyRequests() []contract.VerifyCredentialRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]contract.VerifyCredentialRequest(nil), s.verified...)
}

func (s *WalletdSuite) run(args ...string) (string, string, error) {
	cfg := config.Config{
		API: config.API{URL: s.backend.URL, Timeout: 2 * time.Second},
		Log: config.Log{Level: "error", Format: "json"},
	}
	var stdout, stderr bytes.Buffer
	root := newRootCommand(cfg, &stdout, &stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func (s *WalletdSuite) anchored(id, ledgerID string) contract.UserCredential {
	return contract.UserCredential{
		ID:          id,
		UserAddress: "0xA1",
		CredentialData: contract.CredentialData{
			FullName:    "Jane Doe",
			DateOfBirth: "1990-01-01",
			NationalID:  "123-45-6789",
			Address:     "1 Main St",
		},
		IssuedAt: "2026-01-01T12:00:00Z",
		SuiVCID:  ledgerID,
	}
}

func (s *WalletdSuite) TestConfigAppliesFlags() {
	out, _, err := s.run("config", "--api-url", "http://identity.internal:8080", "--log-format", "text")
	s.Require().NoError(err)

	var cfg config.Config
	s.Require().NoError(json.Unmarshal([]byte(out), &cfg))
	s.Equal("http://identity.internal:8080", cfg.API.URL)
	s.Equal("text", cfg.Log.Format)
	s.Equal(2*time.Second, cfg.API.Timeout)
}

func (s *WalletdSuite) TestDIDCheck() {
	s.Run("settles to ready with the account's credentials", func() {
		s.backendState(func() { s.credentials = []contract.UserCredential{s.anchored("cred-1", "0xvc1")} })

		out, _, err := s.run("did", "check", "--account", "0xA1")
		s.Require().NoError(err)

		var snap handler.SnapshotResponse
		s.Require().NoError(json.Unmarshal([]byte(out), &snap))
		s.Equal("ready", snap.Phase)
		s.True(snap.HasDID)
		s.Equal("did:sui:0xA1", snap.DID)
		s.Len(snap.Credentials, 1)
	})

	s.Run("account without DID", func() {
		s.backendState(func() { s.hasDID = false })

		out, _, err := s.run("did", "check", "--account", "0xA1")
		s.Require().NoError(err)

		var snap handler.SnapshotResponse
		s.Require().NoError(json.Unmarshal([]byte(out), &snap))
		s.Equal("no_did", snap.Phase)
		s.False(snap.HasDID)
	})

	s.Run("backend failure exits as unavailable", func() {
		s.backendState(func() { s.didStatus = http.StatusServiceUnavailable })

		_, stderr, err := s.run("did", "check", "--account", "0xA1")

		s.Require().Error(err)
		s.Equal(4, exitCode(err))
		s.Contains(stderr, "DID registry unavailable")
	})

	s.Run("account is required", func() {
		_, _, err := s.run("did", "check")
		s.Require().Error(err)
		s.Contains(err.Error(), `"account" not set`)
	})
}

func (s *WalletdSuite) TestDIDCreate() {
	s.backendState(func() { s.hasDID = false })

	out, _, err := s.run("did", "create", "--account", "0xA1")
	s.Require().NoError(err)

	var snap handler.SnapshotResponse
	s.Require().NoError(json.Unmarshal([]byte(out), &snap))
	s.True(snap.HasDID)
	s.Equal("ready", snap.Phase)
}

func (s *WalletdSuite) TestCredentialCreate() {
	s.Run("issues with the given data", func() {
		out, _, err := s.run("credential", "create", "--account", "0xA1",
			"--full-name", "Jane Doe",
			"--date-of-birth", "1990-01-01",
			"--national-id", "123-45-6789",
			"--address", "1 Main St",
		)
		s.Require().NoError(err)

		var cred handler.CredentialResponse
		s.Require().NoError(json.Unmarshal([]byte(out), &cred))
		s.Equal("cred-new", cred.ID)
		s.Equal("Jane Doe", cred.Data.FullName)
	})

	s.Run("incomplete data is rejected locally", func() {
		_, _, err := s.run("credential", "create", "--account", "0xA1", "--full-name", "Jane Doe")

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *WalletdSuite) TestCredentialList() {
	s.backendState(func() {
		s.credentials = []contract.UserCredential{
			s.anchored("cred-1", ""),
			s.anchored("cred-2", "0xvc2"),
		}
	})

	out, _, err := s.run("credential", "list", "--account", "0xA1")
	s.Require().NoError(err)

	var list handler.CredentialListResponse
	s.Require().NoError(json.Unmarshal([]byte(out), &list))
	s.Equal(2, list.Total)
	s.Equal("cred-1", list.Credentials[0].ID)
	s.Equal("0xvc2", list.Credentials[1].VerificationKey)
}

func (s *WalletdSuite) TestVerify() {
	s.Run("defaults to the latest credential's ledger id", func() {
		s.backendState(func() {
			s.credentials = []contract.UserCredential{
				s.anchored("cred-1", "0xvc1"),
				s.anchored("cred-2", "0xvc2"),
			}
		})

		out, _, err := s.run("verify", "--account", "0xA1")
		s.Require().NoError(err)

		var resp handler.VerifyResponse
		s.Require().NoError(json.Unmarshal([]byte(out), &resp))
		s.True(resp.ContentUnlocked)
		verified := s.verifyRequests()
		s.Require().Len(verified, 1)
		s.Equal("0xvc2", verified[0].VCID)
		s.Equal("0xA1", verified[0].UserAddress)
	})

	s.Run("explicit credential id", func() {
		s.backendState(func() { s.verified = nil })

		_, _, err := s.run("verify", "--account", "0xA1", "--credential", "cred-1")
		s.Require().NoError(err)

		verified := s.verifyRequests()
		s.Require().Len(verified, 1)
		s.Equal("cred-1", verified[0].VCID)
	})

	s.Run("nothing to verify", func() {
		s.backendState(func() {
			s.credentials = nil
			s.verified = nil
		})

		_, _, err := s.run("verify", "--account", "0xA1")

		s.Require().ErrorIs(err, errNoCredentials)
		s.Equal(3, exitCode(err))
		s.Empty(s.verifyRequests())
	})
}

func (s *WalletdSuite) TestWaitForBackend() {
	cfg := config.Config{API: config.API{URL: s.backend.URL, Timeout: time.Second}}
	a, err := newApp(cfg, &globalFlags{}, &bytes.Buffer{})
	s.Require().NoError(err)
	defer a.close()

	s.Require().NoError(a.waitForBackend(context.Background(), time.Second))

	down := httptest.NewServer(http.NotFoundHandler())
	down.Close()
	cfg.API.URL = down.URL
	b, err := newApp(cfg, &globalFlags{}, &bytes.Buffer{})
	s.Require().NoError(err)
	defer b.close()

	s.Error(b.waitForBackend(context.Background(), 300*time.Millisecond))
}

func (s *WalletdSuite) TestWaitForBackendStopsOnWrongURL() {
	elsewhere := httptest.NewServer(http.NotFoundHandler())
	defer elsewhere.Close()

	cfg := config.Config{API: config.API{URL: elsewhere.URL, Timeout: time.Second}}
	a, err := newApp(cfg, &globalFlags{}, &bytes.Buffer{})
	s.Require().NoError(err)
	defer a.close()

	start := time.Now()
	err = a.waitForBackend(context.Background(), 30*time.Second)

	s.Require().Error(err)
	s.Equal(client.CategoryNotFound, client.GetCategory(err))
	s.Less(time.Since(start), 5*time.Second)
}
