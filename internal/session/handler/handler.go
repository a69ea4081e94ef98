// Package handler exposes the session to local presentation consumers over
// HTTP. It only reads the snapshot and dispatches controller commands; all
// state lives in the controller's store.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kycpass/internal/identity/models"
	"kycpass/internal/platform/config"
	sessionmodels "kycpass/internal/session/models"
	dErrors "kycpass/pkg/domain-errors"
	"kycpass/pkg/platform/httputil"
	"kycpass/pkg/requestcontext"
)

// Service is the session controller surface the handler drives.
type Service interface {
	Snapshot() sessionmodels.Snapshot
	SetAccount(ctx context.Context, account models.AccountID) error
	CheckDID(ctx context.Context) error
	CreateDID(ctx context.Context) error
	Refetch(ctx context.Context) error
	CreateCredential(ctx context.Context, data models.CredentialData) (*models.Credential, error)
	VerifyCredential(ctx context.Context, credentialID models.CredentialID) (*models.VerificationOutcome, error)
}

// Handler serves the session routes.
type Handler struct {
	session Service
	ledger  config.Ledger
	logger  *slog.Logger
}

// New creates a session Handler. A nil logger discards output.
func New(session Service, ledger config.Ledger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{
		session: session,
		ledger:  ledger,
		logger:  logger,
	}
}

// Register registers the session routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/ledger", h.HandleLedger)

	r.Route("/session", func(r chi.Router) {
		r.Get("/", h.HandleGetSession)
		r.Put("/account", h.HandleBindAccount)
		r.Delete("/account", h.HandleClearAccount)
		r.Post("/did/check", h.HandleCheckDID)
		r.Post("/did", h.HandleCreateDID)
		r.Get("/credentials", h.HandleListCredentials)
		r.Post("/credentials", h.HandleCreateCredential)
		r.Post("/credentials/refresh", h.HandleRefreshCredentials)
		r.Post("/verify", h.HandleVerify)
		r.Get("/access", h.HandleAccess)
	})
}

// HandleLedger reports the ledger anchoring identifiers and which of them
// are not configured.
func (h *Handler) HandleLedger(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LedgerResponse{
		Ledger:  h.ledger,
		Missing: h.ledger.Missing(),
	})
}

func (h *Handler) HandleGetSession(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, NewSnapshotResponse(h.session.Snapshot()))
}

// HandleBindAccount binds the session to the requested account. The call
// returns after the DID check and, when a DID exists, the credential fetch.
func (h *Handler) HandleBindAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[BindAccountRequest](w, r, h.logger)
	if !ok {
		return
	}

	if err := h.session.SetAccount(ctx, models.AccountID(req.Account)); err != nil {
		h.fail(ctx, w, "bind account", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, NewSnapshotResponse(h.session.Snapshot()))
}

func (h *Handler) HandleClearAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.session.SetAccount(ctx, ""); err != nil {
		h.fail(ctx, w, "clear account", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, NewSnapshotResponse(h.session.Snapshot()))
}

func (h *Handler) HandleCheckDID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.session.CheckDID(ctx); err != nil {
		h.fail(ctx, w, "check did", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, NewSnapshotResponse(h.session.Snapshot()))
}

func (h *Handler) HandleCreateDID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.session.CreateDID(ctx); err != nil {
		h.fail(ctx, w, "create did", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, NewSnapshotResponse(h.session.Snapshot()))
}

func (h *Handler) HandleListCredentials(w http.ResponseWriter, _ *http.Request) {
	h.writeCredentials(w, h.session.Snapshot())
}

func (h *Handler) HandleCreateCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateCredentialRequest](w, r, h.logger)
	if !ok {
		return
	}

	cred, err := h.session.CreateCredential(ctx, req.toModel())
	if err != nil {
		h.fail(ctx, w, "create credential", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, NewCredentialResponse(*cred))
}

// HandleRefreshCredentials replaces the credential list with the backend's
// and returns the new list.
func (h *Handler) HandleRefreshCredentials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.session.Refetch(ctx); err != nil {
		h.fail(ctx, w, "refresh credentials", err)
		return
	}
	h.writeCredentials(w, h.session.Snapshot())
}

func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger)
	if !ok {
		return
	}

	outcome, err := h.session.VerifyCredential(ctx, models.CredentialID(req.CredentialID))
	if err != nil {
		h.fail(ctx, w, "verify credential", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, NewVerifyResponse(outcome))
}

// HandleAccess reports whether the latest verification unlocks protected
// content. Validity alone does not unlock.
func (h *Handler) HandleAccess(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, toAccessResponse(h.session.Snapshot()))
}

func (h *Handler) writeCredentials(w http.ResponseWriter, snap sessionmodels.Snapshot) {
	httputil.WriteJSON(w, http.StatusOK, NewCredentialListResponse(snap.Credentials))
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	level := slog.LevelWarn
	if httputil.DomainCodeToHTTPStatus(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, "session command failed",
		"operation", op,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteError(w, err)
}
