// Package controller implements the session controller: it reacts to account
// changes, sequences the DID check and the credential fetch, and exposes the
// DID and credential commands consumers dispatch.
//
// Every remote call is stamped with the account it was issued for. Results
// are committed through the store with that stamp, so a response that arrives
// after the account changed never reaches the snapshot.
package controller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"kycpass/internal/identity/models"
	"kycpass/internal/session/metrics"
	sessionmodels "kycpass/internal/session/models"
	"kycpass/internal/session/store"
	dErrors "kycpass/pkg/domain-errors"
	"kycpass/pkg/validation"
)

// IdentityService is the remote identity authority the controller drives.
type IdentityService interface {
	CheckDID(ctx context.Context, account models.AccountID) (models.DIDStatus, error)
	CreateDID(ctx context.Context, account models.AccountID) (models.DID, error)
	ListCredentials(ctx context.Context, account models.AccountID) ([]models.Credential, error)
	CreateCredential(ctx context.Context, account models.AccountID, data models.CredentialData) (*models.Credential, error)
	VerifyCredential(ctx context.Context, account models.AccountID, credentialID models.CredentialID) (*models.VerificationOutcome, error)
}

// Errors returned to command callers. Domain errors compare by code, so use
// dErrors.HasCode or errors.Is against these values.
var (
	ErrBusy          = dErrors.New(dErrors.CodeBusy, "command already in progress")
	ErrStaleIdentity = dErrors.New(dErrors.CodeStaleIdentity, "account changed before the response arrived")
	ErrNoAccount     = dErrors.New(dErrors.CodePolicyViolation, "no account connected")
	ErrNoDID         = dErrors.New(dErrors.CodePolicyViolation, "account has no DID")
)

// Fallback failure messages, shown when the backend sent none.
const (
	msgCheckDIDFailed         = "Failed to check DID"
	msgCreateDIDFailed        = "Failed to create DID"
	msgFetchCredentialsFailed = "Failed to fetch credentials"
	msgCreateCredentialFailed = "Failed to create credential"
	msgVerifyFailed           = "Failed to verify credential"
)

// Controller is the single writer of the session store.
type Controller struct {
	store   *store.Store
	svc     IdentityService
	flights *flights
	metrics *metrics.Metrics
	logger  *slog.Logger

	// mu serializes phase transitions; it is never held across a remote call.
	mu sync.Mutex
}

// Option configures the Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics instance for the controller.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// New creates a controller over st that talks to svc.
func New(st *store.Store, svc IdentityService, opts ...Option) *Controller {
	c := &Controller{
		store:   st,
		svc:     svc,
		flights: newFlights(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current session snapshot.
func (c *Controller) Snapshot() sessionmodels.Snapshot {
	return c.store.Snapshot()
}

// Subscribe returns a stream of snapshots; see store.Store.Subscribe.
func (c *Controller) Subscribe() (<-chan sessionmodels.Snapshot, func()) {
	return c.store.Subscribe()
}

// SetAccount handles the wallet's account signal. Binding a new account
// clears all account-scoped state, checks for a DID and, when one exists,
// fetches the account's credentials before returning. An empty account
// unbinds the session. Re-sending the current account does nothing.
func (c *Controller) SetAccount(ctx context.Context, account models.AccountID) error {
	c.mu.Lock()
	changed := c.store.SetAccount(account)
	stamp := c.store.Stamp()
	c.mu.Unlock()
	if !changed {
		return nil
	}

	if account.IsNil() {
		c.logger.Info("account cleared")
		c.incrementIdentityTransitions("cleared")
		return nil
	}

	c.logger.Info("account bound", "account", account.String())
	c.incrementIdentityTransitions("bound")

	actions, ok := c.advance(stamp, EventAccountBound)
	if !ok {
		return ErrStaleIdentity
	}
	return c.run(ctx, stamp, actions)
}

// CheckDID re-checks DID presence for the current account and, when present,
// refreshes the credential list.
func (c *Controller) CheckDID(ctx context.Context) error {
	stamp, err := c.requireAccount()
	if err != nil {
		return c.record(CommandCheckDID, err)
	}
	actions, err := c.checkDID(ctx, stamp)
	if err != nil {
		return err
	}
	return c.run(ctx, stamp, actions)
}

// CreateDID registers a DID for the current account and then fetches its
// credentials. Calling it when the account already has a DID succeeds
// without a remote call.
func (c *Controller) CreateDID(ctx context.Context) error {
	stamp, err := c.requireAccount()
	if err != nil {
		return c.record(CommandCreateDID, err)
	}
	actions, err := c.createDID(ctx, stamp)
	if err != nil {
		return err
	}
	return c.run(ctx, stamp, actions)
}

// FetchCredentials replaces the session's credential list with the
// backend's. It requires a confirmed DID.
func (c *Controller) FetchCredentials(ctx context.Context) error {
	stamp, err := c.requireAccount()
	if err != nil {
		return c.record(CommandFetchCredentials, err)
	}
	_, err = c.fetchCredentials(ctx, stamp)
	return err
}

// Refetch is FetchCredentials under the name consumers use for a manual refresh.
func (c *Controller) Refetch(ctx context.Context) error {
	return c.FetchCredentials(ctx)
}

// CreateCredential issues a credential for the current account and appends
// it to the session list. Backend failures are recorded in the snapshot and
// returned.
func (c *Controller) CreateCredential(ctx context.Context, data models.CredentialData) (cred *models.Credential, err error) {
	defer func() { c.record(CommandCreateCredential, err) }()

	stamp, err := c.requireAccount()
	if err != nil {
		return nil, err
	}
	if !c.store.Snapshot().HasDID {
		return nil, ErrNoDID
	}
	if err := validation.Validate(data); err != nil {
		return nil, err
	}

	release, ok := c.flights.acquire(CommandCreateCredential, stamp)
	if !ok {
		return nil, ErrBusy
	}
	defer release()

	if !c.store.ApplyStamped(stamp, store.BeginLoading()) {
		return nil, c.stale(CommandCreateCredential)
	}

	start := time.Now()
	created, callErr := c.svc.CreateCredential(ctx, stamp.Account, data)
	if callErr == nil && created == nil {
		callErr = errors.New("identity service returned no credential")
	}
	c.observeRemoteCall(CommandCreateCredential, time.Since(start), callErr == nil)

	if callErr != nil {
		msg := c.failure(CommandCreateCredential, stamp.Account, callErr, msgCreateCredentialFailed)
		if !c.store.ApplyStamped(stamp, store.EndLoading(), store.Fail(msg)) {
			return nil, c.stale(CommandCreateCredential)
		}
		return nil, remoteError(callErr, msg)
	}

	if !c.store.ApplyStamped(stamp, store.EndLoading(), store.AddCredential(*created), store.ClearFailure()) {
		return nil, c.stale(CommandCreateCredential)
	}
	c.setCredentialsInSession()

	out := *created
	return &out, nil
}

// VerifyCredential asks the backend whether credentialID is valid and grants
// access. It needs a bound account but not a DID. On failure the previous
// outcome is kept.
func (c *Controller) VerifyCredential(ctx context.Context, credentialID models.CredentialID) (outcome *models.VerificationOutcome, err error) {
	defer func() { c.record(CommandVerifyCredential, err) }()

	stamp, err := c.requireAccount()
	if err != nil {
		return nil, err
	}
	credentialID, err = models.ParseCredentialID(credentialID.String())
	if err != nil {
		return nil, err
	}

	release, ok := c.flights.acquire(CommandVerifyCredential, stamp)
	if !ok {
		return nil, ErrBusy
	}
	defer release()

	if !c.store.ApplyStamped(stamp, store.BeginLoading()) {
		return nil, c.stale(CommandVerifyCredential)
	}

	start := time.Now()
	result, callErr := c.svc.VerifyCredential(ctx, stamp.Account, credentialID)
	if callErr == nil && result == nil {
		callErr = errors.New("identity service returned no verification outcome")
	}
	c.observeRemoteCall(CommandVerifyCredential, time.Since(start), callErr == nil)

	if callErr != nil {
		msg := c.failure(CommandVerifyCredential, stamp.Account, callErr, msgVerifyFailed)
		if !c.store.ApplyStamped(stamp, store.EndLoading(), store.Fail(msg)) {
			return nil, c.stale(CommandVerifyCredential)
		}
		return nil, remoteError(callErr, msg)
	}

	if !c.store.ApplyStamped(stamp, store.EndLoading(), store.RecordVerification(*result), store.ClearFailure()) {
		return nil, c.stale(CommandVerifyCredential)
	}

	out := *result
	return &out, nil
}

// run performs follow-up actions in order until none remain. A follow-up
// that is already in flight for the same binding is left to the call that
// owns it.
func (c *Controller) run(ctx context.Context, stamp store.Stamp, pending []Action) error {
	for len(pending) > 0 {
		action := pending[0]
		pending = pending[1:]

		var next []Action
		var err error
		switch action {
		case ActionCheckDID:
			next, err = c.checkDID(ctx, stamp)
		case ActionFetchCredentials:
			next, err = c.fetchCredentials(ctx, stamp)
		}
		if errors.Is(err, ErrBusy) {
			continue
		}
		if err != nil {
			return err
		}
		pending = append(pending, next...)
	}
	return nil
}

func (c *Controller) checkDID(ctx context.Context, stamp store.Stamp) (actions []Action, err error) {
	defer func() { c.record(CommandCheckDID, err) }()

	release, ok := c.flights.acquire(CommandCheckDID, stamp)
	if !ok {
		return nil, ErrBusy
	}
	defer release()

	if _, ok := c.advance(stamp, EventCheckStarted, store.BeginLoading()); !ok {
		return nil, c.stale(CommandCheckDID)
	}

	start := time.Now()
	status, callErr := c.svc.CheckDID(ctx, stamp.Account)
	c.observeRemoteCall(CommandCheckDID, time.Since(start), callErr == nil)

	if callErr != nil {
		// Presence that cannot be confirmed is reported as absent, and
		// credentials are only shown under a confirmed DID.
		msg := c.failure(CommandCheckDID, stamp.Account, callErr, msgCheckDIDFailed)
		if _, ok := c.advance(stamp, EventDIDCheckFailed,
			store.EndLoading(), store.MarkDID(false, ""), store.ReplaceCredentials(nil), store.Fail(msg)); !ok {
			return nil, c.stale(CommandCheckDID)
		}
		c.setCredentialsInSession()
		return nil, remoteError(callErr, msg)
	}

	if !status.Present {
		if _, ok := c.advance(stamp, EventDIDAbsent,
			store.EndLoading(), store.MarkDID(false, ""), store.ReplaceCredentials(nil), store.ClearFailure()); !ok {
			return nil, c.stale(CommandCheckDID)
		}
		c.setCredentialsInSession()
		return nil, nil
	}

	actions, ok = c.advance(stamp, EventDIDPresent,
		store.EndLoading(), store.MarkDID(true, status.DID), store.ClearFailure())
	if !ok {
		return nil, c.stale(CommandCheckDID)
	}
	return actions, nil
}

func (c *Controller) createDID(ctx context.Context, stamp store.Stamp) (actions []Action, err error) {
	defer func() { c.record(CommandCreateDID, err) }()

	if c.store.Snapshot().HasDID {
		return nil, nil
	}

	release, ok := c.flights.acquire(CommandCreateDID, stamp)
	if !ok {
		return nil, ErrBusy
	}
	defer release()

	if !c.store.ApplyStamped(stamp, store.BeginLoading()) {
		return nil, c.stale(CommandCreateDID)
	}

	start := time.Now()
	did, callErr := c.svc.CreateDID(ctx, stamp.Account)
	c.observeRemoteCall(CommandCreateDID, time.Since(start), callErr == nil)

	if callErr != nil {
		msg := c.failure(CommandCreateDID, stamp.Account, callErr, msgCreateDIDFailed)
		if !c.store.ApplyStamped(stamp, store.EndLoading(), store.Fail(msg)) {
			return nil, c.stale(CommandCreateDID)
		}
		return nil, remoteError(callErr, msg)
	}

	actions, ok = c.advance(stamp, EventDIDCreated,
		store.EndLoading(), store.MarkDID(true, did), store.ClearFailure())
	if !ok {
		return nil, c.stale(CommandCreateDID)
	}
	return actions, nil
}

func (c *Controller) fetchCredentials(ctx context.Context, stamp store.Stamp) (actions []Action, err error) {
	defer func() { c.record(CommandFetchCredentials, err) }()

	if !c.store.Snapshot().HasDID {
		return nil, ErrNoDID
	}

	release, ok := c.flights.acquire(CommandFetchCredentials, stamp)
	if !ok {
		return nil, ErrBusy
	}
	defer release()

	if _, ok := c.advance(stamp, EventFetchStarted, store.BeginLoading()); !ok {
		return nil, c.stale(CommandFetchCredentials)
	}

	start := time.Now()
	creds, callErr := c.svc.ListCredentials(ctx, stamp.Account)
	c.observeRemoteCall(CommandFetchCredentials, time.Since(start), callErr == nil)

	if callErr != nil {
		msg := c.failure(CommandFetchCredentials, stamp.Account, callErr, msgFetchCredentialsFailed)
		if _, ok := c.advance(stamp, EventFetchFailed,
			store.EndLoading(), store.ReplaceCredentials(nil), store.Fail(msg)); !ok {
			return nil, c.stale(CommandFetchCredentials)
		}
		c.setCredentialsInSession()
		return nil, remoteError(callErr, msg)
	}

	actions, withdrawn, ok := c.commitFetch(stamp, creds)
	if !ok {
		return nil, c.stale(CommandFetchCredentials)
	}
	c.setCredentialsInSession()
	if withdrawn {
		c.logger.Info("discarded credential list, DID no longer confirmed", "account", stamp.Account.String())
		return nil, ErrNoDID
	}
	return actions, nil
}

// commitFetch installs a fetched list. When a DID check withdrew presence
// while the list was in flight, the list is dropped and the check's error
// kept; withdrawn reports that case.
func (c *Controller) commitFetch(stamp store.Stamp, creds []models.Credential) (actions []Action, withdrawn, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if snap := c.store.Snapshot(); snap.Account == stamp.Account && !snap.HasDID {
		return nil, true, c.store.ApplyStamped(stamp, store.EndLoading(), store.ReplaceCredentials(nil))
	}
	actions, ok = c.advanceLocked(stamp, EventCredentialsFetched,
		store.EndLoading(), store.ReplaceCredentials(creds), store.ClearFailure())
	return actions, false, ok
}

// advance commits event for stamp together with muts in one store update and
// returns the follow-up actions. ok is false when stamp is no longer the
// current binding. An event the current phase does not accept still commits
// muts but leaves the phase alone.
func (c *Controller) advance(stamp store.Stamp, event Event, muts ...store.Mutation) (actions []Action, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.advanceLocked(stamp, event, muts...)
}

func (c *Controller) advanceLocked(stamp store.Stamp, event Event, muts ...store.Mutation) (actions []Action, ok bool) {
	if current := c.store.Stamp(); stamp.Account.IsNil() || current != stamp {
		// Let the store log the anomaly.
		return nil, c.store.ApplyStamped(stamp, muts...)
	}

	phase := c.store.Snapshot().Phase
	next, actions, err := Next(phase, event)
	if err != nil {
		c.logger.Debug("session transition not accepted", "event", event, "phase", phase)
		return nil, c.store.ApplyStamped(stamp, muts...)
	}
	if !c.store.ApplyStamped(stamp, append(muts, store.EnterPhase(next))...) {
		return nil, false
	}
	return actions, true
}

func (c *Controller) requireAccount() (store.Stamp, error) {
	stamp := c.store.Stamp()
	if stamp.Account.IsNil() {
		return store.Stamp{}, ErrNoAccount
	}
	return stamp, nil
}

// failure logs a remote failure and returns the message to show the user.
func (c *Controller) failure(cmd Command, account models.AccountID, err error, fallback string) string {
	c.logger.Error("identity service call failed",
		"operation", cmd,
		"account", account.String(),
		"error", err,
	)
	return failureMessage(err, fallback)
}

func (c *Controller) stale(cmd Command) error {
	c.logger.Info("discarded response for previous account", "operation", cmd)
	c.incrementStaleResponses(cmd)
	return ErrStaleIdentity
}

// failureMessage prefers the backend's own message over the fallback.
func failureMessage(err error, fallback string) string {
	var m interface{ UserMessage() string }
	if errors.As(err, &m) {
		if msg := strings.TrimSpace(m.UserMessage()); msg != "" {
			return msg
		}
	}
	return fallback
}

// remoteError wraps a remote failure in a domain error carrying msg. The
// code comes from the failure itself when it has one.
func remoteError(err error, msg string) error {
	code := dErrors.CodeUnavailable
	var coded interface{ DomainCode() dErrors.Code }
	if errors.As(err, &coded) {
		code = coded.DomainCode()
	}
	return dErrors.Wrap(err, code, msg)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case dErrors.HasCode(err, dErrors.CodeBusy):
		return metrics.OutcomeBusy
	case dErrors.HasCode(err, dErrors.CodeStaleIdentity):
		return metrics.OutcomeStale
	case dErrors.HasCode(err, dErrors.CodePolicyViolation), dErrors.HasCode(err, dErrors.CodeValidation):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeFailed
	}
}

// record counts the command outcome if metrics are enabled and returns err.
func (c *Controller) record(cmd Command, err error) error {
	if c.metrics != nil {
		c.metrics.ObserveCommand(string(cmd), outcomeOf(err))
	}
	return err
}

func (c *Controller) observeRemoteCall(cmd Command, elapsed time.Duration, ok bool) {
	if c.metrics != nil {
		c.metrics.ObserveRemoteCall(string(cmd), elapsed, ok)
	}
}

func (c *Controller) incrementIdentityTransitions(kind string) {
	if c.metrics != nil {
		c.metrics.IncrementIdentityTransitions(kind)
	}
}

func (c *Controller) incrementStaleResponses(cmd Command) {
	if c.metrics != nil {
		c.metrics.IncrementStaleResponses(string(cmd))
	}
}

func (c *Controller) setCredentialsInSession() {
	if c.metrics != nil {
		c.metrics.SetCredentialsInSession(len(c.store.Snapshot().Credentials))
	}
}
