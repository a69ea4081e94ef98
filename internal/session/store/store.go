// Package store holds the authoritative in-memory session snapshot.
//
// The store is single-writer: only the session controller mutates it, and
// every account-scoped mutation carries the account it was computed for.
// A mutation stamped with an account that is no longer current is dropped
// and logged; it never reaches the snapshot. ApplyStamped narrows this to a
// single binding, so results begun before an A, B, A switch are dropped too.
package store

import (
	"io"
	"log/slog"
	"sync"

	idmodels "kycpass/internal/identity/models"
	"kycpass/internal/session/models"
)

// Mutation is one change to the session snapshot. Mutations are built with
// the constructors below and committed with Store.Apply.
type Mutation struct {
	name  string
	apply func(st *state)
}

// Name identifies the mutation in logs.
func (m Mutation) Name() string { return m.name }

type state struct {
	snap     models.Snapshot
	inflight int
}

// MarkDID sets DID presence; absence also clears the DID handle.
func MarkDID(present bool, did idmodels.DID) Mutation {
	return Mutation{name: "set_did_presence", apply: func(st *state) {
		st.snap.HasDID = present
		if present {
			st.snap.DID = did
		} else {
			st.snap.DID = ""
		}
	}}
}

// ReplaceCredentials replaces the whole credential list.
func ReplaceCredentials(creds []idmodels.Credential) Mutation {
	list := make([]idmodels.Credential, len(creds))
	copy(list, creds)
	return Mutation{name: "set_credentials", apply: func(st *state) {
		st.snap.Credentials = list
	}}
}

// AddCredential appends a newly issued credential, preserving issuance order.
func AddCredential(cred idmodels.Credential) Mutation {
	return Mutation{name: "append_credential", apply: func(st *state) {
		list := make([]idmodels.Credential, len(st.snap.Credentials), len(st.snap.Credentials)+1)
		copy(list, st.snap.Credentials)
		st.snap.Credentials = append(list, cred)
	}}
}

// RecordVerification stores the latest verification outcome.
func RecordVerification(outcome idmodels.VerificationOutcome) Mutation {
	return Mutation{name: "set_verification_outcome", apply: func(st *state) {
		st.snap.Verification = &outcome
	}}
}

// BeginLoading marks one more remote call outstanding.
func BeginLoading() Mutation {
	return Mutation{name: "set_loading", apply: func(st *state) {
		st.inflight++
	}}
}

// EndLoading marks one outstanding remote call finished.
func EndLoading() Mutation {
	return Mutation{name: "set_loading", apply: func(st *state) {
		if st.inflight > 0 {
			st.inflight--
		}
	}}
}

// Fail records msg as the most recent failure.
func Fail(msg string) Mutation {
	return Mutation{name: "set_error", apply: func(st *state) {
		st.snap.Error = msg
	}}
}

// ClearFailure clears the error field after a success.
func ClearFailure() Mutation {
	return Mutation{name: "clear_error", apply: func(st *state) {
		st.snap.Error = ""
	}}
}

// EnterPhase moves the session to phase.
func EnterPhase(phase models.Phase) Mutation {
	return Mutation{name: "set_phase", apply: func(st *state) {
		st.snap.Phase = phase
	}}
}

// Stamp identifies one binding of an account. Every identity transition
// starts a new generation, so binding the same account again yields a
// different stamp.
type Stamp struct {
	Account    idmodels.AccountID
	Generation uint64
}

// Store owns the session snapshot. It is safe for concurrent use; readers
// always receive deep copies.
type Store struct {
	mu      sync.RWMutex
	st      state
	gen     uint64
	subs    map[int]chan models.Snapshot
	nextSub int
	logger  *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger used for stale-mutation anomalies.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an unbound session store.
func New(opts ...Option) *Store {
	s := &Store{
		st:     state{snap: models.Snapshot{Phase: models.PhaseUnbound}},
		subs:   make(map[int]chan models.Snapshot),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.snap.Clone()
}

// Account returns the current account.
func (s *Store) Account() idmodels.AccountID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.snap.Account
}

// Stamp returns the stamp of the current binding.
func (s *Store) Stamp() Stamp {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stamp{Account: s.st.snap.Account, Generation: s.gen}
}

// SetAccount performs an identity transition. When account differs from the
// current one, the whole snapshot is reset in one step: DID presence,
// credentials, verification outcome, error and loading are all cleared.
// Returns false when account is already current.
func (s *Store) SetAccount(account idmodels.AccountID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.st.snap.Account == account {
		return false
	}
	s.gen++
	s.st = state{snap: models.Snapshot{
		Account: account,
		Phase:   models.PhaseUnbound,
		Version: s.st.snap.Version + 1,
	}}
	s.publishLocked()
	return true
}

// Apply commits mutations atomically for the account stamp. If stamp is not
// the current account the mutations are dropped, the anomaly is logged, and
// false is returned.
func (s *Store) Apply(stamp idmodels.AccountID, muts ...Mutation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stamp.IsNil() || stamp != s.st.snap.Account {
		s.logStaleLocked(muts, !stamp.IsNil(), false)
		return false
	}
	return s.applyLocked(muts)
}

// ApplyStamped is Apply for a single binding: stamp must match both the
// current account and its generation.
func (s *Store) ApplyStamped(stamp Stamp, muts ...Mutation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stamp.Account.IsNil() || stamp.Account != s.st.snap.Account || stamp.Generation != s.gen {
		s.logStaleLocked(muts, !stamp.Account.IsNil(), stamp.Account == s.st.snap.Account)
		return false
	}
	return s.applyLocked(muts)
}

func (s *Store) logStaleLocked(muts []Mutation, stampBound, sameAccount bool) {
	names := make([]string, 0, len(muts))
	for _, m := range muts {
		names = append(names, m.name)
	}
	s.logger.Warn("stale session mutation ignored",
		"mutations", names,
		"stamp_bound", stampBound,
		"current_bound", !s.st.snap.Account.IsNil(),
		"rebound", sameAccount,
	)
}

func (s *Store) applyLocked(muts []Mutation) bool {
	if len(muts) == 0 {
		return true
	}

	for _, m := range muts {
		m.apply(&s.st)
	}
	s.st.snap.Loading = s.st.inflight > 0
	s.st.snap.Version++
	s.publishLocked()
	return true
}

// SetDIDPresence records DID presence for stamp.
func (s *Store) SetDIDPresence(stamp idmodels.AccountID, present bool, did idmodels.DID) bool {
	return s.Apply(stamp, MarkDID(present, did))
}

// SetCredentials replaces the credential list for stamp.
func (s *Store) SetCredentials(stamp idmodels.AccountID, creds []idmodels.Credential) bool {
	return s.Apply(stamp, ReplaceCredentials(creds))
}

// AppendCredential appends cred to the list for stamp.
func (s *Store) AppendCredential(stamp idmodels.AccountID, cred idmodels.Credential) bool {
	return s.Apply(stamp, AddCredential(cred))
}

// SetVerificationOutcome stores outcome for stamp.
func (s *Store) SetVerificationOutcome(stamp idmodels.AccountID, outcome idmodels.VerificationOutcome) bool {
	return s.Apply(stamp, RecordVerification(outcome))
}

// SetLoading marks a remote call started (true) or finished (false) for stamp.
// Loading stays true while any call for the current account is outstanding.
func (s *Store) SetLoading(stamp idmodels.AccountID, loading bool) bool {
	if loading {
		return s.Apply(stamp, BeginLoading())
	}
	return s.Apply(stamp, EndLoading())
}

// SetError records msg as the latest failure for stamp; "" clears it.
func (s *Store) SetError(stamp idmodels.AccountID, msg string) bool {
	if msg == "" {
		return s.Apply(stamp, ClearFailure())
	}
	return s.Apply(stamp, Fail(msg))
}

// ClearError clears the error field for stamp.
func (s *Store) ClearError(stamp idmodels.AccountID) bool {
	return s.Apply(stamp, ClearFailure())
}

// SetPhase moves the session to phase for stamp.
func (s *Store) SetPhase(stamp idmodels.AccountID, phase models.Phase) bool {
	return s.Apply(stamp, EnterPhase(phase))
}

// Subscribe returns a channel that receives the snapshot after every change.
// Slow readers only see the latest snapshot. cancel closes the channel.
func (s *Store) Subscribe() (<-chan models.Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan models.Snapshot, 1)
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) publishLocked() {
	if len(s.subs) == 0 {
		return
	}
	for _, ch := range s.subs {
		snap := s.st.snap.Clone()
		select {
		case ch <- snap:
		default:
			// Replace the unread snapshot with the newer one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
