package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	idmodels "kycpass/internal/identity/models"
	"kycpass/internal/session/models"
)

// StoreSuite covers the store invariants the controller relies on:
// identity transitions reset everything at once, stale stamps never land,
// and readers only ever see whole snapshots.
type StoreSuite struct {
	suite.Suite
	store *Store
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.store = New()
}

func (s *StoreSuite) TestInitialSnapshotIsUnbound() {
	snap := s.store.Snapshot()
	s.Equal(models.PhaseUnbound, snap.Phase)
	s.False(snap.Bound())
	s.False(snap.HasDID)
	s.Empty(snap.Credentials)
	s.Nil(snap.Verification)
}

func (s *StoreSuite) TestSetAccountResetsAccountScopedState() {
	s.Require().True(s.store.SetAccount("0xA1"))
	s.Require().True(s.store.Apply("0xA1",
		MarkDID(true, "did:sui:a1"),
		ReplaceCredentials([]idmodels.Credential{{ID: "cred-1"}}),
		RecordVerification(idmodels.VerificationOutcome{IsValid: true}),
		Fail("boom"),
		BeginLoading(),
		EnterPhase(models.PhaseReady),
	))

	s.True(s.store.SetAccount("0xB2"))

	snap := s.store.Snapshot()
	s.Equal(idmodels.AccountID("0xB2"), snap.Account)
	s.Equal(models.PhaseUnbound, snap.Phase)
	s.False(snap.HasDID)
	s.Empty(snap.DID)
	s.Empty(snap.Credentials)
	s.Nil(snap.Verification)
	s.Empty(snap.Error)
	s.False(snap.Loading)
}

func (s *StoreSuite) TestSetAccountSameAccountIsNoop() {
	s.store.SetAccount("0xA1")
	s.store.SetDIDPresence("0xA1", true, "did:sui:a1")
	version := s.store.Snapshot().Version

	s.False(s.store.SetAccount("0xA1"))
	s.Equal(version, s.store.Snapshot().Version)
	s.True(s.store.Snapshot().HasDID)
}

func (s *StoreSuite) TestStaleStampIsIgnored() {
	s.store.SetAccount("0xA1")
	s.store.SetAccount("0xB2")
	version := s.store.Snapshot().Version

	s.False(s.store.SetCredentials("0xA1", []idmodels.Credential{{ID: "leak"}}))
	s.False(s.store.SetDIDPresence("0xA1", true, "did:sui:a1"))
	s.False(s.store.SetError("0xA1", "late failure"))

	snap := s.store.Snapshot()
	s.Empty(snap.Credentials)
	s.False(snap.HasDID)
	s.Empty(snap.Error)
	s.Equal(version, snap.Version)
}

func (s *StoreSuite) TestRebindStartsNewGeneration() {
	s.store.SetAccount("0xA1")
	first := s.store.Stamp()
	s.store.SetAccount("0xB2")
	s.store.SetAccount("0xA1")
	second := s.store.Stamp()

	s.Equal(first.Account, second.Account)
	s.NotEqual(first.Generation, second.Generation)

	s.False(s.store.ApplyStamped(first, MarkDID(true, "did:sui:0xA1"), BeginLoading()))
	s.False(s.store.Snapshot().HasDID)
	s.False(s.store.Snapshot().Loading)

	s.True(s.store.ApplyStamped(second, MarkDID(true, "did:sui:0xA1")))
	s.True(s.store.Snapshot().HasDID)

	// Account-only stamps still match any binding of the account.
	s.True(s.store.SetError("0xA1", "late failure"))
}

func (s *StoreSuite) TestSameAccountKeepsStamp() {
	s.store.SetAccount("0xA1")
	stamp := s.store.Stamp()
	s.store.SetAccount("0xA1")

	s.Equal(stamp, s.store.Stamp())
	s.True(s.store.ApplyStamped(stamp, BeginLoading()))
}

func (s *StoreSuite) TestUnboundStampIsIgnored() {
	s.False(s.store.SetError("", "no account"))
	s.Empty(s.store.Snapshot().Error)
}

func (s *StoreSuite) TestAppendPreservesInsertionOrder() {
	s.store.SetAccount("0xA1")
	s.store.SetCredentials("0xA1", []idmodels.Credential{{ID: "cred-2"}, {ID: "cred-1"}})
	s.store.AppendCredential("0xA1", idmodels.Credential{ID: "cred-0"})

	ids := []idmodels.CredentialID{}
	for _, c := range s.store.Snapshot().Credentials {
		ids = append(ids, c.ID)
	}
	s.Equal([]idmodels.CredentialID{"cred-2", "cred-1", "cred-0"}, ids)
}

func (s *StoreSuite) TestSetCredentialsReplacesNotMerges() {
	s.store.SetAccount("0xA1")
	s.store.SetCredentials("0xA1", []idmodels.Credential{{ID: "stale"}, {ID: "kept"}})
	s.store.SetCredentials("0xA1", []idmodels.Credential{{ID: "kept"}})

	snap := s.store.Snapshot()
	s.Require().Len(snap.Credentials, 1)
	s.Equal(idmodels.CredentialID("kept"), snap.Credentials[0].ID)
}

func (s *StoreSuite) TestCallerSliceIsNotShared() {
	s.store.SetAccount("0xA1")
	creds := []idmodels.Credential{{ID: "cred-1"}}
	s.store.SetCredentials("0xA1", creds)
	creds[0].ID = "mutated"

	s.Equal(idmodels.CredentialID("cred-1"), s.store.Snapshot().Credentials[0].ID)
}

func (s *StoreSuite) TestLoadingCountsOutstandingCalls() {
	s.store.SetAccount("0xA1")

	s.store.SetLoading("0xA1", true)
	s.store.SetLoading("0xA1", true)
	s.store.SetLoading("0xA1", false)
	s.True(s.store.Snapshot().Loading)

	s.store.SetLoading("0xA1", false)
	s.False(s.store.Snapshot().Loading)

	s.Run("extra end does not go negative", func() {
		s.store.SetLoading("0xA1", false)
		s.store.SetLoading("0xA1", true)
		s.True(s.store.Snapshot().Loading)
	})
}

func (s *StoreSuite) TestSetErrorEmptyClears() {
	s.store.SetAccount("0xA1")
	s.store.SetError("0xA1", "Failed to create DID")
	s.Equal("Failed to create DID", s.store.Snapshot().Error)

	s.store.SetError("0xA1", "")
	s.Empty(s.store.Snapshot().Error)

	s.store.SetError("0xA1", "Failed to fetch credentials")
	s.True(s.store.ClearError("0xA1"))
	s.Empty(s.store.Snapshot().Error)
	s.False(s.store.ClearError("0xB2"))
}

func (s *StoreSuite) TestVerificationKeepsFieldsIndependent() {
	s.store.SetAccount("0xA1")
	s.store.SetVerificationOutcome("0xA1", idmodels.VerificationOutcome{IsValid: true, HasAccess: false, Message: "policy not met"})

	v := s.store.Snapshot().Verification
	s.Require().NotNil(v)
	s.True(v.IsValid)
	s.False(v.HasAccess)
	s.Equal("policy not met", v.Message)
}

func (s *StoreSuite) TestVerificationStoresEveryCombination() {
	s.store.SetAccount("0xA1")
	for _, want := range []idmodels.VerificationOutcome{
		{IsValid: true, HasAccess: true, Message: "KYC verified"},
		{IsValid: true, HasAccess: false, Message: "policy not met"},
		{IsValid: false, HasAccess: true, Message: "expired, access kept"},
		{IsValid: false, HasAccess: false, Message: "revoked"},
	} {
		s.Require().True(s.store.SetVerificationOutcome("0xA1", want))
		s.Equal(&want, s.store.Snapshot().Verification)
	}
}

func (s *StoreSuite) TestApplyIsAtomicForReaders() {
	s.store.SetAccount("0xA1")

	var wg sync.WaitGroup
	stop := make(chan struct{})
	torn := false
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := s.store.Snapshot()
			// Writers always set both fields together.
			if snap.HasDID != (snap.Error == "") {
				torn = true
			}
		}
	}()

	for i := 0; i < 500; i++ {
		if i%2 == 0 {
			s.store.Apply("0xA1", MarkDID(true, "did"), ClearFailure())
		} else {
			s.store.Apply("0xA1", MarkDID(false, ""), Fail("Failed to check DID"))
		}
	}
	close(stop)
	wg.Wait()

	s.False(torn, "reader observed a half-applied mutation")
}

func (s *StoreSuite) TestSubscribeDeliversLatestSnapshot() {
	ch, cancel := s.store.Subscribe()
	defer cancel()

	s.store.SetAccount("0xA1")
	s.store.SetDIDPresence("0xA1", true, "did:sui:a1")
	s.store.SetPhase("0xA1", models.PhaseHasDID)

	select {
	case snap := <-ch:
		s.Equal(models.PhaseHasDID, snap.Phase)
		s.True(snap.HasDID)
	case <-time.After(time.Second):
		s.Fail("no snapshot delivered")
	}

	cancel()
	_, open := <-ch
	s.False(open)
}

func (s *StoreSuite) TestVersionIncrementsPerApply() {
	s.store.SetAccount("0xA1")
	v0 := s.store.Snapshot().Version
	s.store.Apply("0xA1", MarkDID(true, "d"), EnterPhase(models.PhaseHasDID))
	s.Equal(v0+1, s.store.Snapshot().Version)
}
