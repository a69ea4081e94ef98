package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// BreakerSuite covers the open/half-open/closed cycle.
type BreakerSuite struct {
	suite.Suite
	now     time.Time
	breaker *Breaker
}

func TestBreakerSuite(t *testing.T) {
	suite.Run(t, new(BreakerSuite))
}

func (s *BreakerSuite) SetupTest() {
	s.now = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.breaker = New("identity-backend",
		WithFailureThreshold(2),
		WithCooldown(10*time.Second),
		WithClock(func() time.Time { return s.now }),
	)
}

func (s *BreakerSuite) TestOpensAfterThreshold() {
	s.True(s.breaker.Allow())
	s.False(s.breaker.RecordFailure())
	s.True(s.breaker.RecordFailure())
	s.Equal(StateOpen, s.breaker.State())
	s.False(s.breaker.Allow())
}

func (s *BreakerSuite) TestSuccessResetsFailureCount() {
	s.breaker.RecordFailure()
	s.breaker.RecordSuccess()
	s.False(s.breaker.RecordFailure())
	s.Equal(StateClosed, s.breaker.State())
}

func (s *BreakerSuite) TestHalfOpenAdmitsSingleTrial() {
	s.breaker.RecordFailure()
	s.breaker.RecordFailure()

	s.now = s.now.Add(11 * time.Second)
	s.True(s.breaker.Allow())
	s.Equal(StateHalfOpen, s.breaker.State())
	s.False(s.breaker.Allow(), "second caller must wait for the trial")

	s.Run("trial success closes", func() {
		s.True(s.breaker.RecordSuccess())
		s.Equal(StateClosed, s.breaker.State())
		s.True(s.breaker.Allow())
	})
}

func (s *BreakerSuite) TestTrialFailureReopens() {
	s.breaker.RecordFailure()
	s.breaker.RecordFailure()
	s.now = s.now.Add(11 * time.Second)
	s.Require().True(s.breaker.Allow())

	s.True(s.breaker.RecordFailure())
	s.Equal(StateOpen, s.breaker.State())
	s.False(s.breaker.Allow())
}

func (s *BreakerSuite) TestReset() {
	s.breaker.RecordFailure()
	s.breaker.RecordFailure()
	s.breaker.Reset()
	s.Equal(StateClosed, s.breaker.State())
	s.True(s.breaker.Allow())
	s.Equal("identity-backend", s.breaker.Name())
	s.Equal("closed", s.breaker.State().String())
}
