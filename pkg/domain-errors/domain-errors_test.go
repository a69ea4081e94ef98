package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// Justification: the controller's sentinel errors (busy, stale identity) are
// matched with errors.Is by code, so code matching must survive wrapping.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeNotFound, Message: "credential not found"}
		s.Equal("credential not found", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeBusy}
		s.Equal("busy", err.Error())
	})
}

func (s *DomainErrorsSuite) TestUnwrap() {
	s.Run("returns wrapped error", func() {
		inner := errors.New("connection refused")
		err := &Error{Code: CodeUnavailable, Message: "Failed to create DID", Err: inner}
		s.Equal(inner, err.Unwrap())
	})

	s.Run("returns nil when no wrapped error", func() {
		err := &Error{Code: CodePolicyViolation, Message: "no account bound"}
		s.Nil(err.Unwrap())
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		err1 := &Error{Code: CodeBusy, Message: "fetch in flight"}
		err2 := &Error{Code: CodeBusy, Message: "verify in flight"}
		s.True(err1.Is(err2))
	})

	s.Run("does not match different codes", func() {
		err1 := &Error{Code: CodeBusy}
		err2 := &Error{Code: CodeStaleIdentity}
		s.False(err1.Is(err2))
	})

	s.Run("does not match non-domain errors", func() {
		err1 := &Error{Code: CodeNotFound}
		err2 := errors.New("not found")
		s.False(err1.Is(err2))
	})

	s.Run("works with errors.Is through fmt wrapping", func() {
		sentinel := New(CodeStaleIdentity, "account changed")
		wrapped := fmt.Errorf("create credential: %w", &Error{Code: CodeStaleIdentity, Message: "late"})
		s.True(errors.Is(wrapped, sentinel))
	})
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("preserves original domain code when wrapping domain error", func() {
		original := New(CodeTimeout, "request timeout")
		wrapped := Wrap(original, CodeUnavailable, "Failed to fetch credentials")

		var domainErr *Error
		s.Require().True(errors.As(wrapped, &domainErr))
		s.Equal(CodeTimeout, domainErr.Code)
		s.Equal("Failed to fetch credentials", domainErr.Message)
	})

	s.Run("uses provided code when wrapping non-domain error", func() {
		original := errors.New("dial tcp: connection refused")
		wrapped := Wrap(original, CodeUnavailable, "Failed to check DID")

		s.True(HasCode(wrapped, CodeUnavailable))
		s.True(errors.Is(wrapped, original))
	})
}

func (s *DomainErrorsSuite) TestHasCodeAndCodeOf() {
	s.Run("returns false for nil error", func() {
		s.False(HasCode(nil, CodeNotFound))
	})

	s.Run("CodeOf reads the outermost domain code", func() {
		err := fmt.Errorf("verify: %w", New(CodeBusy, "busy"))
		s.Equal(CodeBusy, CodeOf(err))
	})

	s.Run("CodeOf defaults to internal for plain errors", func() {
		s.Equal(CodeInternal, CodeOf(errors.New("boom")))
	})
}
