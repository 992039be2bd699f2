package authcore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/samber/oops"

	"github.com/MrEthical07/authcore/credential"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{nil, KindInternal},
		{errors.New("boom"), KindInternal},
		{ErrInvalidName, KindValidation},
		{credential.WeakPassword(credential.RuleDigit), KindValidation},
		{fmt.Errorf("insert: %w", ErrEmailAlreadyExists), KindConflict},
		{oops.Code("TOKEN_REJECTED").Wrap(ErrInvalidCredentials), KindInvalidCredentials},
		{ErrInvalidRefreshToken, KindInvalidCredentials},
		{ErrIdentityNotFound, KindNotFound},
		{context.Canceled, KindCanceled},
		{context.DeadlineExceeded, KindCanceled},
		{oops.Code("HASHING").Wrap(ErrHashing), KindInternal},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Errorf("KindOf(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestAuditErrorCode(t *testing.T) {
	cases := []struct {
		err  error
		want AuditErrorCode
	}{
		{nil, ""},
		{ErrInvalidCredentials, auditErrInvalidCredentials},
		{ErrInvalidEmail, auditErrInvalidEmail},
		{credential.WeakPassword(credential.RuleMaxLength), auditErrWeakPassword},
		{ErrEmailAlreadyExists, auditErrDuplicate},
		{ErrIdentityNotFound, auditErrNotFound},
		{oops.Code("TOKEN_ISSUE").Wrap(ErrToken), auditErrToken},
		{context.DeadlineExceeded, auditErrCanceled},
		{errors.New("disk on fire"), auditErrInternal},
	}
	for _, tc := range cases {
		if got := auditErrorCode(tc.err); got != tc.want {
			t.Errorf("auditErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
