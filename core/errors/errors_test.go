package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{nil, KindNone},
		{ErrZeroAmount, KindValidation},
		{fmt.Errorf("escrow: %w", ErrZeroAmount), KindValidation},
		{fmt.Errorf("%w: proposal 4", ErrNotFound), KindNotFound},
		{ErrAdminOnly, KindUnauthorized},
		{fmt.Errorf("%w: supply underflow", ErrArithmetic), KindArithmetic},
		{stderrors.New("disk on fire"), KindInternal},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Fatalf("KindOf(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
