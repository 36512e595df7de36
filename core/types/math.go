package types

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

var (
	errMathOverflow  = errors.New("math: overflow")
	errMathDivByZero = errors.New("math: division by zero")
	errMathNegative  = errors.New("math: negative operand")
	errMathUnderflow = errors.New("math: underflow")
)

// MulDivFloor returns floor(a × b / c). Every proportional split in the
// engine goes through this helper so that rounding is uniform: the result is
// always truncated and the remainder stays with the payer.
func MulDivFloor(a, b, c *big.Int) (*big.Int, error) {
	if c == nil || c.Sign() == 0 {
		return nil, errMathDivByZero
	}
	x, err := toU256(a)
	if err != nil {
		return nil, err
	}
	y, err := toU256(b)
	if err != nil {
		return nil, err
	}
	d, err := toU256(c)
	if err != nil {
		return nil, err
	}
	out, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, errMathOverflow
	}
	return out.ToBig(), nil
}

// SafeSub returns a - b and fails instead of going negative.
func SafeSub(a, b *big.Int) (*big.Int, error) {
	out := new(big.Int).Sub(cloneAmount(a), cloneAmount(b))
	if out.Sign() < 0 {
		return nil, errMathUnderflow
	}
	return out, nil
}

func toU256(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, errMathNegative
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, errMathOverflow
	}
	return out, nil
}

// IsMathError reports whether err originated from the checked helpers.
func IsMathError(err error) bool {
	return errors.Is(err, errMathOverflow) || errors.Is(err, errMathDivByZero) ||
		errors.Is(err, errMathNegative) || errors.Is(err, errMathUnderflow) ||
		errors.Is(err, errDecimalOverflow) || errors.Is(err, errDecimalUnderflow)
}
