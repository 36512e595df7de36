package types

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// DecimalPlaces is the fixed precision of Decimal.
const DecimalPlaces = 18

var (
	decimalUnit = uint256.NewInt(1_000_000_000_000_000_000)

	errDecimalOverflow  = errors.New("decimal: overflow")
	errDecimalUnderflow = errors.New("decimal: underflow")
)

// Decimal is a non-negative fixed-point ratio with 18 decimal places. The zero
// value is 0.
type Decimal struct {
	atomics *uint256.Int
}

// ZeroDecimal returns 0.
func ZeroDecimal() Decimal { return Decimal{atomics: new(uint256.Int)} }

// OneDecimal returns 1.
func OneDecimal() Decimal { return Decimal{atomics: new(uint256.Int).Set(decimalUnit)} }

// ParseDecimal parses strings such as "1", "0.25" or ".5".
func ParseDecimal(s string) (Decimal, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Decimal{}, fmt.Errorf("decimal: empty string")
	}
	whole, frac, _ := strings.Cut(trimmed, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > DecimalPlaces {
		return Decimal{}, fmt.Errorf("decimal: %q has more than %d fractional digits", s, DecimalPlaces)
	}
	for _, part := range []string{whole, frac} {
		for _, r := range part {
			if r < '0' || r > '9' {
				return Decimal{}, fmt.Errorf("decimal: invalid character %q in %q", r, s)
			}
		}
	}
	digits := whole + frac + strings.Repeat("0", DecimalPlaces-len(frac))
	raw, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Decimal{}, fmt.Errorf("decimal: invalid value %q", s)
	}
	atomics, overflow := uint256.FromBig(raw)
	if overflow {
		return Decimal{}, errDecimalOverflow
	}
	return Decimal{atomics: atomics}, nil
}

// MustDecimal parses s and panics on failure. Intended for constants and tests.
func MustDecimal(s string) Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DecimalFromRatio returns floor(num / den) at full precision.
func DecimalFromRatio(num, den *big.Int) (Decimal, error) {
	if den == nil || den.Sign() == 0 {
		return Decimal{}, fmt.Errorf("decimal: division by zero")
	}
	scaled, err := MulDivFloor(num, decimalUnit.ToBig(), den)
	if err != nil {
		return Decimal{}, err
	}
	atomics, overflow := uint256.FromBig(scaled)
	if overflow {
		return Decimal{}, errDecimalOverflow
	}
	return Decimal{atomics: atomics}, nil
}

func (d Decimal) raw() *uint256.Int {
	if d.atomics == nil {
		return new(uint256.Int)
	}
	return d.atomics
}

// IsZero reports whether d == 0.
func (d Decimal) IsZero() bool { return d.raw().IsZero() }

// Cmp compares d and o.
func (d Decimal) Cmp(o Decimal) int { return d.raw().Cmp(o.raw()) }

// Add returns d + o.
func (d Decimal) Add(o Decimal) (Decimal, error) {
	sum, overflow := new(uint256.Int).AddOverflow(d.raw(), o.raw())
	if overflow {
		return Decimal{}, errDecimalOverflow
	}
	return Decimal{atomics: sum}, nil
}

// Sub returns d - o, failing when o > d.
func (d Decimal) Sub(o Decimal) (Decimal, error) {
	diff, underflow := new(uint256.Int).SubOverflow(d.raw(), o.raw())
	if underflow {
		return Decimal{}, errDecimalUnderflow
	}
	return Decimal{atomics: diff}, nil
}

// MulInt returns floor(amount × d).
func (d Decimal) MulInt(amount *big.Int) (*big.Int, error) {
	return MulDivFloor(amount, d.raw().ToBig(), decimalUnit.ToBig())
}

// Atomics exposes the scaled integer representation.
func (d Decimal) Atomics() *big.Int { return d.raw().ToBig() }

// String renders d without trailing fractional zeros.
func (d Decimal) String() string {
	var whole, frac uint256.Int
	whole.DivMod(d.raw(), decimalUnit, &frac)
	if frac.IsZero() {
		return whole.Dec()
	}
	fracDigits := frac.Dec()
	fracDigits = strings.Repeat("0", DecimalPlaces-len(fracDigits)) + fracDigits
	return whole.Dec() + "." + strings.TrimRight(fracDigits, "0")
}

// MarshalText implements encoding.TextMarshaler.
func (d Decimal) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Decimal) UnmarshalText(text []byte) error {
	parsed, err := ParseDecimal(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// EncodeRLP implements rlp.Encoder.
func (d Decimal) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, d.raw().ToBig())
}

// DecodeRLP implements rlp.Decoder.
func (d *Decimal) DecodeRLP(s *rlp.Stream) error {
	raw, err := s.BigInt()
	if err != nil {
		return err
	}
	atomics, overflow := uint256.FromBig(raw)
	if overflow {
		return errDecimalOverflow
	}
	d.atomics = atomics
	return nil
}
