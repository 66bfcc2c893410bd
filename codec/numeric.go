package codec

import "math"

// Deterministic numeric conversions for payloads whose declared type
// differs from the value in hand. Widening sign- or zero-extends per the
// source's signedness; narrowing keeps the low-order bits; float sources
// truncate toward zero. None of these fault: the conversions are part of
// the call contract, and only the representation changes, never a tag.

// toBits converts any supported numeric value to a sign-extended 64-bit
// pattern. Returns false for non-numeric values.
func toBits(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float32:
		return truncFloat(float64(n)), true
	case float64:
		return truncFloat(n), true
	default:
		return 0, false
	}
}

// truncFloat truncates toward zero, clamping values outside the int64
// range and mapping NaN to zero so the conversion stays deterministic.
func truncFloat(f float64) int64 {
	if f != f {
		return 0
	}
	f = math.Trunc(f)
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	if f <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(f)
}

func toU8(v any) (uint8, bool) {
	bits, ok := toBits(v)
	return uint8(bits), ok
}

func toS8(v any) (int8, bool) {
	bits, ok := toBits(v)
	return int8(bits), ok
}

func toU16(v any) (uint16, bool) {
	bits, ok := toBits(v)
	return uint16(bits), ok
}

func toS16(v any) (int16, bool) {
	bits, ok := toBits(v)
	return int16(bits), ok
}

func toU32(v any) (uint32, bool) {
	bits, ok := toBits(v)
	return uint32(bits), ok
}

func toS32(v any) (int32, bool) {
	bits, ok := toBits(v)
	return int32(bits), ok
}

func toU64(v any) (uint64, bool) {
	bits, ok := toBits(v)
	return uint64(bits), ok
}

func toS64(v any) (int64, bool) {
	return toBits(v)
}

// toF64 converts integer sources exact-or-nearest; float32 widens exactly.
func toF64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toF32(v any) (float32, bool) {
	if n, ok := v.(float32); ok {
		return n, true
	}
	f, ok := toF64(v)
	return float32(f), ok
}

const (
	canonicalNaN32 = 0x7fc00000
	canonicalNaN64 = 0x7ff8000000000000
)

// canonicalizeF32 returns the canonical NaN pattern for any NaN input.
func canonicalizeF32(bits uint32) uint32 {
	f := math.Float32frombits(bits)
	if f != f {
		return canonicalNaN32
	}
	return bits
}

// canonicalizeF64 returns the canonical NaN pattern for any NaN input.
func canonicalizeF64(bits uint64) uint64 {
	f := math.Float64frombits(bits)
	if f != f {
		return canonicalNaN64
	}
	return bits
}

// validChar rejects surrogates (0xD800-0xDFFF) and values >= 0x110000.
func validChar(r rune) bool {
	if r >= 0xD800 && r <= 0xDFFF {
		return false
	}
	if r < 0 || r >= 0x110000 {
		return false
	}
	return true
}

func safeMulU32(a, b uint32) (uint32, bool) {
	if b != 0 && a > math.MaxUint32/b {
		return 0, false
	}
	return a * b, true
}
