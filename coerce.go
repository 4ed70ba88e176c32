package msgcall

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/apd/v3"
)

// A coerceFunc converts an argument to a primitive type. The returned
// reflect.Value has the canonical type the coerceFunc was registered
// for, callers convert it to named types as needed.
type coerceFunc func(v any) (reflect.Value, error)

// coercions maps canonical primitive types to their conversion.
//
// All conversions follow the same rules: nil converts to the zero
// value. Booleans convert to 1 or 0, and numbers convert to bool by
// comparing with zero. Integer targets round floating point and
// decimal values half to even, and reject values outside their range
// with ErrOutOfRange. Strings are parsed in base 10. Values with no
// numeric meaning (bytes, arrays, maps, extension values) fail with
// ErrNotConvertible.
var coercions = map[reflect.Type]coerceFunc{}

func init() {
	for _, t := range kindToType {
		switch {
		case t.Kind() == reflect.Bool:
			coercions[t] = coerceBool
		case intKinds.Has(t.Kind()):
			coercions[t] = coerceInt(t)
		case uintKinds.Has(t.Kind()):
			coercions[t] = coerceUint(t)
		case t.Kind() == reflect.Float32:
			coercions[t] = coerceFloat32
		case t.Kind() == reflect.Float64:
			coercions[t] = coerceFloat64
		default:
			panic(fmt.Sprintf("no coercion for primitive type %s", t))
		}
	}
	coercions[charType] = coerceChar
	coercions[decimalType] = coerceDecimal
}

// Coerce converts v to type t using the argument coercion rules of
// [Invoker]. t must be a primitive type: bool, an integer or floating
// point type, [Char], [apd.Decimal], or a named type of one of those
// kinds.
//
// Coerce returns an error wrapping [ErrOutOfRange] or
// [ErrNotConvertible] if v cannot be represented as a t.
func Coerce(v any, t reflect.Type) (any, error) {
	canon, ok := primitiveType(t)
	if !ok {
		return nil, typeErr(t, "not a primitive type")
	}
	ret, err := coercions[canon](v)
	if err != nil {
		return nil, err
	}
	if canon != t {
		ret = ret.Convert(t)
	}
	return ret.Interface(), nil
}

// decimalContext rounds decimals to integers the same way floats are
// rounded.
var decimalContext = apd.Context{
	MaxExponent: apd.MaxExponent,
	MinExponent: apd.MinExponent,
	Traps:       apd.DefaultTraps,
	Rounding:    apd.RoundHalfEven,
}

func outOfRange(v any, t string) error {
	return fmt.Errorf("%w: %v does not fit in %s", ErrOutOfRange, v, t)
}

func notConvertible(v any) error {
	return fmt.Errorf("%w: %s", ErrNotConvertible, typeName(v))
}

// parseErr maps a strconv error to the coercion sentinels.
func parseErr(err error) error {
	if errors.Is(err, strconv.ErrRange) {
		return fmt.Errorf("%w: %w", ErrOutOfRange, err)
	}
	return fmt.Errorf("%w: %w", ErrNotConvertible, err)
}

func coerceBool(v any) (reflect.Value, error) {
	var ret bool
	switch v := v.(type) {
	case nil:
	case bool:
		ret = v
	case int8, int16, int32, int64, int:
		ret = reflect.ValueOf(v).Int() != 0
	case uint8, uint16, uint32, uint64, uint:
		ret = reflect.ValueOf(v).Uint() != 0
	case float32:
		ret = v != 0
	case float64:
		ret = v != 0
	case apd.Decimal:
		ret = !v.IsZero()
	case string:
		switch s := strings.TrimSpace(v); {
		case strings.EqualFold(s, "true"):
			ret = true
		case strings.EqualFold(s, "false"):
			ret = false
		default:
			return reflect.Value{}, fmt.Errorf("%w: %q is not a boolean", ErrNotConvertible, v)
		}
	default:
		return reflect.Value{}, notConvertible(v)
	}
	return reflect.ValueOf(ret), nil
}

// coerceInt returns a coerceFunc for the signed integer type t.
func coerceInt(t reflect.Type) coerceFunc {
	bits := t.Bits()
	minVal := int64(-1) << (bits - 1)
	maxVal := -(minVal + 1)
	// 2^(bits-1), the smallest float too large for t.
	limit := -float64(minVal)

	check := func(orig any, i int64) (reflect.Value, error) {
		if i < minVal || i > maxVal {
			return reflect.Value{}, outOfRange(orig, t.String())
		}
		return reflect.ValueOf(i).Convert(t), nil
	}

	return func(v any) (reflect.Value, error) {
		switch v := v.(type) {
		case nil:
			return reflect.Zero(t), nil
		case bool:
			if v {
				return reflect.ValueOf(int64(1)).Convert(t), nil
			}
			return reflect.Zero(t), nil
		case int8, int16, int32, int64, int:
			return check(v, reflect.ValueOf(v).Int())
		case uint8, uint16, uint32, uint64, uint:
			u := reflect.ValueOf(v).Uint()
			if u > uint64(maxVal) {
				return reflect.Value{}, outOfRange(v, t.String())
			}
			return reflect.ValueOf(int64(u)).Convert(t), nil
		case Char:
			return check(v, int64(v))
		case float32:
			return coerceFloatToInt(v, float64(v), -limit, limit, t)
		case float64:
			return coerceFloatToInt(v, v, -limit, limit, t)
		case apd.Decimal:
			s, err := decimalIntegerString(&v)
			if err != nil {
				return reflect.Value{}, err
			}
			i, err := strconv.ParseInt(s, 10, bits)
			if err != nil {
				return reflect.Value{}, parseErr(err)
			}
			return reflect.ValueOf(i).Convert(t), nil
		case string:
			i, err := strconv.ParseInt(strings.TrimSpace(v), 10, bits)
			if err != nil {
				return reflect.Value{}, parseErr(err)
			}
			return reflect.ValueOf(i).Convert(t), nil
		}
		return reflect.Value{}, notConvertible(v)
	}
}

// coerceUint returns a coerceFunc for the unsigned integer type t.
func coerceUint(t reflect.Type) coerceFunc {
	bits := t.Bits()
	maxVal := uint64(math.MaxUint64) >> (64 - bits)
	// 2^bits, the smallest float too large for t.
	limit := math.Ldexp(1, bits)

	return func(v any) (reflect.Value, error) {
		switch v := v.(type) {
		case nil:
			return reflect.Zero(t), nil
		case bool:
			if v {
				return reflect.ValueOf(uint64(1)).Convert(t), nil
			}
			return reflect.Zero(t), nil
		case int8, int16, int32, int64, int:
			i := reflect.ValueOf(v).Int()
			if i < 0 || uint64(i) > maxVal {
				return reflect.Value{}, outOfRange(v, t.String())
			}
			return reflect.ValueOf(uint64(i)).Convert(t), nil
		case uint8, uint16, uint32, uint64, uint:
			u := reflect.ValueOf(v).Uint()
			if u > maxVal {
				return reflect.Value{}, outOfRange(v, t.String())
			}
			return reflect.ValueOf(u).Convert(t), nil
		case Char:
			if v < 0 || uint64(v) > maxVal {
				return reflect.Value{}, outOfRange(v, t.String())
			}
			return reflect.ValueOf(uint64(v)).Convert(t), nil
		case float32:
			return coerceFloatToInt(v, float64(v), 0, limit, t)
		case float64:
			return coerceFloatToInt(v, v, 0, limit, t)
		case apd.Decimal:
			s, err := decimalIntegerString(&v)
			if err != nil {
				return reflect.Value{}, err
			}
			u, err := strconv.ParseUint(s, 10, bits)
			if err != nil {
				if strings.HasPrefix(s, "-") {
					return reflect.Value{}, outOfRange(v.String(), t.String())
				}
				return reflect.Value{}, parseErr(err)
			}
			return reflect.ValueOf(u).Convert(t), nil
		case string:
			s := strings.TrimSpace(v)
			u, err := strconv.ParseUint(s, 10, bits)
			if err != nil {
				// ParseUint reports negative numbers as syntax errors.
				if _, ierr := strconv.ParseInt(s, 10, 64); ierr == nil || errors.Is(ierr, strconv.ErrRange) {
					return reflect.Value{}, outOfRange(v, t.String())
				}
				return reflect.Value{}, parseErr(err)
			}
			return reflect.ValueOf(u).Convert(t), nil
		}
		return reflect.Value{}, notConvertible(v)
	}
}

// coerceFloatToInt rounds f half to even and converts it to the
// integer type t. lo and hi bound the accepted range of the rounded
// value, lo inclusive and hi exclusive.
func coerceFloatToInt(orig any, f, lo, hi float64, t reflect.Type) (reflect.Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return reflect.Value{}, outOfRange(orig, t.String())
	}
	f = math.RoundToEven(f)
	if f < lo || f >= hi {
		return reflect.Value{}, outOfRange(orig, t.String())
	}
	if intKinds.Has(t.Kind()) {
		return reflect.ValueOf(int64(f)).Convert(t), nil
	}
	return reflect.ValueOf(uint64(f)).Convert(t), nil
}

// decimalIntegerString rounds d half to even, and returns the result
// as a base 10 integer string.
func decimalIntegerString(d *apd.Decimal) (string, error) {
	if d.Form != apd.Finite {
		return "", outOfRange(d.String(), "an integer")
	}
	var rounded apd.Decimal
	if _, err := decimalContext.RoundToIntegralValue(&rounded, d); err != nil {
		return "", fmt.Errorf("%w: %w", ErrOutOfRange, err)
	}
	if rounded.IsZero() {
		return "0", nil
	}
	return rounded.Text('f'), nil
}

// asFloat64 converts v to a float64, for the floating point
// coercions.
func asFloat64(v any) (float64, error) {
	switch v := v.(type) {
	case nil:
		return 0, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case int8, int16, int32, int64, int:
		return float64(reflect.ValueOf(v).Int()), nil
	case uint8, uint16, uint32, uint64, uint:
		return float64(reflect.ValueOf(v).Uint()), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case apd.Decimal:
		f, err := v.Float64()
		if err != nil {
			return 0, parseErr(err)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, parseErr(err)
		}
		return f, nil
	}
	return 0, notConvertible(v)
}

func coerceFloat64(v any) (reflect.Value, error) {
	f, err := asFloat64(v)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(f), nil
}

func coerceFloat32(v any) (reflect.Value, error) {
	if f, ok := v.(float32); ok {
		return reflect.ValueOf(f), nil
	}
	f, err := asFloat64(v)
	if err != nil {
		return reflect.Value{}, err
	}
	if !math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32 {
		return reflect.Value{}, outOfRange(v, "float32")
	}
	return reflect.ValueOf(float32(f)), nil
}

func coerceChar(v any) (reflect.Value, error) {
	var r int64
	switch v := v.(type) {
	case nil:
	case Char:
		r = int64(v)
	case int8, int16, int32, int64, int:
		r = reflect.ValueOf(v).Int()
	case uint8, uint16, uint32, uint64, uint:
		u := reflect.ValueOf(v).Uint()
		if u > utf8.MaxRune {
			return reflect.Value{}, outOfRange(v, "Char")
		}
		r = int64(u)
	case string:
		c, size := utf8.DecodeRuneInString(v)
		if size == 0 || size != len(v) || (c == utf8.RuneError && size == 1) {
			return reflect.Value{}, fmt.Errorf("%w: %q is not a single character", ErrNotConvertible, v)
		}
		r = int64(c)
	default:
		return reflect.Value{}, notConvertible(v)
	}
	if r < 0 || r > utf8.MaxRune || !utf8.ValidRune(rune(r)) {
		return reflect.Value{}, outOfRange(v, "Char")
	}
	return reflect.ValueOf(Char(r)), nil
}

func coerceDecimal(v any) (reflect.Value, error) {
	var ret apd.Decimal
	switch v := v.(type) {
	case nil:
	case apd.Decimal:
		ret.Set(&v)
	case bool:
		if v {
			ret.SetInt64(1)
		}
	case int8, int16, int32, int64, int:
		ret.SetInt64(reflect.ValueOf(v).Int())
	case uint8, uint16, uint32, uint64, uint:
		ret.Coeff.SetUint64(reflect.ValueOf(v).Uint())
	case float32:
		if err := setDecimalFloat(&ret, v, float64(v), 32); err != nil {
			return reflect.Value{}, err
		}
	case float64:
		if err := setDecimalFloat(&ret, v, v, 64); err != nil {
			return reflect.Value{}, err
		}
	case string:
		if _, _, err := ret.SetString(strings.TrimSpace(v)); err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %w", ErrNotConvertible, err)
		}
	default:
		return reflect.Value{}, notConvertible(v)
	}
	if ret.Form != apd.Finite {
		return reflect.Value{}, outOfRange(v, "Decimal")
	}
	return reflect.ValueOf(ret), nil
}

// setDecimalFloat sets d to the shortest decimal that round trips to
// f at the given float bit size.
func setDecimalFloat(d *apd.Decimal, orig any, f float64, bitSize int) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return outOfRange(orig, "Decimal")
	}
	if _, _, err := d.SetString(strconv.FormatFloat(f, 'E', -1, bitSize)); err != nil {
		return fmt.Errorf("%w: %w", ErrOutOfRange, err)
	}
	return nil
}
