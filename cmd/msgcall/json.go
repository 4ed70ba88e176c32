package main

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/goccy/go-json"
)

// readJSON reads a single JSON value from r and converts it to a
// msgcall Value.
func readJSON(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	return toValue(v)
}

func toValue(v any) (any, error) {
	switch v := v.(type) {
	case nil, bool, string:
		return v, nil
	case json.Number:
		return numberValue(v)
	case []any:
		ret := make([]any, len(v))
		for i, e := range v {
			ev, err := toValue(e)
			if err != nil {
				return nil, err
			}
			ret[i] = ev
		}
		return ret, nil
	case map[string]any:
		ret := make(map[string]any, len(v))
		for k, e := range v {
			ev, err := toValue(e)
			if err != nil {
				return nil, err
			}
			ret[k] = ev
		}
		return ret, nil
	default:
		return nil, fmt.Errorf("unexpected JSON value %T", v)
	}
}

// numberValue returns the narrowest integer Value that holds n, or
// n as a float64.
func numberValue(n json.Number) (any, error) {
	if u, err := strconv.ParseUint(string(n), 10, 64); err == nil {
		switch {
		case u <= math.MaxUint8:
			return uint8(u), nil
		case u <= math.MaxUint16:
			return uint16(u), nil
		case u <= math.MaxUint32:
			return uint32(u), nil
		default:
			return u, nil
		}
	}
	if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		switch {
		case i >= math.MinInt8:
			return int8(i), nil
		case i >= math.MinInt16:
			return int16(i), nil
		case i >= math.MinInt32:
			return int32(i), nil
		default:
			return i, nil
		}
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON number %q: %w", n, err)
	}
	return f, nil
}
