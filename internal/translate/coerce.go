package translate

import (
	"strconv"
	"strings"
	"time"

	"github.com/telhawk-systems/telhawk-normalize/internal/event"
)

// epochMillisFloor separates epoch-second from epoch-millisecond inputs
// for the timestamp coercion.
const epochMillisFloor = int64(1e12)

// coerceValue applies a @move/@copy type coercion. The boolean is false
// when the value cannot be represented in the requested type; callers
// treat that like a missing source.
func coerceValue(v any, typ string) (any, bool) {
	switch typ {
	case "integer":
		n, ok := toInt64(v)
		return int(n), ok
	case "long":
		return toInt64(v)
	case "string":
		return event.String(v), true
	case "timestamp":
		return toMillis(v)
	case "downcase":
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		return strings.ToLower(s), true
	case "upcase":
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		return strings.ToUpper(s), true
	}
	return nil, false
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		if t == float64(int64(t)) {
			return int64(t), true
		}
	case string:
		s := strings.TrimSpace(t)
		if rest, found := strings.CutPrefix(s, "0x"); found {
			n, err := strconv.ParseInt(rest, 16, 64)
			return n, err == nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		return n, err == nil
	}
	return 0, false
}

// toMillis parses timestamps into milliseconds since the Unix epoch, the
// canonical wire form of this pipeline. Accepted inputs: RFC 3339
// strings, numeric epoch seconds, and integer epoch milliseconds
// (integers at or above 1e12). Float values are always read as epoch
// seconds.
func toMillis(v any) (any, bool) {
	switch t := v.(type) {
	case int:
		return scaleEpoch(int64(t)), true
	case int64:
		return scaleEpoch(t), true
	case float64:
		return int64(t * 1000), true
	case string:
		s := strings.TrimSpace(t)
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return ts.UnixMilli(), true
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return scaleEpoch(n), true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f * 1000), true
		}
	}
	return nil, false
}

func scaleEpoch(n int64) int64 {
	if n >= epochMillisFloor {
		return n
	}
	return n * 1000
}
