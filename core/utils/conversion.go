package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseInt converts various types to int using explicit type switching.
// Strings may be decimal or 0x-prefixed hex. ok is false for nil and for
// input that does not parse.
func ParseInt(val any) (n int, ok bool) {
	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case int32:
		return int(v), true
	case uint:
		return int(v), true
	case uint64:
		return int(v), true
	case uint32:
		return int(v), true
	case float64:
		return int(v), true
	case float32:
		return int(v), true
	case string:
		return parseString(v)
	case []byte:
		return parseString(string(v))
	case nil:
		return 0, false
	default:
		return parseString(fmt.Sprintf("%v", v))
	}
}

func parseString(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		i, err := strconv.ParseInt(rest, 16, 64)
		return int(i), err == nil
	}
	i, err := strconv.Atoi(s)
	return i, err == nil
}

// ToString converts various types to string. nil becomes "".
func ToString(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
