package profiler

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// maxSearchDepth bounds FirstMatchingValue on pathological documents
const maxSearchDepth = 8

var byteSizePattern = regexp.MustCompile(`([0-9][0-9,]*)\s*bytes\b`)

// ArrayAt returns the array stored under a top-level key of doc
func ArrayAt(doc Value, key string) ([]Value, bool) {
	value, ok := doc.Get(key)
	if !ok {
		return nil, false
	}
	return value.AsArray()
}

// FirstMatchingValue walks doc depth-first in source order and returns the
// first string value whose key contains substr, compared case-insensitively
func FirstMatchingValue(doc Value, substr string) (string, bool) {
	if substr == "" {
		return "", false
	}
	return firstMatch(doc, strings.ToLower(substr), 0)
}

func firstMatch(v Value, needle string, depth int) (string, bool) {
	if depth > maxSearchDepth {
		return "", false
	}

	switch v.kind {
	case Array:
		for _, item := range v.items {
			if s, ok := firstMatch(item, needle, depth+1); ok {
				return s, true
			}
		}
	case Object:
		for _, member := range v.members {
			if s, ok := member.Value.AsString(); ok && strings.Contains(strings.ToLower(member.Key), needle) {
				return s, true
			}
			if s, ok := firstMatch(member.Value, needle, depth+1); ok {
				return s, true
			}
		}
	}
	return "", false
}

// ParseByteSize extracts the integer that precedes the word "bytes", as in
// "500.28 GB (500,277,790,720 bytes)". Thousands separators are ignored.
func ParseByteSize(text string) (uint64, bool) {
	match := byteSizePattern.FindStringSubmatch(text)
	if match == nil {
		return 0, false
	}
	digits := strings.ReplaceAll(match[1], ",", "")
	size, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return size, true
}

// SizeOf reads a byte size from an inventory entry, preferring the numeric
// size_in_bytes field and falling back to the human-readable size string.
// A numeric field outside the uint64 range is ignored.
func SizeOf(entry Value) (uint64, bool) {
	if raw, ok := entry.Get("size_in_bytes"); ok {
		if n, ok := raw.AsNumber(); ok && n >= 0 && n < math.MaxUint64 {
			return uint64(n), true
		}
	}
	return ParseByteSize(entry.GetString("size"))
}
