package router

import (
	"strconv"
	"strings"
)

// LimitOrDefault returns a sanitized page size. Missing or invalid values fall back to
// def and values above maxLimit are capped.
func LimitOrDefault(raw string, def int, maxLimit int) int {
	if def <= 0 {
		def = 20
	}
	if maxLimit <= 0 {
		maxLimit = 500
	}
	val, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || val <= 0 {
		return def
	}
	if val > maxLimit {
		return maxLimit
	}
	return val
}

// PageOrDefault returns a 1-based page number.
func PageOrDefault(raw string, def int) int {
	if def <= 0 {
		def = 1
	}
	val, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || val <= 0 {
		return def
	}
	return val
}
