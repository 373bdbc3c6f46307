// Package utils provides small, generic helpers for page-window arithmetic
// shared by the handlers and the triage service.
package utils

import "strconv"

// AtoiDefault parses s as an int, returning def when s is empty or invalid.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampPage normalizes a 1-based page number and a page size into
// [1, maxSize]. A non-positive size becomes def.
func ClampPage(page, size, def, maxSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = def
	}
	if maxSize > 0 && size > maxSize {
		size = maxSize
	}
	return page, size
}

// Bounds returns the half-open slice window [start, end) of page (1-based)
// over n items. Pages past the end yield start == end == n.
func Bounds(n, page, size int) (start, end int) {
	if page < 1 || size < 1 {
		return 0, 0
	}
	start = (page - 1) * size
	if start >= n {
		return n, n
	}
	end = start + size
	if end > n {
		end = n
	}
	return start, end
}

// TotalPages is ceil(total/size); zero when size is not positive.
func TotalPages(total int64, size int) int {
	if size < 1 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
