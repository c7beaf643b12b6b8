// Package types contains shared types used across multiple packages to avoid import cycles.
package types

import (
	"sort"
	"strconv"
	"strings"
)

// IsCustomerID reports whether s is a valid customer identifier: a non-empty
// string of ASCII digits.
func IsCustomerID(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ParseCustomerID returns the numeric value of a customer identifier.
// Leading zeros are ignored. Identifiers that overflow int64 are reported as
// not ok; callers compare those with CompareIDs instead.
func ParseCustomerID(s string) (int64, bool) {
	if !IsCustomerID(s) {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// CompareIDs orders identifiers numerically, without overflow, and falls back
// to a lexical comparison so that "007" and "7" still have a stable order.
// Non-digit strings sort after all digit strings.
func CompareIDs(a, b string) int {
	aNum, bNum := IsCustomerID(a), IsCustomerID(b)
	switch {
	case aNum && !bNum:
		return -1
	case !aNum && bNum:
		return 1
	case !aNum && !bNum:
		return strings.Compare(a, b)
	}

	ta, tb := strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
	if len(ta) != len(tb) {
		if len(ta) < len(tb) {
			return -1
		}
		return 1
	}
	if c := strings.Compare(ta, tb); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// SortIDs sorts identifiers in place using CompareIDs.
func SortIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		return CompareIDs(ids[i], ids[j]) < 0
	})
}
