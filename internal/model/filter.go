package model

import (
	"strconv"
	"strings"
)

// TaskFilter narrows a user's task list. Nil fields are not applied.
type TaskFilter struct {
	Query    string
	Status   *Status
	Priority *Priority
}

// ParseTaskFilter turns raw query parameters into a filter. It never fails:
// values that do not name a valid status or priority are dropped.
func ParseTaskFilter(q, status, priority string) TaskFilter {
	f := TaskFilter{Query: strings.TrimSpace(q)}

	if st, ok := ParseStatus(status); ok {
		f.Status = &st
	}

	if isASCIIDigits(priority) {
		if n, err := strconv.Atoi(priority); err == nil {
			p := Priority(n)
			if p.Valid() {
				f.Priority = &p
			}
		}
	}
	return f
}

func isASCIIDigits(s string) bool {
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
