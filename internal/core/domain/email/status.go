package email

import (
	"fmt"
	"strings"
)

// StatusTrail accumulates space-separated status codes across a multi-step operation.
type StatusTrail struct {
	parts []string
}

// Add appends one code. Format arguments are applied when present.
func (s *StatusTrail) Add(code string, args ...any) {
	if len(args) > 0 {
		code = fmt.Sprintf(code, args...)
	}
	if code = strings.TrimSpace(code); code != "" {
		s.parts = append(s.parts, code)
	}
}

// Append merges another trail's codes, if any.
func (s *StatusTrail) Append(other string) {
	if other = strings.TrimSpace(other); other != "" {
		s.parts = append(s.parts, other)
	}
}

// Contains reports whether code was recorded.
func (s *StatusTrail) Contains(code string) bool {
	for _, p := range s.parts {
		if p == code || strings.Contains(" "+p+" ", " "+code+" ") {
			return true
		}
	}
	return false
}

func (s *StatusTrail) String() string {
	return strings.Join(s.parts, " ")
}
