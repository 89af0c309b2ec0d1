package permission

import (
	"fmt"
	"regexp"
	"strings"
)

// codeRegex constrains catalog codes to "<resource>.<action>", lowercase,
// e.g. "animals.read" or "system.admin".
const codeRegex = `^[a-z][a-z0-9_]*\.[a-z][a-z0-9_]*$`

var codePattern = regexp.MustCompile(codeRegex)

// Code is one parsed permission code: the resource being acted on and the
// action taken on it.
type Code struct {
	Resource string
	Action   string
}

func (c Code) String() string { return c.Resource + "." + c.Action }

// ParseCode normalizes and parses a permission code string. Unknown shapes
// fail loudly rather than silently never matching.
func ParseCode(s string) (Code, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !codePattern.MatchString(s) {
		return Code{}, fmt.Errorf("invalid permission code: %q", s)
	}
	parts := strings.SplitN(s, ".", 2)
	return Code{Resource: parts[0], Action: parts[1]}, nil
}

// Allows reports whether the held codes contain the required one. Matching
// is exact after normalization; there is no wildcard or implication between
// actions.
func Allows(held []string, required Code) bool {
	want := required.String()
	for _, h := range held {
		if strings.ToLower(strings.TrimSpace(h)) == want {
			return true
		}
	}
	return false
}

// AllowsAll reports whether every required code is held.
func AllowsAll(held []string, required ...Code) bool {
	for _, r := range required {
		if !Allows(held, r) {
			return false
		}
	}
	return true
}

// AllowsAny reports whether at least one required code is held.
func AllowsAny(held []string, required ...Code) bool {
	for _, r := range required {
		if Allows(held, r) {
			return true
		}
	}
	return false
}
