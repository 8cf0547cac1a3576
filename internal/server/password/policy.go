// Package password holds the registration password policy.
package password

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/shelfauth/internal/common"
)

var (
	ErrTooShort  = errors.New("password too short")
	ErrTooLong   = errors.New("password too long")
	ErrNoLetter  = errors.New("password must contain a letter")
	ErrNoDigit   = errors.New("password must contain a digit")
	ErrTooCommon = errors.New("password is too common")
)

type Policy struct {
	MinLength      int
	MaxLength      int
	RequireLetter  bool
	RequireDigit   bool
	RejectVeryWeak bool
}

func DefaultPolicy() Policy {
	return Policy{
		MinLength:      8,
		MaxLength:      128,
		RequireLetter:  true,
		RequireDigit:   true,
		RejectVeryWeak: true,
	}
}

// Validate returns nil or an error wrapping both common.ErrWeakPassword and
// the specific rule that failed.
func (p Policy) Validate(pw string) error {
	if err := p.check(pw); err != nil {
		return fmt.Errorf("%w: %w", common.ErrWeakPassword, err)
	}
	return nil
}

func (p Policy) check(pw string) error {
	// runes, not bytes
	n := utf8.RuneCountInString(pw)
	if n < p.MinLength {
		return ErrTooShort
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		return ErrTooLong
	}

	var hasLetter, hasDigit bool
	for _, r := range pw {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if p.RequireLetter && !hasLetter {
		return ErrNoLetter
	}
	if p.RequireDigit && !hasDigit {
		return ErrNoDigit
	}

	if p.RejectVeryWeak && looksVeryWeak(pw) {
		return ErrTooCommon
	}
	return nil
}

var commonPasswords = map[string]struct{}{
	"password1":   {},
	"password123": {},
	"qwerty123":   {},
	"abc12345":    {},
	"letmein1":    {},
	"welcome1":    {},
	"iloveyou1":   {},
	"library1":    {},
}

func looksVeryWeak(pw string) bool {
	s := strings.ToLower(strings.TrimSpace(pw))
	if _, ok := commonPasswords[s]; ok {
		return true
	}

	// a single repeated character, e.g. "aaaaaaa1"
	distinct := make(map[rune]struct{})
	for _, r := range s {
		distinct[r] = struct{}{}
	}
	return len(distinct) <= 2
}
