package password

import (
	"strings"
	"testing"

	"github.com/dmitrijs2005/shelfauth/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Validate(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name string
		pw   string
		want error
	}{
		{name: "ok", pw: "Secret123", want: nil},
		{name: "unicode counts runes", pw: "пароль12", want: nil},
		{name: "too short", pw: "Ab1", want: ErrTooShort},
		{name: "too long", pw: strings.Repeat("a1", 65), want: ErrTooLong},
		{name: "no digit", pw: "OnlyLetters", want: ErrNoDigit},
		{name: "no letter", pw: "1234567890", want: ErrNoLetter},
		{name: "common", pw: "Password123", want: ErrTooCommon},
		{name: "repeated", pw: "aaaaaaa1", want: ErrTooCommon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Validate(tt.pw)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, common.ErrWeakPassword)
		})
	}
}

func TestPolicy_ZeroMaxLengthIsUnbounded(t *testing.T) {
	p := Policy{MinLength: 1}
	require.NoError(t, p.Validate(strings.Repeat("x", 1000)))
}
