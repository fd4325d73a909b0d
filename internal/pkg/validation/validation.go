package validation

import (
	"regexp"
	"unicode"
)

// Usernames: 3-32 letters, digits, underscore, dot or hyphen.
var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_.\-]{3,32}$`)

// Ticker symbols as accepted by the quote providers (BRK.B, ^GSPC, EURUSD=X).
var symbolRe = regexp.MustCompile(`^[A-Z0-9.\-^=]{1,16}$`)

func IsValidUsername(username string) bool {
	return usernameRe.MatchString(username)
}

// IsValidPassword requires at least 8 characters with at least one letter
// and one digit.
func IsValidPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter, hasDigit := false, false
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

// IsValidSymbol expects an already normalized (upper-cased) symbol.
func IsValidSymbol(symbol string) bool {
	return symbolRe.MatchString(symbol)
}
