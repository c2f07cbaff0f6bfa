package auth

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	PasswordMinLength = 12
	PasswordMaxLength = 128

	// PasswordSymbols is the punctuation set counted as the symbol class.
	PasswordSymbols = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?`~"
)

var commonPasswordPatterns = []string{"password", "123456", "qwerty", "admin", "letmein", "welcome"}

// PolicyResult is the verdict of ValidatePassword.
type PolicyResult struct {
	IsValid bool   `json:"isValid"`
	Message string `json:"message"`
}

// ValidatePassword checks password strength. Rules are applied in order and
// the first violation is reported.
func ValidatePassword(password string) PolicyResult {
	if password == "" {
		return reject("Password is required")
	}
	n := utf8.RuneCountInString(password)
	if n < PasswordMinLength {
		return reject(fmt.Sprintf("Password must be at least %d characters long", PasswordMinLength))
	}
	if n > PasswordMaxLength {
		return reject(fmt.Sprintf("Password must not exceed %d characters", PasswordMaxLength))
	}

	lower := strings.ToLower(password)
	for _, pattern := range commonPasswordPatterns {
		if strings.Contains(lower, pattern) {
			return reject("Password contains a common pattern and is too easy to guess")
		}
	}

	if characterClasses(password) < 3 {
		return reject("Password must contain at least 3 of the following: uppercase letters, lowercase letters, numbers, special characters")
	}
	if hasRepeatedRun(password, 3) {
		return reject("Password must not contain 3 or more repeated characters in a row")
	}
	if hasSequence(password) {
		return reject("Password must not contain sequential characters (e.g. abc, 321)")
	}
	return PolicyResult{IsValid: true, Message: "Password meets all requirements"}
}

// PasswordRequirements lists the rules enforced by ValidatePassword.
func PasswordRequirements() []string {
	return []string{
		fmt.Sprintf("Between %d and %d characters long", PasswordMinLength, PasswordMaxLength),
		"At least 3 of the following: uppercase letters, lowercase letters, numbers, special characters (" + PasswordSymbols + ")",
		"No common words or patterns (" + strings.Join(commonPasswordPatterns, ", ") + ")",
		"No character repeated 3 or more times in a row",
		"No sequential letters or numbers (e.g. abc, cba, 123, 321)",
	}
}

// FormatPasswordRequirements renders PasswordRequirements as a numbered list.
func FormatPasswordRequirements() string {
	var b strings.Builder
	b.WriteString("Password requirements:")
	for i, req := range PasswordRequirements() {
		fmt.Fprintf(&b, "\n%d. %s", i+1, req)
	}
	return b.String()
}

func reject(msg string) PolicyResult {
	return PolicyResult{IsValid: false, Message: msg}
}

func characterClasses(s string) int {
	var upper, lower, digit, symbol bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		}
	}
	count := 0
	for _, ok := range []bool{upper, lower, digit, symbol} {
		if ok {
			count++
		}
	}
	return count
}

func hasRepeatedRun(s string, limit int) bool {
	var (
		prev rune
		run  int
	)
	for i, r := range []rune(s) {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run >= limit {
			return true
		}
		prev = r
	}
	return false
}

// hasSequence detects three consecutive runes stepping by +1 or -1 inside
// one of a..z, A..Z or 0..9.
func hasSequence(s string) bool {
	rs := []rune(s)
	for i := 0; i+2 < len(rs); i++ {
		a, b, c := rs[i], rs[i+1], rs[i+2]
		if !sameSequenceClass(a, b, c) {
			continue
		}
		if (b-a == 1 && c-b == 1) || (a-b == 1 && b-c == 1) {
			return true
		}
	}
	return false
}

func sameSequenceClass(rs ...rune) bool {
	in := func(lo, hi rune) bool {
		for _, r := range rs {
			if r < lo || r > hi {
				return false
			}
		}
		return true
	}
	return in('a', 'z') || in('A', 'Z') || in('0', '9')
}
