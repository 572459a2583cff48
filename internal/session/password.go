package session

import "unicode"

// MinPasswordLength is enforced client-side before registration.
const MinPasswordLength = 6

// Strength scores a candidate password from 0 to 4, one point per check:
// minimum length, a digit, an uppercase letter, a non-alphanumeric rune.
// Pure function, used by the registration screen's strength meter.
func Strength(password string) int {
	score := 0
	if len(password) >= MinPasswordLength {
		score++
	}
	var digit, upper, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsUpper(r):
			upper = true
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			symbol = true
		}
	}
	if digit {
		score++
	}
	if upper {
		score++
	}
	if symbol {
		score++
	}
	return score
}
