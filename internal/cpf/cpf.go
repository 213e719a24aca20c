// Package cpf validates and formats Brazilian individual taxpayer numbers.
// Anonymous participants are identified by their CPF.
package cpf

import "strings"

// Length is the number of digits in a CPF.
const Length = 11

// Clean strips every non-digit character.
func Clean(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Valid reports whether s reduces to an 11-digit CPF with correct check digits.
func Valid(s string) bool {
	digits := Clean(s)
	if len(digits) != Length {
		return false
	}
	if allSame(digits) {
		return false
	}
	if checkDigit(digits, 9) != int(digits[9]-'0') {
		return false
	}
	return checkDigit(digits, 10) == int(digits[10]-'0')
}

// Format renders an 11-digit CPF as XXX.XXX.XXX-XX. Anything else is returned cleaned.
func Format(s string) string {
	digits := Clean(s)
	if len(digits) != Length {
		return digits
	}
	return digits[0:3] + "." + digits[3:6] + "." + digits[6:9] + "-" + digits[9:11]
}

// checkDigit computes the mod-11 check digit over the first n digits,
// weighting them n+1 down to 2.
func checkDigit(digits string, n int) int {
	sum := 0
	for i := 0; i < n; i++ {
		sum += int(digits[i]-'0') * (n + 1 - i)
	}
	d := 11 - sum%11
	if d >= 10 {
		return 0
	}
	return d
}

func allSame(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}
