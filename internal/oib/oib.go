// Package oib validates Croatian tax identification numbers (OIB) and IBANs,
// per spec.md §6 and GLOSSARY.
package oib

import (
	"regexp"
	"strconv"
)

var oibPattern = regexp.MustCompile(`^\d{11}$`)

// Valid reports whether s is an 11-digit OIB that passes ISO 7064 MOD 11,10
// (spec.md §8 invariant 5: "accepts exactly the 11-digit strings that pass
// MOD 11,10").
func Valid(s string) bool {
	if !oibPattern.MatchString(s) {
		return false
	}
	remainder := 10
	for i := 0; i < 10; i++ {
		digit, err := strconv.Atoi(string(s[i]))
		if err != nil {
			return false
		}
		remainder = (remainder + digit) % 10
		if remainder == 0 {
			remainder = 10
		}
		remainder = (remainder * 2) % 11
	}
	checkDigit, _ := strconv.Atoi(string(s[10]))
	control := (11 - remainder) % 10
	return control == checkDigit
}

var ibanPattern = regexp.MustCompile(`^HR\d{19}$`)

// ValidIBAN reports whether s is a Croatian IBAN: "HR" followed by 19
// digits (spec.md §6).
func ValidIBAN(s string) bool {
	return ibanPattern.MatchString(s)
}
