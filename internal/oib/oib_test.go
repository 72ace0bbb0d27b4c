package oib

import "testing"

func TestValid(t *testing.T) {
	cases := map[string]bool{
		"94577403209": true,  // passes ISO 7064 MOD 11,10
		"12345678901": false,
		"1234567890":  false, // too short
		"123456789012": false, // too long
		"abcdefghijk": false,
	}
	for in, want := range cases {
		if got := Valid(in); got != want {
			t.Errorf("Valid(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestValidIBAN(t *testing.T) {
	if !ValidIBAN("HR1234567890123456789") {
		t.Error("expected valid Croatian IBAN")
	}
	if ValidIBAN("DE1234567890123456789") {
		t.Error("expected non-HR IBAN to be invalid")
	}
	if ValidIBAN("HR123") {
		t.Error("expected short IBAN to be invalid")
	}
}
