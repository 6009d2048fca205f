package spdrl20

import "testing"

func TestToBool(t *testing.T) {
	trueCases := []string{"1", "t", "T", "true", "True", "y", "yes"}
	for _, v := range trueCases {
		if !ToBool(v) {
			t.Errorf("ToBool(%q) = false, want true", v)
		}
	}

	falseCases := []string{"0", "f", "F", "false", "False", "n", "no", "", "2", "yeah"}
	for _, v := range falseCases {
		if ToBool(v) {
			t.Errorf("ToBool(%q) = true, want false", v)
		}
	}
}

func TestBoolDigit(t *testing.T) {
	if boolDigit(true) != "1" {
		t.Errorf("boolDigit(true) = %q, want %q", boolDigit(true), "1")
	}
	if boolDigit(false) != "0" {
		t.Errorf("boolDigit(false) = %q, want %q", boolDigit(false), "0")
	}
}

func TestJoinFields(t *testing.T) {
	if got := joinFields("1", "0", "1"); got != "1,0,1" {
		t.Errorf("joinFields = %q, want %q", got, "1,0,1")
	}
}
