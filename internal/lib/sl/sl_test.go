package sl

import (
	"errors"
	"testing"
)

func TestSecretMasksMiddle(t *testing.T) {
	attr := Secret("key", "sk-1234567890abcdef")
	if got := attr.Value.String(); got != "sk-...def" {
		t.Errorf("Secret() = %q, want %q", got, "sk-...def")
	}
	if got := Secret("key", "short").Value.String(); got != "***" {
		t.Errorf("Secret(short) = %q, want ***", got)
	}
	if got := Secret("key", "").Value.String(); got != "" {
		t.Errorf("Secret(empty) = %q, want empty", got)
	}
}

func TestErr(t *testing.T) {
	if got := Err(errors.New("boom")).Value.String(); got != "boom" {
		t.Errorf("Err() = %q", got)
	}
	if got := Err(nil).Value.String(); got != "" {
		t.Errorf("Err(nil) = %q", got)
	}
}
