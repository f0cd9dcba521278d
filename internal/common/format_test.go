package common

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"104.5", "$104.50"},
		{"0", "$0.00"},
		{"-51", "-$51.00"},
		{"0.045", "$0.05"},
	}

	for _, tt := range tests {
		if got := FormatMoney(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("FormatMoney(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestShortId(t *testing.T) {
	if got := ShortId(""); got != "none" {
		t.Errorf("Expected none, got %s", got)
	}
	if got := ShortId("abc"); got != "abc" {
		t.Errorf("Expected abc, got %s", got)
	}
	if got := ShortId("0123456789"); got != "01234567..." {
		t.Errorf("Expected truncated id, got %s", got)
	}
}

func TestIsIgnorableSyncError(t *testing.T) {
	if !isIgnorableSyncError(errString("sync /dev/stderr: inappropriate ioctl for device")) {
		t.Error("Expected stderr sync error to be ignorable")
	}
	if isIgnorableSyncError(errString("disk full")) {
		t.Error("Expected other errors to be reported")
	}
}

type errString string

func (e errString) Error() string { return string(e) }
