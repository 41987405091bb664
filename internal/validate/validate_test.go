package validate

import (
	"strings"
	"testing"

	"github.com/protera/launchsync/internal/errors"
)

func TestLaunchState(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"uppercase started", "STARTED", "STARTED", false},
		{"lowercase stopped", "stopped", "STOPPED", false},
		{"mixed case", "StArTeD", "STARTED", false},
		{"surrounding whitespace", "  stopped ", "STOPPED", false},
		{"invalid token", "PAUSED", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LaunchState(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LaunchState(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("LaunchState(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestLaunchState_ErrorNamesToken(t *testing.T) {
	_, err := LaunchState("PAUSED")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "PAUSED") {
		t.Errorf("error should name the invalid token, got %q", err.Error())
	}
	if !errors.HasCategory(err, errors.CategoryValidation) {
		t.Error("expected validation category")
	}
}

func TestCopyPrivateIP(t *testing.T) {
	tests := []struct {
		raw     string
		want    bool
		wantErr bool
	}{
		{"TRUE", true, false},
		{"true", true, false},
		{"False", false, false},
		{"FALSE", false, false},
		{"yes", false, true},
		{"1", false, true},
		{"", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := CopyPrivateIP(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CopyPrivateIP(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("CopyPrivateIP(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestRightsizingMode(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"NO", "NONE", false},
		{"no", "NONE", false},
		{"BASIC", "BASIC", false},
		{"basic", "BASIC", false},
		{"in_aws", "IN_AWS", false},
		{"NONE", "", true}, // operators write NO, not the API sentinel
		{"AGGRESSIVE", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := RightsizingMode(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("RightsizingMode(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("RightsizingMode(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNonNegativeInt(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int32
		wantErr bool
	}{
		{"plain", "3000", 3000, false},
		{"zero", "0", 0, false},
		{"whitespace", " 125 ", 125, false},
		{"negative", "-1", 0, true},
		{"non-numeric", "fast", 0, true},
		{"float", "3000.5", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NonNegativeInt("IOPS", tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NonNegativeInt(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NonNegativeInt(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNonNegativeInt_ErrorNamesField(t *testing.T) {
	_, err := NonNegativeInt("throughput for /dev/sdb", "fast")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "/dev/sdb") {
		t.Errorf("error should carry the field context, got %q", err.Error())
	}
}
