package bot

import (
	"testing"

	"hedgefarm/internal/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{"active to suspended", models.GroupActive, models.GroupSuspended, true},
		{"active to quarantined", models.GroupActive, models.GroupQuarantined, true},
		{"active to terminated", models.GroupActive, models.GroupTerminated, true},
		{"quarantined to active", models.GroupQuarantined, models.GroupActive, true},
		{"quarantined to terminated", models.GroupQuarantined, models.GroupTerminated, true},
		{"suspended to terminated", models.GroupSuspended, models.GroupTerminated, true},

		// Запрещённые переходы
		{"suspended to active", models.GroupSuspended, models.GroupActive, false},
		{"suspended to quarantined", models.GroupSuspended, models.GroupQuarantined, false},
		{"quarantined to suspended", models.GroupQuarantined, models.GroupSuspended, false},
		{"terminated to active", models.GroupTerminated, models.GroupActive, false},
		{"terminated to quarantined", models.GroupTerminated, models.GroupQuarantined, false},
		{"unknown state", "UNKNOWN", models.GroupActive, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestIsRunnable(t *testing.T) {
	if !IsRunnable(models.GroupActive) {
		t.Error("active group must be runnable")
	}
	for _, s := range []string{models.GroupSuspended, models.GroupQuarantined, models.GroupTerminated} {
		if IsRunnable(s) {
			t.Errorf("state %s must not be runnable", s)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if !IsTerminal(models.GroupTerminated) {
		t.Error("terminated must be terminal")
	}
	if IsTerminal(models.GroupQuarantined) {
		t.Error("quarantined must not be terminal")
	}
}
