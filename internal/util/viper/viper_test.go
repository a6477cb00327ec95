package viper

import "testing"

func TestNewViperEnvKeyReplacer(t *testing.T) {
	t.Setenv("FORFEIT_LOG_LEVEL", "debug")
	t.Setenv("FORFEIT_TIMER_GRACE_SECONDS", "30")

	v := NewViper("nonexistent.yaml")

	if got := v.GetString("log-level"); got != "debug" {
		t.Fatalf("expected log-level to be %q, got %q", "debug", got)
	}
	if got := v.GetInt("timer.grace-seconds"); got != 30 {
		t.Fatalf("expected timer.grace-seconds to be 30, got %d", got)
	}
}

func TestNewViperEnvKeyReplacerProfileWithDashes(t *testing.T) {
	t.Setenv("FORFEIT_TEAM_A_B_C_TIMER_OUTCOME", "trash")

	v := NewViper("nonexistent.yaml")
	v.Set("team-a-b-c", map[string]any{})

	profile := v.Sub("team-a-b-c")
	if profile == nil {
		t.Fatal("expected profile viper, got nil")
	}

	if got := profile.GetString("timer.outcome"); got != "trash" {
		t.Fatalf("expected timer.outcome to be %q, got %q", "trash", got)
	}
}
