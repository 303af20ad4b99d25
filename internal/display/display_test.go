package display

import (
	"strings"
	"testing"
	"time"
)

func TestRoleLabel(t *testing.T) {
	tests := []struct {
		role     string
		contains string
	}{
		{"user", "you"},
		{"assistant", "lumina"},
		{"system", "system"},
	}

	for _, tt := range tests {
		label := RoleLabel(tt.role)
		if !strings.Contains(label, tt.contains) {
			t.Errorf("RoleLabel(%q) = %q, expected to contain %q", tt.role, label, tt.contains)
		}
		if !strings.Contains(label, Reset) {
			t.Errorf("RoleLabel(%q) = %q, expected ANSI-colored output", tt.role, label)
		}
	}
}

func TestMarkdown(t *testing.T) {
	out := Markdown("# Heading\n\nSome *text* here.")
	if !strings.Contains(out, "Heading") {
		t.Errorf("Markdown output lost the heading:\n%s", out)
	}
	if !strings.Contains(out, "text") {
		t.Errorf("Markdown output lost body text:\n%s", out)
	}
	if strings.HasSuffix(out, "\n") {
		t.Error("Markdown output should have trailing newlines trimmed")
	}
}

func TestMarkdownEmpty(t *testing.T) {
	if out := Markdown(""); strings.TrimSpace(out) != "" {
		t.Errorf("Markdown(\"\") = %q, want blank", out)
	}
}

func TestFormatTime(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	got := FormatTime(ts)
	if _, err := time.Parse("2006-01-02 15:04:05", got); err != nil {
		t.Errorf("FormatTime(%v) = %q, not in expected layout", ts, got)
	}

	if got := FormatTime(time.Time{}); got != "" {
		t.Errorf("FormatTime(zero) = %q, want empty", got)
	}
}
