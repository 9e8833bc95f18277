package services

import (
	"context"
	"testing"
)

func TestTrimOutput(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already clean", "42", "42"},
		{"trailing newline", "42\n", "42"},
		{"trailing spaces per line", "1 2 3  \n4 5 6\t\n", "1 2 3\n4 5 6"},
		{"windows line endings", "ok\r\n", "ok"},
		{"leading and trailing blank lines", "\n\nresult\n\n", "result"},
		{"interior blank lines survive", "a\n\nb", "a\n\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trimOutput(tt.in); got != tt.want {
				t.Errorf("trimOutput(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRunUnsupportedLanguage(t *testing.T) {
	r, err := NewSandboxRunner(t.TempDir(), "256m", "1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Run(context.Background(), "code", "brainfuck", nil); err == nil {
		t.Fatal("expected error for unsupported language")
	}
}
