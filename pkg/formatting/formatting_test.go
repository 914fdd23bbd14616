package formatting_test

import (
	"testing"

	"github.com/JaimeStill/moltblock/pkg/formatting"
)

func TestExtractCodeBlock(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  x = 1  ", "x = 1"},
		{"fenced with info", "```python\ndef f():\n    return 1\n```", "def f():\n    return 1"},
		{"fenced bare", "```\nx = 1\n```\n", "x = 1"},
		{"unterminated fence", "```go\nx := 1", "x := 1"},
		{"inner fence untouched", "text\n```\ncode\n```", "text\n```\ncode\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatting.ExtractCodeBlock(tt.in); got != tt.want {
				t.Errorf("ExtractCodeBlock() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "hé"},
		{"abc", 0, ""},
	}

	for _, tt := range tests {
		if got := formatting.Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"512", 512, false},
		{"2MB", 2 << 20, false},
		{"1.5 kb", 1536, false},
		{" 64KB ", 64 << 10, false},
		{"", 0, true},
		{"MB", 0, true},
		{"12 parsecs", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := formatting.ParseBytes(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseBytes(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n         int64
		precision int
		want      string
	}{
		{0, 1, "0 B"},
		{1023, 1, "1023 B"},
		{1536, 1, "1.5 KB"},
		{3 << 20, 0, "3 MB"},
		{1536, -2, "2 KB"},
	}

	for _, tt := range tests {
		if got := formatting.FormatBytes(tt.n, tt.precision); got != tt.want {
			t.Errorf("FormatBytes(%d, %d) = %q, want %q", tt.n, tt.precision, got, tt.want)
		}
	}
}
