package util

import "testing"

func TestSanitizeTextRemovesNulAndControls(t *testing.T) {
	in := "ab\x00cd\x01\x02\n\txy"
	out := SanitizeText(in)
	if out != "abcd\n\txy" {
		t.Fatalf("unexpected sanitized output: %q", out)
	}
}

func TestSanitizeTextSqueezesBlankLines(t *testing.T) {
	in := "# Title\r\n\r\n\r\n\r\nbody\n\n\nend"
	out := SanitizeText(in)
	if out != "# Title\n\nbody\n\nend" {
		t.Fatalf("unexpected sanitized output: %q", out)
	}
}
