package game

import (
	"testing"

	"golang.org/x/text/encoding/charmap"
)

func TestTranslateForTelnet(t *testing.T) {
	input := []byte("Hello\nWorld" + string([]byte{telnetIAC}) + "!")
	got := translateForTelnet(input)
	expected := []byte{'H', 'e', 'l', 'l', 'o', '\r', '\n', 'W', 'o', 'r', 'l', 'd', telnetIAC, telnetIAC, '!'}
	if string(got) != string(expected) {
		t.Fatalf("unexpected translation: %v", got)
	}
}

func TestNormalizeToken(t *testing.T) {
	if got := normalizeToken("Utf-8"); got != "UTF8" {
		t.Fatalf("expected UTF8, got %q", got)
	}
}

func TestEncodeDecodeCharmap(t *testing.T) {
	cm := charmap.CodePage437
	encoded := encodeWithCharmap(cm, []byte("é"))
	if len(encoded) != 1 {
		t.Fatalf("expected single byte encoding, got %d", len(encoded))
	}
	expected, ok := cm.EncodeRune('é')
	if !ok {
		t.Fatalf("failed to encode rune with charmap")
	}
	if encoded[0] != expected {
		t.Fatalf("expected %d, got %d", expected, encoded[0])
	}
	decoded := decodeWithCharmap(cm, encoded)
	if decoded != "é" {
		t.Fatalf("expected to decode to é, got %q", decoded)
	}
}

func TestLookupCharset(t *testing.T) {
	cases := map[string]*charmap.Charmap{
		"latin1":       charmap.ISO8859_1,
		"ISO-8859-1":   charmap.ISO8859_1,
		"iso8859-15":   charmap.ISO8859_15,
		"CP-437":       charmap.CodePage437,
		"windows-1252": charmap.Windows1252,
	}
	for name, want := range cases {
		got, ok := LookupCharset(name)
		if !ok || got != want {
			t.Fatalf("LookupCharset(%q) = %v, %v", name, got, ok)
		}
	}
	if _, ok := LookupCharset("UTF-8"); ok {
		t.Fatalf("UTF-8 is not a single-byte charset")
	}
}

func TestEncodeReplacesUnrepresentable(t *testing.T) {
	got := encodeWithCharmap(charmap.ISO8859_1, []byte("a\u2603b"))
	if string(got) != "a?b" {
		t.Fatalf("unexpected encoding: %q", got)
	}
}

func TestSanitizeInput(t *testing.T) {
	raw := "\x01Hi\x7f\tthere\u202e!\u00a0ok"
	if got := sanitizeInput(raw); got != "Hi there! ok" {
		t.Fatalf("unexpected sanitized string: %q", got)
	}
}

func TestCommandAndOptionNames(t *testing.T) {
	if got := commandName(telnetWILL); got != "WILL" {
		t.Fatalf("commandName(WILL) = %q", got)
	}
	if got := commandName(7); got != "cmd-7" {
		t.Fatalf("commandName(7) = %q", got)
	}
	if got := optionName(telnetOptWindowSize); got != "NAWS" {
		t.Fatalf("optionName(NAWS) = %q", got)
	}
	if got := optionName(24); got != "opt-24" {
		t.Fatalf("optionName(24) = %q", got)
	}
}
