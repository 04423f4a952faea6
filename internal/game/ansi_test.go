package game

import "testing"

func TestStripAnsiRemovesEscapes(t *testing.T) {
	input := Style("Hello", AnsiBold, AnsiRed) + " " + NameStyle("World")
	got := StripAnsi(input)
	want := "Hello World"
	if got != want {
		t.Fatalf("StripAnsi(%q) = %q, want %q", input, got, want)
	}
}

func TestStripAnsiLeavesPlainText(t *testing.T) {
	input := "plain [brackets] stay"
	if got := StripAnsi(input); got != input {
		t.Fatalf("StripAnsi(%q) = %q", input, got)
	}
}

func TestVisibleWidthIgnoresEscapes(t *testing.T) {
	input := Style("héllo", AnsiGreen)
	if got := VisibleWidth(input); got != 5 {
		t.Fatalf("VisibleWidth(%q) = %d, want 5", input, got)
	}
}

func TestStyleWithoutAttributes(t *testing.T) {
	if got := Style("text"); got != "text" {
		t.Fatalf("Style without attributes = %q", got)
	}
	if got := Style("", AnsiBold); got != "" {
		t.Fatalf("Style of empty text = %q", got)
	}
	if got := Style("x", AnsiBold); got != AnsiBold+"x"+AnsiReset {
		t.Fatalf("Style(x, bold) = %q", got)
	}
}
