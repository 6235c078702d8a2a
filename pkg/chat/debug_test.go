package chat

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPromptDebugPreviewRuneBoundary(t *testing.T) {
	// Three-byte runes: the preview cut at 200 bytes lands mid-rune
	// and must back up to the previous rune start.
	system := strings.Repeat("界", 100)

	d := newPromptDebug(system, "", nil, "", "", system, 0)
	if !utf8.ValidString(d.SystemPreview) {
		t.Fatalf("preview contains invalid UTF-8: %q", d.SystemPreview)
	}
	if !strings.HasSuffix(d.SystemPreview, "...") {
		t.Fatalf("long system content should be truncated with ellipsis: %q", d.SystemPreview)
	}
	if len(d.SystemPreview) > systemPreviewLength+3 {
		t.Fatalf("preview exceeds the truncation length: %d bytes", len(d.SystemPreview))
	}
}
