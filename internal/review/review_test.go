package review

import (
	"strings"
	"testing"

	"github.com/darshan-golchha/code-complexity/internal/snapshot"
)

func TestRenderFallback(t *testing.T) {
	tests := []struct {
		name    string
		reviews snapshot.Reviews
	}{
		{"zero value", snapshot.Reviews{}},
		{"empty string", snapshot.ReviewText("")},
		{"empty list", snapshot.ReviewList()},
		{"whitespace", snapshot.ReviewText(" \n\t")},
		{"list of blanks", snapshot.ReviewList("", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Render(tt.reviews)
			if !m.Fallback {
				t.Error("Expected fallback markup")
			}
			if string(m.HTML) != FallbackText {
				t.Errorf("Expected %q, got %q", FallbackText, m.HTML)
			}
			if m.Text() != FallbackText {
				t.Errorf("Expected text %q, got %q", FallbackText, m.Text())
			}
		})
	}
}

func TestRenderListMatchesJoinedString(t *testing.T) {
	list := Render(snapshot.ReviewList("a", "b"))
	text := Render(snapshot.ReviewText("a\nb"))

	if list.HTML != text.HTML {
		t.Errorf("Expected identical markup, got %q and %q", list.HTML, text.HTML)
	}
	if list.Fallback {
		t.Error("Non-empty reviews should not fall back")
	}
}

func TestRenderMarkdown(t *testing.T) {
	m := Render(snapshot.ReviewList("## Findings", "", "- **unused** import", "- `nil` check missing"))

	html := string(m.HTML)
	for _, want := range []string{"<h2", "Findings", "<li>", "<strong>unused</strong>", "<code>nil</code>"} {
		if !strings.Contains(html, want) {
			t.Errorf("Expected markup to contain %q, got %q", want, html)
		}
	}
}

func TestRenderStripsScripts(t *testing.T) {
	inputs := []string{
		"<script>alert('x')</script>",
		"hello <img src=x onerror=alert(1)>",
		"[click](javascript:alert(1))",
		"<iframe src=\"https://evil.example\"></iframe> text",
		"<a href=\"#\" onclick=\"steal()\">link</a>",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			html := strings.ToLower(string(Render(snapshot.ReviewText(input)).HTML))
			for _, bad := range []string{"<script", "onerror", "javascript:", "<iframe", "onclick"} {
				if strings.Contains(html, bad) {
					t.Errorf("Rendered markup contains %q: %q", bad, html)
				}
			}
		})
	}
}

func TestRenderOnlyMarkupFallsBack(t *testing.T) {
	m := Render(snapshot.ReviewText("<script>alert(1)</script>"))
	if !m.Fallback {
		t.Errorf("Expected fallback when nothing survives sanitization, got %q", m.HTML)
	}
}

func TestMarkupText(t *testing.T) {
	m := Render(snapshot.ReviewText("**bold** and <b onclick=x>tag</b>"))

	text := m.Text()
	if strings.Contains(text, "<") {
		t.Errorf("Terminal text should not contain tags, got %q", text)
	}
	if !strings.Contains(text, "bold") {
		t.Errorf("Expected terminal text to keep content, got %q", text)
	}
}
