// Package review turns free-text review content into markup that is safe
// to inject into a presentation surface.
//
// Review text is untrusted. Markdown is converted with raw HTML disabled,
// so tags embedded in the source are dropped and unsafe link schemes are
// filtered, and the converter output is passed through a UGC sanitizer
// before it is handed out as trusted markup.
package review

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/darshan-golchha/code-complexity/internal/snapshot"
	"github.com/microcosm-cc/bluemonday"
	log "github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const FallbackText = "No Reviews Available"

// Markup is sanitized review HTML.
type Markup struct {
	HTML     template.HTML
	Fallback bool
}

// Text renders the markup for surfaces that cannot display HTML. Tags are
// converted back into plain markdown.
func (m Markup) Text() string {
	if m.Fallback {
		return FallbackText
	}

	text, err := htmltomarkdown.ConvertString(string(m.HTML))
	if err != nil {
		log.Debugf("review: html-to-markdown failed, stripping tags: %v", err)
		return strings.TrimSpace(bluemonday.StrictPolicy().Sanitize(string(m.HTML)))
	}
	return strings.TrimSpace(text)
}

type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

var defaultRenderer = NewRenderer()

// Render converts reviews with the package default renderer.
func Render(r snapshot.Reviews) Markup {
	return defaultRenderer.Render(r)
}

func (r *Renderer) Render(reviews snapshot.Reviews) Markup {
	if reviews.IsEmpty() {
		return fallback()
	}

	html, err := r.convert(reviews.Joined())
	if err != nil {
		log.Warnf("review: markdown conversion failed: %v", err)
		return fallback()
	}
	if strings.TrimSpace(html) == "" {
		return fallback()
	}

	return Markup{HTML: template.HTML(html)}
}

func (r *Renderer) convert(source string) (out string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("markdown converter panicked: %v", rec)
		}
	}()

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return r.policy.Sanitize(buf.String()), nil
}

func fallback() Markup {
	return Markup{HTML: template.HTML(FallbackText), Fallback: true}
}
