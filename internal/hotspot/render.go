package hotspot

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// md renders info-hotspot descriptions for the viewer's info modal.
var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// RenderDescription converts a Markdown description to HTML. On render
// failure the raw text is still available on the Action, so this
// returns an empty string rather than an error.
func RenderDescription(src string) string {
	if src == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return ""
	}
	return buf.String()
}
