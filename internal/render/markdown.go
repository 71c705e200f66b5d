package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown renders issue and comment text for the terminal. With colors off
// the text is returned unchanged; on a render error the raw text is returned
// alongside the error.
func Markdown(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil
	}
	if !ColorsEnabled() {
		return content, nil
	}

	rendered, err := glamour.RenderWithEnvironmentConfig(content)
	if err != nil {
		return content, err
	}
	return strings.TrimSpace(rendered), nil
}
