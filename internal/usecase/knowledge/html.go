package knowledge

import (
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
)

var (
	scriptRe         = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe          = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	excessiveLinesRe = regexp.MustCompile(`\n{3,}`)
)

// htmlConverter turns HTML documents into markdown before chunking.
type htmlConverter struct {
	converter *md.Converter
}

func newHTMLConverter() *htmlConverter {
	c := md.NewConverter("", true, nil)
	c.Use(plugin.GitHubFlavored())
	return &htmlConverter{converter: c}
}

// Convert returns the page title (may be empty) and its markdown body.
func (h *htmlConverter) Convert(content []byte) (string, string, error) {
	title := htmlTitle(content)

	cleaned := scriptRe.ReplaceAllString(string(content), "")
	cleaned = styleRe.ReplaceAllString(cleaned, "")

	markdown, err := h.converter.ConvertString(cleaned)
	if err != nil {
		return "", "", fmt.Errorf("convert html: %w", err)
	}
	markdown = excessiveLinesRe.ReplaceAllString(strings.TrimSpace(markdown), "\n\n")
	return title, markdown, nil
}

func htmlTitle(content []byte) string {
	doc, err := html.Parse(strings.NewReader(string(content)))
	if err != nil {
		return ""
	}
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}
