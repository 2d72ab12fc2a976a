package article

import (
	"html"
	"regexp"
	"strings"
)

// urlPattern matches http(s) URLs running to the next whitespace.
var urlPattern = regexp.MustCompile(`https?://\S+`)

// slackLink matches Slack's labelled link markup <url|label>.
var slackLink = regexp.MustCompile(`<(https?://[^\s|>]+)\|[^>]*>`)

// ExtractURLs returns every URL in text, left to right. A URL may be wrapped
// in angle brackets; trailing '>' characters are dropped.
func ExtractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimRight(m, ">")
		if m == "" {
			continue
		}
		urls = append(urls, m)
	}
	return urls
}

// NormalizeSlackText turns Slack message markup back into plain text:
// labelled links lose their label and the &amp; &lt; &gt; escapes are
// undone.
func NormalizeSlackText(text string) string {
	text = slackLink.ReplaceAllString(text, "<$1>")
	return html.UnescapeString(text)
}
