package opendns

import (
	"opendns-stats/lib/htmlutil"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// describeErrorPage returns the title (or failing that the first heading) of
// an html page the dashboard served in place of a csv report.
func describeErrorPage(page string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return ""
	}
	for _, selector := range []string{"title", "h1", "h2"} {
		nodes := doc.Find(selector).Nodes
		if len(nodes) == 0 {
			continue
		}
		text := htmlutil.CleanText(htmlutil.GetText(nodes[0]))
		if text != "" {
			return text
		}
	}
	return ""
}
