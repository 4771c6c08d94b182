package utils

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// EnhanceImages adds lazy loading and referrer attributes to every image in
// an HTML fragment. Input that does not parse is returned unchanged.
func EnhanceImages(htmlStr string) string {
	if !strings.Contains(htmlStr, "<img") {
		return htmlStr
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return htmlStr
	}

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		s.SetAttr("referrerpolicy", "no-referrer")
		s.SetAttr("loading", "lazy")
	})

	// goquery wraps fragments in html/body; only the body content is wanted
	out, err := doc.Find("body").Html()
	if err != nil {
		return htmlStr
	}
	return out
}

// FirstImage returns the src of the first image in an HTML fragment, or "".
func FirstImage(htmlStr string) string {
	if !strings.Contains(htmlStr, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return src
}
