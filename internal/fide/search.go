package fide

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var profileIDPattern = regexp.MustCompile(`/profile/(\d+)`)

// PlayerHit is one entry of the player search results
type PlayerHit struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ParseSearch extracts players from the search results page. News and other
// non-profile entries are skipped.
func ParseSearch(markup string) ([]PlayerHit, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("invalid search markup: %v", err)}
	}

	var hits []PlayerHit
	seen := make(map[string]struct{})
	doc.Find("div.member-block .member-block__one").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Find("a").First().Attr("href")
		if !ok || !strings.Contains(href, "profile") || strings.Contains(href, "news") {
			return
		}
		m := profileIDPattern.FindStringSubmatch(href)
		if m == nil {
			return
		}
		if _, dup := seen[m[1]]; dup {
			return
		}
		seen[m[1]] = struct{}{}

		title := cleanText(s.Find(".member-block-info-name").First().Text())
		if title == "" {
			title = "Untitled"
		}
		hits = append(hits, PlayerHit{
			ID:    m[1],
			Name:  cleanText(s.Find(".member-block-info-position").First().Text()),
			Title: title,
			URL:   href,
		})
	})

	return hits, nil
}
