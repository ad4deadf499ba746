package fide

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/flor3z/fide-tracker/internal/storage"
)

// field is the outcome of extracting one value from a page
type field struct {
	name     string
	value    string
	found    bool
	required bool
}

func found(name, value string) field {
	value = cleanText(value)
	return field{name: name, value: value, found: value != ""}
}

func missing(name string) field {
	return field{name: name}
}

// labelled finds the div following a div whose text is label
func labelled(doc *goquery.Document, name, label string) field {
	sel := doc.Find("div").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.ChildrenFiltered("div").Length() == 0 && cleanText(s.Text()) == label
	}).First()
	if sel.Length() == 0 {
		return missing(name)
	}
	next := sel.NextAllFiltered("div").First()
	if next.Length() == 0 {
		return missing(name)
	}
	return found(name, next.Text())
}

// ParseProfile reads a player's public profile page. Only the name is
// required; other fields are left empty when the page does not carry them.
func ParseProfile(markup, playerID string) (*storage.PlayerProfile, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("invalid profile markup: %v", err)}
	}

	name := missing("name")
	if sel := doc.Find("div.profile-top-title").First(); sel.Length() > 0 {
		name = found("name", sel.Text())
	}
	name.required = true

	photo := missing("profile_photo")
	if src, ok := doc.Find("div.profile-top__photo img").First().Attr("src"); ok {
		photo = found("profile_photo", src)
	}

	fields := []field{
		name,
		labelled(doc, "world_rank", "World Rank (Active):"),
		labelled(doc, "federation", "Federation:"),
		labelled(doc, "birth_year", "B-Year:"),
		labelled(doc, "sex", "Sex:"),
		labelled(doc, "title", "FIDE title:"),
		photo,
	}

	values := make(map[string]string, len(fields))
	var absent []string
	for _, f := range fields {
		if !f.found {
			if f.required {
				absent = append(absent, f.name)
			} else {
				slog.Debug("Profile field missing", "playerID", playerID, "field", f.name)
			}
			continue
		}
		values[f.name] = f.value
	}
	if len(absent) > 0 {
		return nil, &ParseError{Reason: fmt.Sprintf("profile %s lacks required fields: %s", playerID, strings.Join(absent, ", "))}
	}

	p := &storage.PlayerProfile{
		PlayerID:     playerID,
		Name:         values["name"],
		Federation:   values["federation"],
		BirthYear:    values["birth_year"],
		Sex:          values["sex"],
		Title:        values["title"],
		ProfilePhoto: values["profile_photo"],
		WorldRank:    digitsOnly(values["world_rank"]),
	}

	doc.Find(".profile-top-rating-data").Each(func(_ int, s *goquery.Selection) {
		kind := strings.ToLower(cleanText(s.Find("span").First().Text()))
		value := digitsOnly(s.Text())
		switch {
		case strings.HasPrefix(kind, "std"), strings.HasPrefix(kind, "standard"):
			p.StandardRating = value
		case strings.HasPrefix(kind, "rapid"):
			p.RapidRating = value
		case strings.HasPrefix(kind, "blitz"):
			p.BlitzRating = value
		}
	})

	return p, nil
}
