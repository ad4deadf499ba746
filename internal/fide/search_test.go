package fide

import "testing"

const searchPage = `<html><body>
<div class="member-block">
  <div class="member-block__one">
    <a href="https://ratings.fide.com/profile/1503014">
      <div class="member-block-info-position">Carlsen, Magnus</div>
      <div class="member-block-info-name">GM</div>
    </a>
  </div>
  <div class="member-block__one">
    <a href="https://ratings.fide.com/profile/25059530">
      <div class="member-block-info-position">Carlsen, Someone</div>
    </a>
  </div>
  <div class="member-block__one">
    <a href="https://fide.com/news/profile/123">
      <div class="member-block-info-position">News about Carlsen</div>
    </a>
  </div>
  <div class="member-block__one">
    <a href="https://fide.com/calendar">
      <div class="member-block-info-position">Event</div>
    </a>
  </div>
</div>
</body></html>`

func TestParseSearch(t *testing.T) {
	hits, err := ParseSearch(searchPage)
	if err != nil {
		t.Fatalf("ParseSearch: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d: %+v", len(hits), hits)
	}
	if hits[0].ID != "1503014" || hits[0].Name != "Carlsen, Magnus" || hits[0].Title != "GM" {
		t.Errorf("unexpected first hit: %+v", hits[0])
	}
	if hits[1].Title != "Untitled" {
		t.Errorf("expected default title, got %q", hits[1].Title)
	}
}

func TestParseSearchEmpty(t *testing.T) {
	hits, err := ParseSearch("<html><body>nothing</body></html>")
	if err != nil || len(hits) != 0 {
		t.Errorf("expected no hits, got %v, %v", hits, err)
	}
}
