package fide

import (
	"errors"
	"testing"
)

const profilePage = `<html><body>
<div class="profile-top">
  <div class="profile-top__photo"><img src="data:image/jpeg;base64,AAAA"></div>
  <div class="profile-top-title">Carlsen, Magnus</div>
  <div class="profile-top-rating-data profile-top-rating-data_gray"><span class="profile-top-rating-dataDesc">std</span> 2830</div>
  <div class="profile-top-rating-data profile-top-rating-data_red"><span class="profile-top-rating-dataDesc">rapid</span> 2823</div>
  <div class="profile-top-rating-data profile-top-rating-data_blue"><span class="profile-top-rating-dataDesc">blitz</span> Not rated</div>
</div>
<div class="profile-info">
  <div class="profile-info-row"><div>World Rank (Active):</div><div>1</div></div>
  <div class="profile-info-row"><div>Federation:</div><div>Norway</div></div>
  <div class="profile-info-row"><div>B-Year:</div><div>1990</div></div>
  <div class="profile-info-row"><div>Sex:</div><div>Male</div></div>
</div>
</body></html>`

func TestParseProfile(t *testing.T) {
	p, err := ParseProfile(profilePage, "1503014")
	if err != nil {
		t.Fatalf("ParseProfile: %v", err)
	}

	if p.PlayerID != "1503014" || p.Name != "Carlsen, Magnus" {
		t.Errorf("unexpected identity: %+v", p)
	}
	if p.Federation != "Norway" || p.BirthYear != "1990" || p.Sex != "Male" {
		t.Errorf("unexpected labelled fields: %+v", p)
	}
	if p.Title != "" {
		t.Errorf("missing title should stay empty, got %q", p.Title)
	}
	if p.WorldRank == nil || *p.WorldRank != 1 {
		t.Errorf("world rank = %v", p.WorldRank)
	}
	if p.StandardRating == nil || *p.StandardRating != 2830 {
		t.Errorf("std rating = %v", p.StandardRating)
	}
	if p.RapidRating == nil || *p.RapidRating != 2823 {
		t.Errorf("rapid rating = %v", p.RapidRating)
	}
	if p.BlitzRating != nil {
		t.Errorf("blitz should be absent, got %d", *p.BlitzRating)
	}
	if p.ProfilePhoto != "data:image/jpeg;base64,AAAA" {
		t.Errorf("photo = %q", p.ProfilePhoto)
	}
}

func TestParseProfileMissingName(t *testing.T) {
	_, err := ParseProfile(`<html><body><div>Federation:</div><div>Norway</div></body></html>`, "42")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}
