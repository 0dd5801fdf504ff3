package flow

import (
	"errors"
	"testing"

	"github.com/venturelaunch/angel/internal/models"
)

func TestRatingSetRate(t *testing.T) {
	rs := NewRatingSet()

	if err := rs.Rate(0, 3); err != nil {
		t.Fatalf("Rate(0, 3) failed: %v", err)
	}
	if got := rs.Rating(0); got != 3 {
		t.Errorf("Rating(0) = %d, want 3", got)
	}

	tests := []struct {
		name   string
		index  int
		rating int
		want   error
	}{
		{"index below range", -1, 3, models.ErrUnknownItem},
		{"index above range", len(SkillCatalog), 3, models.ErrUnknownItem},
		{"rating too low", 0, 0, models.ErrRatingOutOfRange},
		{"rating too high", 0, 6, models.ErrRatingOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := rs.Rate(tt.index, tt.rating); !errors.Is(err, tt.want) {
				t.Errorf("Rate(%d, %d) = %v, want %v", tt.index, tt.rating, err, tt.want)
			}
		})
	}

	// A rejected rating leaves the previous value intact.
	if got := rs.Rating(0); got != 3 {
		t.Errorf("Rating(0) after rejected updates = %d, want 3", got)
	}
}

func TestRatingSetComplete(t *testing.T) {
	rs := NewRatingSet()
	if rs.Complete() {
		t.Error("empty rating set reported complete")
	}

	for i := range SkillCatalog {
		if i == len(SkillCatalog)-1 {
			break
		}
		if err := rs.Rate(i, 4); err != nil {
			t.Fatalf("Rate(%d, 4) failed: %v", i, err)
		}
	}
	if rs.Complete() {
		t.Error("rating set with one unrated skill reported complete")
	}

	if err := rs.Rate(len(SkillCatalog)-1, 2); err != nil {
		t.Fatalf("final Rate failed: %v", err)
	}
	if !rs.Complete() {
		t.Error("fully rated set not reported complete")
	}
}

func TestRatingSetEncode(t *testing.T) {
	rs := NewRatingSet()
	if _, err := rs.Encode(); !errors.Is(err, models.ErrIncompleteRating) {
		t.Errorf("Encode of incomplete set = %v, want ErrIncompleteRating", err)
	}

	ratings := []int{3, 4, 2, 5, 1, 3, 4}
	for i, r := range ratings {
		if err := rs.Rate(i, r); err != nil {
			t.Fatalf("Rate(%d, %d) failed: %v", i, r, err)
		}
	}
	encoded, err := rs.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if encoded != "3, 4, 2, 5, 1, 3, 4" {
		t.Errorf("Encode = %q, want %q", encoded, "3, 4, 2, 5, 1, 3, 4")
	}
}

func TestDecodeRatings(t *testing.T) {
	rs, err := DecodeRatings("3, 4, 2, 5, 1, 3, 4")
	if err != nil {
		t.Fatalf("DecodeRatings failed: %v", err)
	}
	if !rs.Complete() {
		t.Error("decoded full payload not complete")
	}
	encoded, err := rs.Encode()
	if err != nil {
		t.Fatalf("re-encode failed: %v", err)
	}
	if encoded != "3, 4, 2, 5, 1, 3, 4" {
		t.Errorf("round-trip = %q, want original payload", encoded)
	}
}

func TestDecodeRatingsPartialAndInvalid(t *testing.T) {
	rs, err := DecodeRatings("")
	if err != nil {
		t.Fatalf("DecodeRatings empty payload failed: %v", err)
	}
	if rs.Complete() {
		t.Error("empty payload decoded as complete")
	}

	// Zeros mark unrated skills in a partial payload.
	rs, err = DecodeRatings("3, 0, 2")
	if err != nil {
		t.Fatalf("DecodeRatings partial payload failed: %v", err)
	}
	if rs.Rating(0) != 3 || rs.Rating(1) != 0 || rs.Rating(2) != 2 {
		t.Errorf("partial decode got %d, %d, %d", rs.Rating(0), rs.Rating(1), rs.Rating(2))
	}

	if _, err := DecodeRatings("3, four, 2"); err == nil {
		t.Error("expected error for non-numeric payload")
	}
	if _, err := DecodeRatings("3, 9, 2"); !errors.Is(err, models.ErrRatingOutOfRange) {
		t.Errorf("out-of-range payload = %v, want ErrRatingOutOfRange", err)
	}
}
