// Package flow provides the fixed skill catalog and rating capture for the
// skill-rating modality.
package flow

import (
	"strconv"
	"strings"

	"github.com/venturelaunch/angel/internal/models"
)

// SkillCatalog is the fixed, ordered catalog of rated business skills. The
// catalog order is the wire order of the encoded rating payload.
var SkillCatalog = []string{
	"Marketing",
	"Sales",
	"Finance & budgeting",
	"Operations",
	"Product development",
	"Networking",
	"Leadership",
}

// Rating bounds. Zero means unrated.
const (
	MinSkillRating = 1
	MaxSkillRating = 5
)

// RatingSet holds one rating per catalog skill, indexed in catalog order.
// A zero rating means the skill has not been rated yet.
type RatingSet struct {
	ratings []int
}

// NewRatingSet returns an empty rating set with every skill unrated.
func NewRatingSet() *RatingSet {
	return &RatingSet{ratings: make([]int, len(SkillCatalog))}
}

// Rate sets the rating for the skill at the given catalog index.
func (rs *RatingSet) Rate(index, rating int) error {
	if index < 0 || index >= len(SkillCatalog) {
		return models.ErrUnknownItem
	}
	if rating < MinSkillRating || rating > MaxSkillRating {
		return models.ErrRatingOutOfRange
	}
	rs.ratings[index] = rating
	return nil
}

// Rating returns the rating for the skill at the given catalog index, or zero
// if unrated or out of range.
func (rs *RatingSet) Rating(index int) int {
	if index < 0 || index >= len(SkillCatalog) {
		return 0
	}
	return rs.ratings[index]
}

// Complete reports whether every catalog skill has been rated.
func (rs *RatingSet) Complete() bool {
	for i := range SkillCatalog {
		if rs.ratings[i] == 0 {
			return false
		}
	}
	return true
}

// Encode serializes the ratings as the answer payload: the ordered integer
// list joined with ", ". The encoding order and separator are the wire
// contract with the upstream consumer.
func (rs *RatingSet) Encode() (string, error) {
	if !rs.Complete() {
		return "", models.ErrIncompleteRating
	}
	parts := make([]string, len(SkillCatalog))
	for i := range SkillCatalog {
		parts[i] = strconv.Itoa(rs.ratings[i])
	}
	return strings.Join(parts, ", "), nil
}

// DecodeRatings parses an encoded rating payload back into a rating set.
// Used when restoring in-progress state from storage.
func DecodeRatings(payload string) (*RatingSet, error) {
	rs := NewRatingSet()
	if strings.TrimSpace(payload) == "" {
		return rs, nil
	}
	parts := strings.Split(payload, ",")
	for i, part := range parts {
		if i >= len(SkillCatalog) {
			break
		}
		value, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		if value == 0 {
			continue
		}
		if err := rs.Rate(i, value); err != nil {
			return nil, err
		}
	}
	return rs, nil
}
