package domain

import (
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReferenceItem is one SKU of the ODIN reference catalog
type ReferenceItem struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	SkuID           string             `bson:"skuId"`
	Name            string             `bson:"name"`
	PickingLocation string             `bson:"pickingLocation,omitempty"`
	BulkLocation    string             `bson:"bulkLocation,omitempty"`
	SystemQuantity  float64            `bson:"systemQuantity"`
	UpdatedAt       time.Time          `bson:"updatedAt"`
}

// Thresholds derives the ODIN thresholds used when a submission carries none
func (r *ReferenceItem) Thresholds() Thresholds {
	return Thresholds{MinQuantity: r.SystemQuantity}
}

// Validate checks the fields required for an upload row
func (r *ReferenceItem) Validate() error {
	if strings.TrimSpace(r.SkuID) == "" {
		return ErrItemIDRequired
	}
	if strings.TrimSpace(r.Name) == "" {
		return ErrReferenceNameRequired
	}
	if r.SystemQuantity < 0 {
		return ErrNegativeQuantity
	}
	return nil
}

// CandidateKind is one step of the lookup chain
type CandidateKind int

const (
	CandidateExact CandidateKind = iota
	CandidateNumeric
	CandidateCaseInsensitive
)

func (k CandidateKind) String() string {
	switch k {
	case CandidateExact:
		return "exact"
	case CandidateNumeric:
		return "numeric"
	default:
		return "case-insensitive"
	}
}

// LookupCandidate is one attempt of the lookup chain. Number is set for CandidateNumeric.
type LookupCandidate struct {
	Kind   CandidateKind
	Value  string
	Number float64
}

// LookupCandidates builds the ordered lookup chain for a raw SKU key:
// exact string, numeric value when the key parses as a number, then case-insensitive exact.
func LookupCandidates(raw string) ([]LookupCandidate, error) {
	key := strings.TrimSpace(raw)
	if key == "" {
		return nil, ErrLookupKeyRequired
	}

	candidates := []LookupCandidate{{Kind: CandidateExact, Value: key}}
	if n, err := strconv.ParseFloat(key, 64); err == nil {
		candidates = append(candidates, LookupCandidate{Kind: CandidateNumeric, Value: key, Number: n})
	}
	candidates = append(candidates, LookupCandidate{Kind: CandidateCaseInsensitive, Value: key})
	return candidates, nil
}

// Matches applies the candidate to a stored SKU id
func (c LookupCandidate) Matches(skuID string) bool {
	switch c.Kind {
	case CandidateExact:
		return skuID == c.Value
	case CandidateNumeric:
		n, err := strconv.ParseFloat(strings.TrimSpace(skuID), 64)
		return err == nil && n == c.Number
	default:
		return strings.EqualFold(skuID, c.Value)
	}
}

// CatalogCacheKey is the cache key for a raw lookup input. Case is kept because
// the exact-match step of the chain is case-sensitive: "ABC" and "abc" may resolve
// to different items.
func CatalogCacheKey(raw string) string {
	return strings.TrimSpace(raw)
}
