package domain

import (
	"github.com/shopspring/decimal"
)

// AuditResult is the outcome of comparing a physical count with the expected range
type AuditResult string

const (
	ResultMatch     AuditResult = "Match"
	ResultExcess    AuditResult = "Excess"
	ResultShortfall AuditResult = "Shortfall"
)

// IsDiscrepant reports whether the result needs a client decision
func (r AuditResult) IsDiscrepant() bool {
	return r == ResultExcess || r == ResultShortfall
}

// Counts is the staff member's physical count broken down by stock condition
type Counts struct {
	Picking    float64 `bson:"picking" json:"picking"`
	Bulk       float64 `bson:"bulk" json:"bulk"`
	NearExpiry float64 `bson:"nearExpiry" json:"nearExpiry"`
	JIT        float64 `bson:"jit" json:"jit"`
	Damaged    float64 `bson:"damaged" json:"damaged"`
}

// Total sums every bucket
func (c Counts) Total() float64 {
	return c.Picking + c.Bulk + c.NearExpiry + c.JIT + c.Damaged
}

// Validate rejects negative buckets
func (c Counts) Validate() error {
	for _, v := range []float64{c.Picking, c.Bulk, c.NearExpiry, c.JIT, c.Damaged} {
		if v < 0 {
			return ErrNegativeQuantity
		}
	}
	return nil
}

// Thresholds are the ODIN reference quantities captured at submission time
type Thresholds struct {
	MinQuantity     float64 `bson:"minQuantity" json:"minQuantity"`
	BlockedQuantity float64 `bson:"blockedQuantity" json:"blockedQuantity"`
}

// MaxQuantity is the upper bound of the accepted range
func (t Thresholds) MaxQuantity() float64 {
	return t.MinQuantity + t.BlockedQuantity
}

// Validate rejects negative thresholds
func (t Thresholds) Validate() error {
	if t.MinQuantity < 0 || t.BlockedQuantity < 0 {
		return ErrNegativeQuantity
	}
	return nil
}

// Classification is the result of Classify
type Classification struct {
	TotalIdentified float64
	MinQuantity     float64
	MaxQuantity     float64
	Result          AuditResult
	// Magnitude is the distance to the nearest bound, 0 for a match
	Magnitude float64
}

// Classify compares the summed counts against the inclusive [min, max] range
func Classify(counts Counts, odin Thresholds) Classification {
	return ClassifyRange(counts.Total(), odin.MinQuantity, odin.MaxQuantity())
}

// ClassifyBin compares an actual bin quantity against its book quantity
func ClassifyBin(bookQuantity, actualQuantity float64) Classification {
	return ClassifyRange(actualQuantity, bookQuantity, bookQuantity)
}

// ClassifyRange is the single classification rule shared by SKU and bin entries
func ClassifyRange(total, min, max float64) Classification {
	c := Classification{
		TotalIdentified: total,
		MinQuantity:     min,
		MaxQuantity:     max,
	}

	switch {
	case total < min:
		c.Result = ResultShortfall
		c.Magnitude = min - total
	case total > max:
		c.Result = ResultExcess
		c.Magnitude = total - max
	default:
		c.Result = ResultMatch
	}
	return c
}

// RoundForDisplay rounds half away from zero to two decimals. Presentation only.
func RoundForDisplay(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
