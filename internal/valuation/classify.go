package valuation

import (
	"fmt"
	"math"
	"sort"

	"github.com/cmansell/fairval/internal/models"
)

// Band maps IRRs below UpperBound (exclusive) to a verdict. The final band
// uses +Inf as its upper bound so the classifier is total.
type Band struct {
	UpperBound float64
	Verdict    models.Verdict
}

// Classifier maps an IRR onto an ordered, non-overlapping set of bands.
type Classifier struct {
	bands []Band
}

// NewClassifier validates and builds a classifier. Bands must be supplied
// in strictly ascending upper-bound order and end with an unbounded band.
func NewClassifier(bands []Band) (*Classifier, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("classifier requires at least one band")
	}
	if !sort.SliceIsSorted(bands, func(i, j int) bool {
		return bands[i].UpperBound < bands[j].UpperBound
	}) {
		return nil, fmt.Errorf("classifier bands must be in ascending order")
	}
	for i := 1; i < len(bands); i++ {
		if bands[i].UpperBound == bands[i-1].UpperBound {
			return nil, fmt.Errorf("classifier bands overlap at %.4f", bands[i].UpperBound)
		}
	}
	if !math.IsInf(bands[len(bands)-1].UpperBound, 1) {
		return nil, fmt.Errorf("final classifier band must be unbounded")
	}
	return &Classifier{bands: bands}, nil
}

// NewThresholdClassifier builds the standard three-band classifier:
// irr < overvaluedBelow → overvalued, irr < undervaluedAbove → fair,
// otherwise undervalued.
func NewThresholdClassifier(overvaluedBelow, undervaluedAbove float64) (*Classifier, error) {
	return NewClassifier([]Band{
		{UpperBound: overvaluedBelow, Verdict: models.VerdictOvervalued},
		{UpperBound: undervaluedAbove, Verdict: models.VerdictFair},
		{UpperBound: math.Inf(1), Verdict: models.VerdictUndervalued},
	})
}

// Classify returns the verdict for an IRR.
func (c *Classifier) Classify(irr float64) models.Verdict {
	for _, b := range c.bands {
		if irr < b.UpperBound {
			return b.Verdict
		}
	}
	// Unreachable: the final band is unbounded.
	return c.bands[len(c.bands)-1].Verdict
}
