package evaluate

// Confusion counts the four outcome cells for one decision threshold.
type Confusion struct {
	TruePositive  int
	FalsePositive int
	TrueNegative  int
	FalseNegative int
}

// Report is the scoreboard for one threshold over a fixed prediction set.
type Report struct {
	Threshold float64
	Samples   int
	Accuracy  float64
	Precision float64
	Recall    float64
	Confusion Confusion
}

// Score classifies each probability against the threshold (predict positive
// when probability >= threshold) and tallies the outcome. Ratios with a
// zero denominator report as zero.
func Score(probs []float64, truth []int, threshold float64) Report {
	r := Report{Threshold: threshold, Samples: len(probs)}
	for i, p := range probs {
		predicted := p >= threshold
		actual := truth[i] == 1
		switch {
		case predicted && actual:
			r.Confusion.TruePositive++
		case predicted && !actual:
			r.Confusion.FalsePositive++
		case !predicted && !actual:
			r.Confusion.TrueNegative++
		default:
			r.Confusion.FalseNegative++
		}
	}

	c := r.Confusion
	if r.Samples > 0 {
		r.Accuracy = float64(c.TruePositive+c.TrueNegative) / float64(r.Samples)
	}
	if denom := c.TruePositive + c.FalsePositive; denom > 0 {
		r.Precision = float64(c.TruePositive) / float64(denom)
	}
	if denom := c.TruePositive + c.FalseNegative; denom > 0 {
		r.Recall = float64(c.TruePositive) / float64(denom)
	}
	return r
}
