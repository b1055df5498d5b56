package scoring

import "github.com/frahmantamala/loan-servicing/internal/core/datamodel/loan"

const (
	LowRiskThreshold    = 0.75
	MediumRiskThreshold = 0.50
)

// Band maps a score to its risk band. Lower bounds are inclusive.
func Band(score float64) string {
	if score >= LowRiskThreshold {
		return loan.RiskLow
	}
	if score >= MediumRiskThreshold {
		return loan.RiskMedium
	}
	return loan.RiskHigh
}

func ValidBand(b string) bool {
	switch b {
	case loan.RiskLow, loan.RiskMedium, loan.RiskHigh:
		return true
	}
	return false
}

// normalize keeps a band reported by the scorer and derives one from the score otherwise.
func normalize(score float64, reported ...string) Prediction {
	for _, r := range reported {
		if ValidBand(r) {
			return Prediction{Score: score, Risk: r}
		}
	}
	return Prediction{Score: score, Risk: Band(score)}
}
