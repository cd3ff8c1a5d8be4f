package matching

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"pharmacy-reconciliation-backend/internal/models"
)

// Component weights. They sum to 1.0 and each is gated independently,
// so a candidate either earns the full weight or nothing for it.
const (
	WeightAmount      = 0.40
	WeightDate        = 0.20
	WeightReference   = 0.30
	WeightDescription = 0.10

	// MatchThreshold is the minimum total score for a candidate to count
	// as a match at all.
	MatchThreshold = 0.5

	// AutoApproveScore is the total score at or above which the sweep
	// approves a match without human review.
	AutoApproveScore = 0.9
)

// amountTolerance is one currency unit cent: amounts closer than this
// are considered equal.
var amountTolerance = decimal.NewFromFloat(0.01)

// descriptionHints are the substrings that mark a bank description as
// payment-like.
var descriptionHints = []string{"payment", "invoice", "receipt"}

// Match is the outcome of scoring one bank transaction against the
// candidate pool.
type Match struct {
	Payment    models.PaymentTransaction
	Score      float64
	MatchType  string
	Components map[string]float64
}

// FindBestMatch scores every candidate against the bank transaction and
// returns the strictly highest scorer, or nil if none reaches
// MatchThreshold. Ties keep the first-seen candidate.
func FindBestMatch(bankTx models.BankTransaction, candidates []models.PaymentTransaction) *Match {
	var best *Match
	for _, p := range candidates {
		score, matchType, components := scoreCandidate(bankTx, p)
		if score < MatchThreshold {
			continue
		}
		if best == nil || score > best.Score {
			best = &Match{
				Payment:    p,
				Score:      score,
				MatchType:  matchType,
				Components: components,
			}
		}
	}
	return best
}

func scoreCandidate(bankTx models.BankTransaction, p models.PaymentTransaction) (float64, string, map[string]float64) {
	components := map[string]float64{
		"amount":      0,
		"date":        0,
		"reference":   0,
		"description": 0,
	}
	var tags []string
	var score float64

	if amountsMatch(bankTx.Amount, p.Amount) {
		components["amount"] = WeightAmount
		score += WeightAmount
		tags = append(tags, "amount")
	}

	if w := dateProximity(bankTx, p); w > 0 {
		components["date"] = w
		score += w
		tags = append(tags, "date")
	}

	if referencesMatch(bankTx.Reference, p.Reference) {
		components["reference"] = WeightReference
		score += WeightReference
		tags = append(tags, "reference")
	}

	if descriptionHint(bankTx.Description) {
		components["description"] = WeightDescription
		score += WeightDescription
		tags = append(tags, "description")
	}

	return score, strings.Join(tags, ";"), components
}

func amountsMatch(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(amountTolerance)
}

func dateProximity(bankTx models.BankTransaction, p models.PaymentTransaction) float64 {
	days := math.Abs(bankTx.TransactionDate.Sub(p.TransactionDate).Hours() / 24)
	switch {
	case days <= 1:
		return WeightDate
	case days <= 7:
		return WeightDate / 2
	default:
		return 0
	}
}

func referencesMatch(bankRef, paymentRef string) bool {
	b := strings.TrimSpace(bankRef)
	p := strings.TrimSpace(paymentRef)
	if b == "" || p == "" {
		return false
	}
	return strings.Contains(b, p) || strings.Contains(p, b)
}

func descriptionHint(description string) bool {
	d := strings.ToLower(description)
	for _, hint := range descriptionHints {
		if strings.Contains(d, hint) {
			return true
		}
	}
	return false
}
