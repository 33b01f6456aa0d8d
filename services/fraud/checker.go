package fraud

import (
	// Go Internal Packages
	"context"

	// Local Packages
	models "payflow/models"

	// External Packages
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Checker screens transactions before any gateway dispatch using static
// amount rules: amounts at or above the decline threshold are refused
// outright, amounts at or above the review threshold proceed flagged.
// A zero threshold disables its rule.
type Checker struct {
	logger           *zap.Logger
	reviewThreshold  decimal.Decimal
	declineThreshold decimal.Decimal
}

func NewChecker(reviewThreshold, declineThreshold decimal.Decimal, logger *zap.Logger) *Checker {
	return &Checker{
		logger:           logger,
		reviewThreshold:  reviewThreshold,
		declineThreshold: declineThreshold,
	}
}

func (c *Checker) Analyze(_ context.Context, tx *models.Transaction) (*models.FraudAssessment, error) {
	if !c.declineThreshold.IsZero() && tx.Amount.GreaterThanOrEqual(c.declineThreshold) {
		c.logger.Warn("transaction over decline threshold",
			zap.String("transaction_id", tx.ID),
			zap.String("amount", tx.Amount.String()))
		return &models.FraudAssessment{
			RiskScore:      0.95,
			RiskLevel:      "high",
			Recommendation: models.FraudDecline,
			Flags:          []string{"amount_over_decline_threshold"},
		}, nil
	}

	if !c.reviewThreshold.IsZero() && tx.Amount.GreaterThanOrEqual(c.reviewThreshold) {
		return &models.FraudAssessment{
			RiskScore:      0.6,
			RiskLevel:      "medium",
			Recommendation: models.FraudReview,
			Flags:          []string{"amount_over_review_threshold"},
		}, nil
	}

	return &models.FraudAssessment{
		RiskScore:      0.05,
		RiskLevel:      "low",
		Recommendation: models.FraudAllow,
	}, nil
}
