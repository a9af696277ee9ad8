/*
Package agents holds the specialist crew: financing, dealer matching,
knowledge and sales. Each specialist is deterministic and self-contained so a
turn can be replayed from its execution log.
*/
package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/ybryxcapital/agentcore/pkg/supervisor"
)

// ScoringInput is the applicant profile the financing specialist scores.
// Range values follow the intake form buckets; anything unrecognized scores
// at the neutral midpoint.
type ScoringInput struct {
	AnnualRevenue string
	BusinessAge   string
	CreditRating  string
	Industry      string
}

// Assessment is the outcome of one prequalification scoring pass.
type Assessment struct {
	Score               int
	Status              string
	ApprovalProbability string
	MaxLeaseValue       int
	LeaseTermsMonths    []int
	InterestRateRange   string
	Breakdown           Breakdown
}

// Breakdown exposes the component scores behind an assessment.
type Breakdown struct {
	RevenueScore     int
	AgeScore         int
	CreditScore      int
	IndustryModifier float64
}

var revenueScores = map[string]int{
	"0-500k":  20,
	"500k-1m": 40,
	"1m-5m":   70,
	"5m-10m":  85,
	"10m+":    95,
}

var ageScores = map[string]int{
	"0-1": 30,
	"1-2": 50,
	"2-5": 75,
	"5+":  90,
}

var creditScores = map[string]int{
	"excellent": 95,
	"good":      80,
	"fair":      60,
	"poor":      30,
}

var industryModifiers = map[string]float64{
	"logistics":     1.0,
	"manufacturing": 1.0,
	"agriculture":   0.9,
	"delivery":      0.95,
	"construction":  0.85,
	"retail":        0.95,
}

const neutralScore = 50

func lookupScore(table map[string]int, key string) int {
	if score, ok := table[key]; ok {
		return score
	}
	return neutralScore
}

// Score computes the weighted prequalification score and the lease terms it
// unlocks. Revenue carries 40% of the base, age and credit 30% each; the
// industry modifier is applied last.
func Score(input ScoringInput) Assessment {
	breakdown := Breakdown{
		RevenueScore:     lookupScore(revenueScores, input.AnnualRevenue),
		AgeScore:         lookupScore(ageScores, input.BusinessAge),
		CreditScore:      lookupScore(creditScores, input.CreditRating),
		IndustryModifier: 1.0,
	}

	if modifier, ok := industryModifiers[input.Industry]; ok {
		breakdown.IndustryModifier = modifier
	}

	base := float64(breakdown.RevenueScore)*0.4 +
		float64(breakdown.AgeScore)*0.3 +
		float64(breakdown.CreditScore)*0.3

	assessment := Assessment{
		Score:     int(base * breakdown.IndustryModifier),
		Breakdown: breakdown,
	}

	switch {
	case assessment.Score >= 70:
		assessment.Status = "approved"
		assessment.ApprovalProbability = "high"
		assessment.MaxLeaseValue = 500000
		assessment.LeaseTermsMonths = []int{24, 36, 48}
		assessment.InterestRateRange = "5-7%"
	case assessment.Score >= 50:
		assessment.Status = "needs_review"
		assessment.ApprovalProbability = "medium"
		assessment.MaxLeaseValue = 250000
		assessment.LeaseTermsMonths = []int{24, 36}
		assessment.InterestRateRange = "8-12%"
	default:
		assessment.Status = "declined"
		assessment.ApprovalProbability = "low"
		assessment.MaxLeaseValue = 50000
		assessment.LeaseTermsMonths = []int{12, 24}
		assessment.InterestRateRange = "13-18%"
	}

	return assessment
}

// Compliance is the result of applying risk rules to a scored application.
type Compliance struct {
	Status          string
	Issues          []string
	Warnings        []string
	RequiredActions []string
}

// ValidateRisk applies the underwriting rules to a scored application.
func ValidateRisk(score int, equipmentValue float64, industry string) Compliance {
	var compliance Compliance

	if score < 40 {
		compliance.Issues = append(compliance.Issues, "financial score below minimum threshold (40)")
		compliance.RequiredActions = append(compliance.RequiredActions, "manual underwriting review required")
	}

	if equipmentValue > 300000 {
		compliance.Warnings = append(compliance.Warnings, "high value equipment requires additional documentation")
		compliance.RequiredActions = append(compliance.RequiredActions, "submit audited financial statements")
	}

	if industry == "construction" {
		compliance.Warnings = append(compliance.Warnings,
			fmt.Sprintf("industry %q requires enhanced due diligence", industry))
		compliance.RequiredActions = append(compliance.RequiredActions, "provide industry-specific references")
	}

	if equipmentValue > float64(score)*5000 {
		compliance.Issues = append(compliance.Issues, "equipment value exceeds recommended limit for financial score")
		compliance.RequiredActions = append(compliance.RequiredActions, "consider reducing equipment value or adding a co-signer")
	}

	switch {
	case len(compliance.Issues) > 0:
		compliance.Status = "failed"
	case len(compliance.Warnings) > 0:
		compliance.Status = "conditional"
	default:
		compliance.Status = "passed"
	}

	return compliance
}

// FinancingAgent scores lease prequalifications from the structured facts the
// conversation has gathered so far.
type FinancingAgent struct{}

func NewFinancingAgent() *FinancingAgent { return &FinancingAgent{} }

func (a *FinancingAgent) Name() string { return "financing" }

func (a *FinancingAgent) Execute(ctx context.Context, input supervisor.Input) supervisor.Output {
	scoring := ScoringInput{
		AnnualRevenue: fact(input.Facts, "annual_revenue"),
		BusinessAge:   fact(input.Facts, "business_age"),
		CreditRating:  fact(input.Facts, "credit_rating"),
		Industry:      fact(input.Facts, "industry"),
	}

	assessment := Score(scoring)

	delta := map[string]any{
		"prequalification_score":  assessment.Score,
		"prequalification_status": assessment.Status,
		"max_lease_value":         assessment.MaxLeaseValue,
	}

	response := a.describe(assessment)

	if value, ok := input.Facts["equipment_value"].(float64); ok {
		compliance := ValidateRisk(assessment.Score, value, scoring.Industry)
		delta["compliance_status"] = compliance.Status
		if compliance.Status != "passed" {
			response += " Note: " + strings.Join(compliance.RequiredActions, "; ") + "."
		}
	}

	return supervisor.Output{
		ResponseText: response,
		StateDelta:   delta,
	}
}

func (a *FinancingAgent) describe(assessment Assessment) string {
	terms := make([]string, len(assessment.LeaseTermsMonths))
	for i, months := range assessment.LeaseTermsMonths {
		terms[i] = fmt.Sprintf("%d", months)
	}

	switch assessment.Status {
	case "approved":
		return fmt.Sprintf(
			"Good news: you prequalify with a score of %d. You can lease equipment up to $%d, with %s month terms at %s interest.",
			assessment.Score, assessment.MaxLeaseValue, strings.Join(terms, "/"), assessment.InterestRateRange)
	case "needs_review":
		return fmt.Sprintf(
			"Your application scored %d, which needs a manual review. Pending approval, you could lease up to $%d on %s month terms at %s interest.",
			assessment.Score, assessment.MaxLeaseValue, strings.Join(terms, "/"), assessment.InterestRateRange)
	default:
		return fmt.Sprintf(
			"Based on your profile (score %d) we can't approve a standard lease right now, but a starter lease up to $%d on %s month terms may still be an option.",
			assessment.Score, assessment.MaxLeaseValue, strings.Join(terms, "/"))
	}
}

func fact(facts map[string]any, key string) string {
	if facts == nil {
		return ""
	}
	value, _ := facts[key].(string)
	return value
}
