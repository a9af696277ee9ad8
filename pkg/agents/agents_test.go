package agents

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/ybryxcapital/agentcore/pkg/memory"
	"github.com/ybryxcapital/agentcore/pkg/supervisor"
)

func TestFinancialScoring(t *testing.T) {
	Convey("Given applicant profiles across the score bands", t, func() {
		Convey("A strong logistics business is approved", func() {
			assessment := Score(ScoringInput{
				AnnualRevenue: "5m-10m",
				BusinessAge:   "5+",
				CreditRating:  "excellent",
				Industry:      "logistics",
			})

			So(assessment.Score, ShouldEqual, 89)
			So(assessment.Status, ShouldEqual, "approved")
			So(assessment.ApprovalProbability, ShouldEqual, "high")
			So(assessment.MaxLeaseValue, ShouldEqual, 500000)
			So(assessment.LeaseTermsMonths, ShouldResemble, []int{24, 36, 48})
			So(assessment.InterestRateRange, ShouldEqual, "5-7%")
		})

		Convey("A middling profile lands in needs_review", func() {
			assessment := Score(ScoringInput{
				AnnualRevenue: "1m-5m",
				BusinessAge:   "1-2",
				CreditRating:  "fair",
				Industry:      "retail",
			})

			So(assessment.Score, ShouldEqual, 57)
			So(assessment.Status, ShouldEqual, "needs_review")
			So(assessment.MaxLeaseValue, ShouldEqual, 250000)
		})

		Convey("A young business with poor credit is declined", func() {
			assessment := Score(ScoringInput{
				AnnualRevenue: "0-500k",
				BusinessAge:   "0-1",
				CreditRating:  "poor",
				Industry:      "construction",
			})

			So(assessment.Status, ShouldEqual, "declined")
			So(assessment.LeaseTermsMonths, ShouldResemble, []int{12, 24})
		})

		Convey("Unknown buckets score at the neutral midpoint", func() {
			assessment := Score(ScoringInput{
				AnnualRevenue: "mystery",
				BusinessAge:   "mystery",
				CreditRating:  "mystery",
				Industry:      "mystery",
			})

			So(assessment.Breakdown.RevenueScore, ShouldEqual, 50)
			So(assessment.Breakdown.AgeScore, ShouldEqual, 50)
			So(assessment.Breakdown.CreditScore, ShouldEqual, 50)
			So(assessment.Breakdown.IndustryModifier, ShouldEqual, 1.0)
			So(assessment.Score, ShouldEqual, 50)
		})

		Convey("The construction modifier drags a borderline score down", func() {
			logistics := Score(ScoringInput{AnnualRevenue: "1m-5m", BusinessAge: "2-5", CreditRating: "good", Industry: "logistics"})
			construction := Score(ScoringInput{AnnualRevenue: "1m-5m", BusinessAge: "2-5", CreditRating: "good", Industry: "construction"})

			So(construction.Score, ShouldBeLessThan, logistics.Score)
		})
	})
}

func TestRiskRules(t *testing.T) {
	Convey("Given scored applications under the risk rules", t, func() {
		Convey("A clean application passes", func() {
			compliance := ValidateRisk(85, 100000, "logistics")
			So(compliance.Status, ShouldEqual, "passed")
			So(compliance.Issues, ShouldBeEmpty)
		})

		Convey("High value equipment is conditional", func() {
			compliance := ValidateRisk(85, 350000, "logistics")
			So(compliance.Status, ShouldEqual, "conditional")
			So(compliance.RequiredActions, ShouldContain, "submit audited financial statements")
		})

		Convey("A weak score with expensive equipment fails", func() {
			compliance := ValidateRisk(35, 400000, "logistics")
			So(compliance.Status, ShouldEqual, "failed")
			So(len(compliance.Issues), ShouldBeGreaterThanOrEqualTo, 2)
		})

		Convey("Construction always needs due diligence", func() {
			compliance := ValidateRisk(90, 50000, "construction")
			So(compliance.Status, ShouldEqual, "conditional")
		})
	})
}

func TestFinancingAgent(t *testing.T) {
	Convey("Given the financing specialist", t, func() {
		agent := NewFinancingAgent()

		Convey("When executed with gathered facts", func() {
			output := agent.Execute(context.Background(), supervisor.Input{
				Text: "can I lease?",
				Facts: map[string]any{
					"annual_revenue": "5m-10m",
					"business_age":   "5+",
					"credit_rating":  "excellent",
					"industry":       "logistics",
				},
			})

			Convey("Then it answers with the score and emits a state delta", func() {
				So(output.Err, ShouldBeNil)
				So(output.ResponseText, ShouldContainSubstring, "89")
				So(output.StateDelta["prequalification_status"], ShouldEqual, "approved")
			})
		})

		Convey("When equipment value is known it also validates risk", func() {
			output := agent.Execute(context.Background(), supervisor.Input{
				Facts: map[string]any{
					"annual_revenue":  "5m-10m",
					"business_age":    "5+",
					"credit_rating":   "excellent",
					"industry":        "logistics",
					"equipment_value": 350000.0,
				},
			})

			So(output.StateDelta["compliance_status"], ShouldEqual, "conditional")
			So(output.ResponseText, ShouldContainSubstring, "audited financial statements")
		})
	})
}

func testDirectory() *Directory {
	return NewDirectory([]Dealer{
		{ID: "d1", Name: "Bay Area Robotics", Coverage: "SF Bay Area", Phone: "415-555-0101",
			ZipCodes: []string{"94016", "94105"}, Specialties: []string{"AMR installation", "maintenance"}, Active: true},
		{ID: "d2", Name: "Valley Automation", Coverage: "Central Valley", Phone: "559-555-0102",
			ZipCodes: []string{"93701"}, Specialties: []string{"AGV"}, Active: true},
		{ID: "d3", Name: "Retired Dealer", Coverage: "SF Bay Area", Phone: "415-555-0103",
			ZipCodes: []string{"94016"}, Specialties: []string{"AMR installation"}, Active: false},
	})
}

func TestDealerDirectory(t *testing.T) {
	Convey("Given the dealer directory", t, func() {
		directory := testDirectory()

		Convey("Matching is by ZIP prefix and skips inactive dealers", func() {
			matches := directory.Find("94110", "", 5)
			So(matches, ShouldHaveLength, 1)
			So(matches[0].Name, ShouldEqual, "Bay Area Robotics")
		})

		Convey("Specialty filtering narrows the match", func() {
			So(directory.Find("94110", "AMR", 5), ShouldHaveLength, 1)
			So(directory.Find("94110", "AGV", 5), ShouldBeEmpty)
		})

		Convey("A short or empty ZIP matches nothing", func() {
			So(directory.Find("94", "", 5), ShouldBeEmpty)
			So(directory.Find("", "", 5), ShouldBeEmpty)
		})
	})
}

func TestDealerAgent(t *testing.T) {
	Convey("Given the dealer matching specialist", t, func() {
		agent := NewDealerAgent(testDirectory())

		Convey("A message with a ZIP code gets dealer matches", func() {
			output := agent.Execute(context.Background(), supervisor.Input{
				Text: "Is there a dealer near 94105 who can install these?",
			})

			So(output.ResponseText, ShouldContainSubstring, "Bay Area Robotics")
			So(output.StateDelta["dealer_matches"], ShouldEqual, 1)
		})

		Convey("Without a ZIP code the agent asks for one", func() {
			output := agent.Execute(context.Background(), supervisor.Input{Text: "find me a dealer"})
			So(output.ResponseText, ShouldContainSubstring, "ZIP code")
		})

		Convey("An uncovered area gets the remote onboarding fallback", func() {
			output := agent.Execute(context.Background(), supervisor.Input{Text: "dealers near 10001?"})
			So(output.ResponseText, ShouldContainSubstring, "remote onboarding")
			So(output.StateDelta["dealer_matches"], ShouldEqual, 0)
		})
	})
}

func testCatalog() *Catalog {
	return NewCatalog([]Robot{
		{Name: "AMR-300", Category: "AMR", Description: "Autonomous mobile robot for pallet transport",
			UseCases: []string{"warehouse"}, PayloadKg: 300, LeaseRateMonthly: 1200, Active: true},
		{Name: "PickArm-7", Category: "Picking Arm", Description: "High speed bin picking arm",
			UseCases: []string{"fulfillment"}, PayloadKg: 12, LeaseRateMonthly: 900, Active: true},
		{Name: "OldBot", Category: "AGV", Description: "Discontinued guided vehicle",
			UseCases: []string{"warehouse"}, PayloadKg: 500, LeaseRateMonthly: 700, Active: false},
	})
}

func TestKnowledgeAgent(t *testing.T) {
	Convey("Given the knowledge specialist", t, func() {
		agent := NewKnowledgeAgent(testCatalog())

		Convey("A model question finds the catalog entry by token", func() {
			output := agent.Execute(context.Background(), supervisor.Input{
				Text: "What is the payload of the AMR-300?",
			})

			So(output.ResponseText, ShouldContainSubstring, "AMR-300")
			So(output.ResponseText, ShouldContainSubstring, "300kg")
		})

		Convey("Inactive robots never appear", func() {
			output := agent.Execute(context.Background(), supervisor.Input{Text: "tell me about OldBot"})
			So(output.ResponseText, ShouldNotContainSubstring, "OldBot")
		})

		Convey("Prior memories are acknowledged in the answer", func() {
			output := agent.Execute(context.Background(), supervisor.Input{
				Text: "warehouse options?",
				Memory: memory.Context{
					RetrievedMemories: []memory.Record{{Content: "asked about AMRs last week"}},
				},
			})

			So(output.ResponseText, ShouldContainSubstring, "discussed earlier")
		})
	})
}

func TestSalesAgent(t *testing.T) {
	Convey("Given the sales specialist", t, func() {
		agent := NewSalesAgent()

		Convey("Buying intent fires the prequalification trigger", func() {
			output := agent.Execute(context.Background(), supervisor.Input{
				Text: "I'm ready to get started, how do I prequalify?",
			})

			So(output.TriggerFired, ShouldBeTrue)
			So(output.StateDelta["intent"], ShouldEqual, "prequalification")
		})

		Convey("A plain greeting gets a plain welcome", func() {
			output := agent.Execute(context.Background(), supervisor.Input{Text: "Hi there"})
			So(output.TriggerFired, ShouldBeFalse)
			So(output.ResponseText, ShouldContainSubstring, "Alex")
		})

		Convey("A returning user with beliefs is recognized", func() {
			output := agent.Execute(context.Background(), supervisor.Input{
				Text: "hello again",
				Memory: memory.Context{
					Beliefs: []memory.Belief{{Statement: "run a cold chain warehouse", Confidence: 0.9}},
				},
			})

			So(output.ResponseText, ShouldContainSubstring, "cold chain warehouse")
		})
	})
}
