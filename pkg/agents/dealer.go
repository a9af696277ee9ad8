package agents

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ybryxcapital/agentcore/pkg/supervisor"
)

// Dealer is one authorized dealer in the directory.
type Dealer struct {
	ID          string
	Name        string
	Coverage    string
	Address     string
	Phone       string
	Email       string
	ZipCodes    []string
	Specialties []string
	Active      bool
}

// Directory is an in-memory dealer index.
type Directory struct {
	dealers []Dealer
}

func NewDirectory(dealers []Dealer) *Directory {
	return &Directory{dealers: dealers}
}

// Find matches active dealers whose coverage shares the query's three digit
// ZIP prefix, optionally filtered by specialty.
func (d *Directory) Find(zipCode, specialty string, max int) []Dealer {
	if len(zipCode) < 3 || max <= 0 {
		return nil
	}

	prefix := zipCode[:3]
	var matches []Dealer

	for _, dealer := range d.dealers {
		if !dealer.Active {
			continue
		}

		covered := false
		for _, zip := range dealer.ZipCodes {
			if strings.HasPrefix(zip, prefix) {
				covered = true
				break
			}
		}
		if !covered {
			continue
		}

		if specialty != "" && !hasSpecialty(dealer, specialty) {
			continue
		}

		matches = append(matches, dealer)
		if len(matches) == max {
			break
		}
	}

	return matches
}

func hasSpecialty(dealer Dealer, specialty string) bool {
	needle := strings.ToLower(specialty)
	for _, have := range dealer.Specialties {
		if strings.Contains(strings.ToLower(have), needle) {
			return true
		}
	}
	return false
}

var zipPattern = regexp.MustCompile(`\b\d{5}\b`)

// DealerAgent finds authorized dealers near the user.
type DealerAgent struct {
	directory *Directory
	maxMatch  int
}

func NewDealerAgent(directory *Directory) *DealerAgent {
	return &DealerAgent{directory: directory, maxMatch: 5}
}

func (a *DealerAgent) Name() string { return "dealer_matching" }

func (a *DealerAgent) Execute(ctx context.Context, input supervisor.Input) supervisor.Output {
	zipCode := zipPattern.FindString(input.Text)
	if zipCode == "" {
		zipCode = fact(input.Facts, "zip_code")
	}

	if zipCode == "" {
		return supervisor.Output{
			ResponseText: "I can find an authorized dealer for you. What's your ZIP code?",
		}
	}

	specialty := fact(input.Facts, "specialty")
	matches := a.directory.Find(zipCode, specialty, a.maxMatch)

	if len(matches) == 0 {
		return supervisor.Output{
			ResponseText: fmt.Sprintf(
				"I couldn't find an authorized dealer covering %s yet. Our team can arrange remote onboarding and shipped installation instead.", zipCode),
			StateDelta: map[string]any{"zip_code": zipCode, "dealer_matches": 0},
		}
	}

	names := make([]string, len(matches))
	for i, dealer := range matches {
		names[i] = fmt.Sprintf("%s (%s, %s)", dealer.Name, dealer.Coverage, dealer.Phone)
	}

	return supervisor.Output{
		ResponseText: fmt.Sprintf("Here are authorized dealers near %s: %s.", zipCode, strings.Join(names, "; ")),
		StateDelta: map[string]any{
			"zip_code":       zipCode,
			"dealer_matches": len(matches),
			"nearest_dealer": matches[0].Name,
		},
	}
}
