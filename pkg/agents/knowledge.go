package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/ybryxcapital/agentcore/pkg/supervisor"
)

// Robot is one catalog entry.
type Robot struct {
	Name             string
	Category         string
	Description      string
	UseCases         []string
	PayloadKg        int
	LeaseRateMonthly int
	Active           bool
}

// Catalog is an in-memory robot equipment index.
type Catalog struct {
	robots []Robot
}

func NewCatalog(robots []Robot) *Catalog {
	return &Catalog{robots: robots}
}

// Search matches active robots by name, category, description or use case.
func (c *Catalog) Search(query string, max int) []Robot {
	if max <= 0 {
		return nil
	}

	needle := strings.ToLower(query)
	var matches []Robot

	for _, robot := range c.robots {
		if !robot.Active {
			continue
		}
		if needle != "" && !robotMatches(robot, needle) {
			continue
		}
		matches = append(matches, robot)
		if len(matches) == max {
			break
		}
	}

	return matches
}

func robotMatches(robot Robot, needle string) bool {
	if strings.Contains(strings.ToLower(robot.Name), needle) ||
		strings.Contains(strings.ToLower(robot.Category), needle) ||
		strings.Contains(strings.ToLower(robot.Description), needle) {
		return true
	}

	for _, useCase := range robot.UseCases {
		if strings.Contains(strings.ToLower(useCase), needle) {
			return true
		}
	}

	return false
}

// KnowledgeAgent answers product questions from the equipment catalog,
// leaning on recalled memories for continuity.
type KnowledgeAgent struct {
	catalog *Catalog
	maxHits int
}

func NewKnowledgeAgent(catalog *Catalog) *KnowledgeAgent {
	return &KnowledgeAgent{catalog: catalog, maxHits: 3}
}

func (a *KnowledgeAgent) Name() string { return "knowledge" }

func (a *KnowledgeAgent) Execute(ctx context.Context, input supervisor.Input) supervisor.Output {
	matches := a.searchByWords(input.Text)

	if len(matches) == 0 {
		return supervisor.Output{
			ResponseText: "I couldn't find that in our catalog. We lease AMRs, AGVs, picking arms and inspection drones. Could you tell me more about your use case?",
		}
	}

	lines := make([]string, len(matches))
	for i, robot := range matches {
		lines[i] = fmt.Sprintf("%s (%s): %s. Payload %dkg, from $%d/month",
			robot.Name, robot.Category, robot.Description, robot.PayloadKg, robot.LeaseRateMonthly)
	}

	response := strings.Join(lines, ". ")

	if len(input.Memory.RetrievedMemories) > 0 {
		response += ". Happy to compare these against what we discussed earlier."
	}

	return supervisor.Output{
		ResponseText: response,
		StateDelta:   map[string]any{"catalog_matches": len(matches)},
	}
}

// searchByWords tries the whole question first, then individual words, so
// "what is the AMR-300" still finds the model by its token.
func (a *KnowledgeAgent) searchByWords(text string) []Robot {
	if matches := a.catalog.Search(text, a.maxHits); len(matches) > 0 {
		return matches
	}

	for _, word := range strings.Fields(text) {
		word = strings.Trim(word, "?,.!")
		if len(word) < 3 {
			continue
		}
		if matches := a.catalog.Search(word, a.maxHits); len(matches) > 0 {
			return matches
		}
	}

	return nil
}
