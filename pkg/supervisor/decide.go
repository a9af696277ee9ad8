package supervisor

import (
	"context"
	"strings"
)

/*
KeywordDecider routes on intent keywords in the user's message. It dispatches
exactly one specialist per turn: once an execution has produced output it
always answers Finish, so the loop terminates without burning iterations.
*/
type KeywordDecider struct{}

var (
	financingKeywords = []string{
		"financ", "lease", "loan", "credit", "qualif", "afford",
		"payment", "rate", "term", "revenue", "approval",
	}
	dealerKeywords = []string{
		"dealer", "vendor", "supplier", "install", "near me",
		"nearby", "zip", "location", "service center",
	}
	knowledgeKeywords = []string{
		"spec", "payload", "robot", "model", "how does", "what is",
		"compare", "battery", "warranty", "catalog",
	}
)

func (d KeywordDecider) Decide(ctx context.Context, state *State) Route {
	if state.LastOutput != nil {
		return Finish
	}

	text := strings.ToLower(state.Input)

	for _, keyword := range financingKeywords {
		if strings.Contains(text, keyword) {
			return Financing
		}
	}

	for _, keyword := range dealerKeywords {
		if strings.Contains(text, keyword) {
			return DealerMatching
		}
	}

	for _, keyword := range knowledgeKeywords {
		if strings.Contains(text, keyword) {
			return Knowledge
		}
	}

	return Sales
}
