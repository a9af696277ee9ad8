package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/ybryxcapital/agentcore/pkg/supervisor"
)

// SalesAgent is the conversational front door. It keeps the dialogue moving,
// leans on beliefs for continuity, and fires the prequalification trigger
// when the user signals buying intent.
type SalesAgent struct {
	name string
}

func NewSalesAgent() *SalesAgent {
	return &SalesAgent{name: "Alex"}
}

func (a *SalesAgent) Name() string { return "sales" }

var intentKeywords = []string{
	"prequalif", "apply", "get started", "ready to", "sign up",
	"move forward", "proceed", "interested in leasing",
}

func (a *SalesAgent) Execute(ctx context.Context, input supervisor.Input) supervisor.Output {
	text := strings.ToLower(input.Text)

	for _, keyword := range intentKeywords {
		if strings.Contains(text, keyword) {
			return supervisor.Output{
				ResponseText: "Great, let's get you prequalified. I'll need your annual revenue range, how long you've been in business, and a rough sense of your credit rating.",
				TriggerFired: true,
				StateDelta:   map[string]any{"intent": "prequalification"},
			}
		}
	}

	if greeting := a.greet(text, input); greeting != "" {
		return supervisor.Output{ResponseText: greeting}
	}

	return supervisor.Output{
		ResponseText: fmt.Sprintf(
			"I'm %s from YBryx Capital. We lease warehouse and delivery robots with flexible terms. Are you looking at automating a specific workflow, or exploring options?", a.name),
	}
}

func (a *SalesAgent) greet(text string, input supervisor.Input) string {
	greetings := []string{"hi", "hello", "hey", "good morning", "good afternoon"}

	greeted := false
	for _, greeting := range greetings {
		if strings.HasPrefix(text, greeting) {
			greeted = true
			break
		}
	}
	if !greeted {
		return ""
	}

	if len(input.Memory.Beliefs) > 0 {
		return fmt.Sprintf(
			"Welcome back! I'm %s. Last time I noted that you %s. Want to pick up where we left off?",
			a.name, input.Memory.Beliefs[0].Statement)
	}

	return fmt.Sprintf(
		"Hi, I'm %s from YBryx Capital. I help businesses lease robotics without the upfront capital. What kind of operation are you running?", a.name)
}
