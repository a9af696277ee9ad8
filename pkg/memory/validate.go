package memory

import (
	"strings"
	"time"

	"github.com/cohesivestack/valgo"

	"github.com/ybryxcapital/agentcore/pkg/errors"
)

/*
ValidateEnvelope enforces the fixed write payload shape: timestamp, agent,
session id, type, and content must all be present and well-formed. A failed
validation rejects the write before any store is touched.
*/
func ValidateEnvelope(env Envelope) error {
	val := valgo.Is(
		valgo.String(env.Timestamp, "timestamp").Not().Blank().Passing(func(ts string) bool {
			_, err := time.Parse(time.RFC3339, ts)
			return err == nil
		}, "{{title}} must be an ISO-8601 timestamp"),
		valgo.String(env.Agent, "agent").Not().Blank(),
		valgo.String(env.SessionID, "session_id").Not().Blank(),
		valgo.String(env.Type, "type").Not().Blank(),
	)

	if !val.Valid() {
		for field, fieldErr := range val.Errors() {
			return errors.NewValidationError(field, strings.Join(fieldErr.Messages(), "; "))
		}
	}

	if env.Content == nil {
		return errors.NewValidationError("content", "content must be an object")
	}

	return nil
}
