package qdrant

import (
	"time"

	"github.com/ybryxcapital/agentcore/pkg/memory"
)

// payloadFromRecord flattens a record into the point payload. CreatedAt is
// stored as unix seconds so decay can use a range filter.
func payloadFromRecord(record memory.Record) map[string]any {
	payload := map[string]any{
		"namespace":  record.Namespace,
		"content":    record.Content,
		"kind":       string(record.Kind),
		"created_at": record.CreatedAt.Unix(),
	}

	if record.SessionID != "" {
		payload["session_id"] = record.SessionID
	}

	if len(record.Tags) > 0 {
		payload["tags"] = record.Tags
	}

	return payload
}

func recordFromPayload(id string, payload map[string]any) memory.Record {
	record := memory.Record{
		ID:        id,
		Namespace: str(payload["namespace"]),
		SessionID: str(payload["session_id"]),
		Content:   str(payload["content"]),
		Kind:      memory.Kind(str(payload["kind"])),
	}

	// JSON numbers decode as float64.
	if unix, ok := payload["created_at"].(float64); ok {
		record.CreatedAt = time.Unix(int64(unix), 0).UTC()
	}

	if raw, ok := payload["tags"].([]any); ok {
		for _, tag := range raw {
			record.Tags = append(record.Tags, str(tag))
		}
	}

	return record
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
