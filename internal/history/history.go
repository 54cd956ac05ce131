// Package history encodes prior chat turns for transmission to the coach
// endpoint. Assistant turns are re-serialized with their citations and
// suggested action so later turns can see what was cited before.
package history

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rcliao/coach-context/internal/model"
)

// DefaultLimit is the number of most recent messages transmitted.
const DefaultLimit = 10

// Role values carried on the wire.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one transmitted history entry.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AssistantPayload is the structured content of an assistant turn.
type AssistantPayload struct {
	ReplyText       string   `json:"replyText"`
	Citations       []string `json:"citations"`
	SuggestedAction *string  `json:"suggestedAction"`
}

// Encoder turns stored messages into wire turns.
type Encoder struct {
	limit   int
	marshal func(v any) ([]byte, error)
	logger  *zap.Logger
}

// NewEncoder creates an encoder that keeps the last limit messages.
func NewEncoder(limit int, logger *zap.Logger) *Encoder {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Encoder{limit: limit, marshal: json.Marshal, logger: logger}
}

// Encode returns the bounded, ordered turn sequence for msgs. Errored
// messages never reached the endpoint and are skipped.
func (e *Encoder) Encode(msgs []model.ChatMessage) []Turn {
	kept := make([]model.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if !m.IsError {
			kept = append(kept, m)
		}
	}
	if len(kept) > e.limit {
		kept = kept[len(kept)-e.limit:]
	}

	turns := make([]Turn, 0, len(kept))
	for _, m := range kept {
		switch m.Sender {
		case model.SenderAssistant:
			turns = append(turns, Turn{Role: RoleAssistant, Content: e.assistantContent(m)})
		default:
			turns = append(turns, Turn{Role: RoleUser, Content: m.Content})
		}
	}
	return turns
}

func (e *Encoder) assistantContent(m model.ChatMessage) string {
	payload := AssistantPayload{ReplyText: m.Content, Citations: m.Citations}
	if payload.Citations == nil {
		payload.Citations = []string{}
	}
	if m.SuggestedAction != nil {
		a := string(*m.SuggestedAction)
		payload.SuggestedAction = &a
	}
	b, err := e.marshal(payload)
	if err != nil {
		e.logger.Warn("assistant turn re-encode failed, sending plain reply",
			zap.String("message_id", m.ID), zap.Error(err))
		return fallback(m.Content)
	}
	return string(b)
}

var escaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)

// fallback wraps text with minimal escaping, empty citations and no action.
func fallback(text string) string {
	return `{"replyText":"` + escaper.Replace(text) + `","citations":[],"suggestedAction":null}`
}

// DecodeAssistant parses the content of an encoded assistant turn.
func DecodeAssistant(content string) (AssistantPayload, error) {
	var p AssistantPayload
	if err := json.Unmarshal([]byte(content), &p); err != nil {
		return p, fmt.Errorf("decode assistant turn: %w", err)
	}
	if p.Citations == nil {
		p.Citations = []string{}
	}
	return p, nil
}
