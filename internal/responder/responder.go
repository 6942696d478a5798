// Package responder generates the free-form conversational half of each
// spoken turn. It is a black box to the state machine: it returns a string
// or fails, and a failure never decides the call's fate.
package responder

import (
	"context"
	"encoding/json"
	"fmt"

	"hospital-voice-agent/internal/dialogue"
)

// Responder produces a natural-language reply to relay to the caller, given
// the pre-transition stage and collected data as context.
type Responder interface {
	Reply(ctx context.Context, stage dialogue.Stage, fields dialogue.Fields, transcript string) (string, error)
}

const systemPromptTemplate = `You are an AI assistant for a hospital appointment booking system. Your role is to:

1. Greet patients warmly and professionally
2. Collect their name if not provided
3. Ask for their preferred doctor
4. Ask for their preferred appointment date and time
5. Confirm all details back to them
6. Be patient and understanding if they need to repeat information
7. Handle unclear responses by asking for clarification
8. Keep responses brief and conversational

Current conversation stage: %s
Collected data so far: %s

Based on the patient's response, provide a natural, helpful response and indicate what information you still need to collect.
`

func systemPrompt(stage dialogue.Stage, fields dialogue.Fields) string {
	data, err := json.Marshal(fields)
	if err != nil {
		data = []byte("{}")
	}
	return fmt.Sprintf(systemPromptTemplate, stage, data)
}
