package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/supervisor.txt
	supervisorRaw string

	//go:embed template/needs.txt
	needsRaw string

	//go:embed template/design.txt
	designRaw string

	//go:embed template/measure.txt
	measureRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Supervisor  string
	Needs       string
	Design      string
	Measurement string
}

// LoadPromptSet returns the embedded prompts, trimmed. Safe for concurrent
// use.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Supervisor:  strings.TrimSpace(supervisorRaw),
		Needs:       strings.TrimSpace(needsRaw),
		Design:      strings.TrimSpace(designRaw),
		Measurement: strings.TrimSpace(measureRaw),
	}
}
