package genai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/numa-app/numa-core/internal/fim"
)

// cleanModelJSON strips a ```json ... ``` or ``` ... ``` wrapper and any
// leading/trailing prose around a JSON object, mirroring the cleanup the
// original statement parser applied to model output that ignored the
// "no markdown fences" instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = s[start : end+1]
		}
	}
	return strings.TrimSpace(s)
}

type documentAnalysisWire struct {
	Vendor      string `json:"vendor"`
	Date        string `json:"date"`
	TotalAmount string `json:"total_amount"`
}

func parseAnalysis(raw string) (fim.DocumentAnalysis, error) {
	cleaned := cleanModelJSON(raw)
	var wire documentAnalysisWire
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return fim.DocumentAnalysis{}, fmt.Errorf("genai: parse document analysis: %w", err)
	}
	return fim.DocumentAnalysis{
		Vendor:      wire.Vendor,
		Date:        wire.Date,
		TotalAmount: wire.TotalAmount,
	}, nil
}
