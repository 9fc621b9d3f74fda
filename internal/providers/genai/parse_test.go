package genai

import "testing"

func TestCleanModelJSON_StripsFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"leading and trailing prose", "Here you go:\n{\"a\":1}\nHope that helps!", `{"a":1}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := cleanModelJSON(c.in); got != c.want {
				t.Errorf("cleanModelJSON(%q) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}

func TestParseAnalysis_ValidJSON(t *testing.T) {
	raw := "```json\n{\"vendor\":\"Walmart\",\"date\":\"2026-08-01\",\"total_amount\":\"123.45\"}\n```"
	analysis, err := parseAnalysis(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.Vendor != "Walmart" || analysis.Date != "2026-08-01" || analysis.TotalAmount != "123.45" {
		t.Errorf("unexpected analysis: %+v", analysis)
	}
}

func TestParseAnalysis_InvalidJSONErrors(t *testing.T) {
	if _, err := parseAnalysis("not json at all"); err == nil {
		t.Fatal("expected an error for invalid JSON")
	}
}

func TestDocumentMIME_DetectsPDFMagicBytes(t *testing.T) {
	if got := documentMIME([]byte("%PDF-1.4 rest of file")); got != "application/pdf" {
		t.Errorf("expected application/pdf, got %s", got)
	}
	if got := documentMIME([]byte{0xFF, 0xD8, 0xFF}); got != "image/jpeg" {
		t.Errorf("expected image/jpeg default, got %s", got)
	}
	if got := documentMIME(nil); got != "image/jpeg" {
		t.Errorf("expected image/jpeg default for empty input, got %s", got)
	}
}
