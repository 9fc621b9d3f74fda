// Package genai adapts google.golang.org/genai into the narrow capability
// interfaces internal/fim declares (Transcriber, Reasoner, DocumentAnalyzer),
// following the client-construction and JSON-cleanup style of the original
// Barclays-statement parser.
package genai

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/numa-app/numa-core/internal/fim"
)

// DefaultReasoningModel mirrors the original statement parser's model
// choice; the same model handles classification, categorization, and
// paraphrase prompts since none of them need a larger context window.
const DefaultReasoningModel = "gemini-2.5-flash"

// DefaultTranscriptionModel is used for the audio-to-text call. Gemini's
// multimodal models accept inline audio parts directly, so transcription and
// reasoning share the same client.
const DefaultTranscriptionModel = "gemini-2.5-flash"

// Client wraps a *genai.Client, providing the three capability surfaces FIM
// depends on.
type Client struct {
	inner           *genai.Client
	reasoningModel  string
	transcribeModel string
}

// New builds a Client against the default v1 API version, the same
// HTTPOptions the original parser pinned.
func New(ctx context.Context) (*Client, error) {
	inner, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("genai: create client: %w", err)
	}
	return &Client{
		inner:           inner,
		reasoningModel:  DefaultReasoningModel,
		transcribeModel: DefaultTranscriptionModel,
	}, nil
}

// Complete implements fim.Reasoner.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	resp, err := c.inner.Models.GenerateContent(ctx, c.reasoningModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("genai: generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("genai: empty response from model")
	}
	return text, nil
}

// Transcribe implements fim.Transcriber, sending the audio as an inline
// blob alongside a language-tagged instruction.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeHint, language string) (string, error) {
	instruction := fmt.Sprintf("Transcribe this audio verbatim in %s. Return ONLY the transcript text, no commentary.", language)
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: instruction},
				{InlineData: &genai.Blob{MIMEType: mimeHint, Data: audio}},
			},
		},
	}
	resp, err := c.inner.Models.GenerateContent(ctx, c.transcribeModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("genai: transcribe: %w", err)
	}
	return resp.Text(), nil
}

// Analyze implements fim.DocumentAnalyzer over an inline PDF or image blob.
func (c *Client) Analyze(ctx context.Context, documentBytes []byte) (fim.DocumentAnalysis, error) {
	instruction := "Extract the merchant name, transaction date (YYYY-MM-DD), and total amount from this receipt or statement. " +
		"Respond with ONLY a JSON object, no markdown fences: {\"vendor\": string, \"date\": string, \"total_amount\": string}."
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: instruction},
				{InlineData: &genai.Blob{MIMEType: documentMIME(documentBytes), Data: documentBytes}},
			},
		},
	}
	resp, err := c.inner.Models.GenerateContent(ctx, c.reasoningModel, contents, nil)
	if err != nil {
		return fim.DocumentAnalysis{}, fmt.Errorf("genai: analyze document: %w", err)
	}
	return parseAnalysis(resp.Text())
}

// documentMIME guesses the mime type of the inline blob. Receipts analyzed
// by verify_with_document arrive either as PDFs or photographed images; the
// leading magic bytes distinguish the two cases the pipeline actually sees.
func documentMIME(b []byte) string {
	if len(b) >= 4 && string(b[:4]) == "%PDF" {
		return "application/pdf"
	}
	return "image/jpeg"
}
