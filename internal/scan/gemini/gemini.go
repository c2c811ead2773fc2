// Package gemini scans receipt images with the Gemini vision API.
package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	glang "google.golang.org/api/generativelanguage/v1beta"
	goption "google.golang.org/api/option"

	"mmm/internal/scan"
)

const defaultModel = "gemini-2.5-flash"

const slipPrompt = `Analyze this image of a receipt/slip.
Extract the following information:
1. Merchant Name (or 'Unknown' if not found)
2. Total Amount (number only)
3. Date (in YYYY-MM-DD format, use today if not found)
4. Category (Choose one: 'Food', 'Transport', 'Office', 'Utilities', 'Entertainment', 'Other')
5. List of items purchased (simplified)

Return JSON only, with keys: merchant, amount, date, category, items.`

type Client struct {
	svc   *glang.Service
	model string
}

var _ scan.SlipScanner = (*Client)(nil)

// New creates a Gemini client authenticated with an API key. An empty
// model selects the default.
func New(ctx context.Context, apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing Gemini API key")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}

	svc, err := glang.NewService(ctx, goption.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("generative language service: %w", err)
	}

	return &Client{svc: svc, model: model}, nil
}

// Scan sends the image and the extraction prompt to Gemini and parses the
// JSON reply.
func (c *Client) Scan(ctx context.Context, image []byte, mimeType string) (scan.Result, error) {
	if len(image) == 0 {
		return scan.Result{}, errors.New("empty image")
	}

	req := &glang.GenerateContentRequest{
		Contents: []*glang.Content{{
			Parts: []*glang.Part{
				{
					InlineData: &glang.Blob{
						Data:     base64.StdEncoding.EncodeToString(image),
						MimeType: mimeType,
					},
				},
				{Text: slipPrompt},
			},
		}},
		GenerationConfig: &glang.GenerationConfig{
			ResponseMimeType: "application/json",
		},
	}

	resp, err := c.svc.Models.GenerateContent("models/"+c.model, req).Context(ctx).Do()
	if err != nil {
		return scan.Result{}, fmt.Errorf("generate content: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return scan.Result{}, err
	}

	return parseScanResult(text)
}

func responseText(resp *glang.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no response from Gemini")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	if b.Len() == 0 {
		return "", errors.New("no response from Gemini")
	}
	return b.String(), nil
}
