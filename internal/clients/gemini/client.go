// Package gemini provides a client for the Google Gemini API
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/cmansell/fairval/internal/common"
	"github.com/cmansell/fairval/internal/interfaces"
	"github.com/cmansell/fairval/internal/models"
)

const (
	DefaultModel = "gemini-3-flash-preview"
)

// Client implements the AssistantClient interface
type Client struct {
	client *genai.Client
	model  string
	logger *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithModel sets the model to use
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &Client{
		client: genaiClient,
		model:  DefaultModel,
		logger: common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// generate runs a single prompt through the configured model
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	c.logger.Debug().Str("model", c.model).Msg("Generating content")

	contents := genai.Text(prompt)
	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return extractTextFromResponse(result)
}

// extractTextFromResponse extracts text from a generate content response
func extractTextFromResponse(result *genai.GenerateContentResponse) (string, error) {
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	text := ""
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}

	return text, nil
}

// ExplainReport produces a plain-language summary of a valuation report.
func (c *Client) ExplainReport(ctx context.Context, report *models.ValuationReport) (string, error) {
	prompt := buildExplainPrompt(report)
	return c.generate(ctx, prompt)
}

// AnswerQuestion answers a free-form question grounded in a report.
func (c *Client) AnswerQuestion(ctx context.Context, report *models.ValuationReport, question string) (string, error) {
	var sb strings.Builder
	sb.WriteString(buildReportContext(report))
	sb.WriteString("\nAnswer the following question using only the valuation data above. ")
	sb.WriteString("If the data does not support an answer, say so.\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n")

	return c.generate(ctx, sb.String())
}

func buildExplainPrompt(report *models.ValuationReport) string {
	var sb strings.Builder
	sb.WriteString(buildReportContext(report))
	sb.WriteString("\nSummarize this valuation run for an investor in plain language. ")
	sb.WriteString("Cover which securities look undervalued or overvalued and why, mention the ")
	sb.WriteString("discount-rate provenance where it weakens confidence, and note any failures. ")
	sb.WriteString("Do not give financial advice; describe what the model output says.\n")
	return sb.String()
}

// buildReportContext flattens a report into a compact text block the model
// can ground its answer in.
func buildReportContext(report *models.ValuationReport) string {
	var sb strings.Builder
	sb.WriteString("Discounted cash flow valuation run")
	if report.Portfolio != "" {
		fmt.Fprintf(&sb, " for portfolio %q", report.Portfolio)
	}
	fmt.Fprintf(&sb, " (%d securities):\n\n", len(report.Entries))

	for _, entry := range report.Entries {
		if entry.Failed() {
			errText := entry.ErrText
			if errText == "" && entry.Err != nil {
				errText = entry.Err.Error()
			}
			fmt.Fprintf(&sb, "- %s: FAILED (%s)\n", entry.Security.Symbol, errText)
			continue
		}

		r := entry.Result
		fmt.Fprintf(&sb,
			"- %s (%s): price %.2f, intrinsic value %.2f per share (%+.1f%%), IRR %.1f%%, verdict %s, discount rate %.2f%% (%s, %s), confidence %s\n",
			r.Security.Symbol, r.Name,
			r.CurrentPrice, r.IntrinsicValue, r.UpsideDownside*100,
			r.IRR*100, r.Verdict,
			r.Rate.WACC*100, r.Rate.Source, r.Rate.Industry,
			r.Confidence)
	}

	return sb.String()
}

// Ensure Client implements AssistantClient
var _ interfaces.AssistantClient = (*Client)(nil)
