package gcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// ProseSystemPrompt frames every narrative request.
const ProseSystemPrompt = "You are drafting sections of a UK road traffic incident report for an insurance claim. Write in plain, factual British English in the first person of the reporting driver unless told otherwise. Never invent facts that are not in the supplied record. Return plain text paragraphs separated by blank lines, without headings or markdown."

// Prompts for each narrative section. The record summary is appended.
const (
	TranscriptionPrompt    = "Rewrite the driver's own account below as a clear personal statement. Keep every fact and the order of events."
	SummaryPrompt          = "Summarise the incident below in at most three short paragraphs covering where and when it happened, what happened and the consequences."
	ClosingStatementPrompt = "Write a short closing statement for the driver confirming the account below is true to the best of their knowledge. Mention the incident date and location."
	FinalReviewPrompt      = "Review the record below for consistency. List any gaps or contradictions a claims handler should follow up, or state that none were found."
)

// ErrRefusal is returned when the model declines to answer.
var ErrRefusal = errors.New("model refused the request")

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
}

// VertexClient holds the generative model used for report prose.
type VertexClient struct {
	ProseModel *genai.GenerativeModel
	baseClient *genai.Client
}

// NewVertexClient creates a new client holding the prose model.
func NewVertexClient(ctx context.Context, projectID, region string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	proseModel := baseClient.GenerativeModel("gemini-1.5-pro")
	proseModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(ProseSystemPrompt)},
	}
	proseModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "text/plain",
		Temperature:      genai.Ptr[float32](0.2),
	}

	return &VertexClient{
		ProseModel: proseModel,
		baseClient: baseClient,
	}, nil
}

// GenerateText sends instruction and record to the prose model and returns
// the trimmed text of the first candidate.
func (c *VertexClient) GenerateText(ctx context.Context, instruction, record string) (string, error) {
	resp, err := c.ProseModel.GenerateContent(ctx, genai.Text(instruction), genai.Text(record))
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	text := ExtractText(resp)
	if IsRefusal(text) {
		return "", ErrRefusal
	}
	return text, nil
}

// ExtractText joins the text parts of the first candidate and strips code fences.
func ExtractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	s := strings.TrimSpace(b.String())
	s = strings.TrimPrefix(s, "```text")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// IsRefusal reports whether s reads like a model refusal.
func IsRefusal(s string) bool {
	lower := strings.ToLower(s)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
