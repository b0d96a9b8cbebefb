package question

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const (
	DefaultGeminiModel = "gemini-2.5-flash"
	maxToolRounds      = 3
)

// contentGenerator is the slice of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini generates and curates questions with the Gemini API.
type Gemini struct {
	models contentGenerator
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return newGemini(client.Models, model), nil
}

func newGemini(models contentGenerator, model string) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{models: models, model: model}
}

func (g *Gemini) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	resp, err := g.models.GenerateContent(ctx, g.model,
		genai.Text(fmt.Sprintf(generatePrompt, req.GameName)),
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr[float32](1.0),
			ResponseMIMEType: "application/json",
			ResponseSchema: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"question": {Type: genai.TypeString, Description: "A philosophical question about the nature of gaming and its impact on life."},
				},
				Required: []string{"question"},
			},
		})
	if err != nil {
		return GenerateResult{}, fmt.Errorf("gemini generate: %w", err)
	}

	var out GenerateResult
	if err := decodeModelJSON(resp.Text(), &out); err != nil {
		if errors.Is(err, errEmptyModelText) {
			return GenerateResult{}, ErrEmptyQuestion
		}
		return GenerateResult{}, err
	}
	out.Question = strings.TrimSpace(out.Question)
	if out.Question == "" {
		return GenerateResult{}, ErrEmptyQuestion
	}
	return out, nil
}

// Curate asks the model to vet req.Question. The model may call the
// isGamingRelated tool, which is answered locally by IsGamingRelated.
func (g *Gemini) Curate(ctx context.Context, req CurateRequest) (CurateResult, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(curateSystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
		Tools:             []*genai.Tool{relevanceTool()},
	}
	contents := genai.Text(fmt.Sprintf(curatePrompt, req.Question))

	for round := 0; round <= maxToolRounds; round++ {
		resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
		if err != nil {
			return CurateResult{}, fmt.Errorf("gemini curate: %w", err)
		}

		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			return parseCuration(resp.Text())
		}

		if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
			contents = append(contents, resp.Candidates[0].Content)
		}
		parts := make([]*genai.Part, 0, len(calls))
		for _, c := range calls {
			parts = append(parts, &genai.Part{FunctionResponse: answerToolCall(c, req.Question)})
		}
		contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
	}
	return CurateResult{}, fmt.Errorf("gemini curate: no answer after %d tool rounds", maxToolRounds)
}

// parseCuration decodes the final curation turn. The model rejects
// off-topic questions in prose, so text that is not JSON is a rejection.
func parseCuration(text string) (CurateResult, error) {
	var out CurateResult
	if err := decodeModelJSON(text, &out); err != nil {
		if errors.Is(err, errEmptyModelText) {
			return CurateResult{}, ErrEmptyCuration
		}
		return CurateResult{}, nil
	}
	out.CuratedQuestion = strings.TrimSpace(out.CuratedQuestion)
	return out, nil
}

func relevanceTool() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{{
			Name:        relevanceToolName,
			Description: "Checks whether a question is related to gaming behaviour.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"question": {Type: genai.TypeString, Description: "The question to check."},
				},
				Required: []string{"question"},
			},
		}},
	}
}

func answerToolCall(c *genai.FunctionCall, fallback string) *genai.FunctionResponse {
	if c.Name != relevanceToolName {
		return &genai.FunctionResponse{
			ID:       c.ID,
			Name:     c.Name,
			Response: map[string]any{"error": "unknown tool " + c.Name},
		}
	}
	q, _ := c.Args["question"].(string)
	if q == "" {
		q = fallback
	}
	return &genai.FunctionResponse{
		ID:       c.ID,
		Name:     c.Name,
		Response: map[string]any{"output": IsGamingRelated(q)},
	}
}

// decodeModelJSON strips markdown fences the model sometimes wraps around
// JSON output, then decodes it into v.
func decodeModelJSON(text string, v any) error {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return errEmptyModelText
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("decoding model output: %w", err)
	}
	return nil
}
