package question

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	responses []*genai.GenerateContentResponse
	err       error
	calls     [][]*genai.Content
	configs   []*genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, _ string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls = append(f.calls, contents)
	f.configs = append(f.configs, config)
	if f.err != nil {
		return nil, f.err
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(text, genai.RoleModel)}},
	}
}

func toolCallResponse(args map[string]any) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromParts([]*genai.Part{{
				FunctionCall: &genai.FunctionCall{ID: "call-1", Name: relevanceToolName, Args: args},
			}}, genai.RoleModel),
		}},
	}
}

func TestGeminiGenerate(t *testing.T) {
	fm := &fakeModels{responses: []*genai.GenerateContentResponse{
		textResponse("```json\n{\"question\": \"If the points ceased to exist, would you still play?\"}\n```"),
	}}
	g := newGemini(fm, "")

	res, err := g.Generate(context.Background(), GenerateRequest{GameName: "Philosopher's Click"})
	require.NoError(t, err)
	assert.Equal(t, "If the points ceased to exist, would you still play?", res.Question)
	require.Len(t, fm.configs, 1)
	assert.Equal(t, "application/json", fm.configs[0].ResponseMIMEType)
}

func TestGeminiGenerateEmpty(t *testing.T) {
	fm := &fakeModels{responses: []*genai.GenerateContentResponse{textResponse(`{"question": "  "}`)}}
	g := newGemini(fm, "")

	_, err := g.Generate(context.Background(), GenerateRequest{GameName: "x"})
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestGeminiGenerateError(t *testing.T) {
	fm := &fakeModels{err: errors.New("quota exceeded")}
	g := newGemini(fm, "")

	_, err := g.Generate(context.Background(), GenerateRequest{GameName: "x"})
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestGeminiCurateWithToolCall(t *testing.T) {
	q := "If the points ceased to exist, would you still play?"
	fm := &fakeModels{responses: []*genai.GenerateContentResponse{
		toolCallResponse(map[string]any{"question": q}),
		textResponse(`{"curatedQuestion": "If the points ceased to exist, would you still play?", "isValid": true}`),
	}}
	g := newGemini(fm, "")

	res, err := g.Curate(context.Background(), CurateRequest{Question: q})
	require.NoError(t, err)
	assert.True(t, res.Accepted())
	assert.Equal(t, q, res.CuratedQuestion)

	require.Len(t, fm.calls, 2)
	// prompt, model tool call, tool response
	second := fm.calls[1]
	require.Len(t, second, 3)
	fr := second[2].Parts[0].FunctionResponse
	require.NotNil(t, fr)
	assert.Equal(t, relevanceToolName, fr.Name)
	assert.Equal(t, "call-1", fr.ID)
	assert.Equal(t, true, fr.Response["output"])
}

func TestGeminiCurateInvalid(t *testing.T) {
	fm := &fakeModels{responses: []*genai.GenerateContentResponse{
		toolCallResponse(map[string]any{"question": "Why is the sky blue?"}),
		textResponse(`{"curatedQuestion": "", "isValid": false}`),
	}}
	g := newGemini(fm, "")

	res, err := g.Curate(context.Background(), CurateRequest{Question: "Why is the sky blue?"})
	require.NoError(t, err)
	assert.False(t, res.Accepted())
	assert.Equal(t, false, fm.calls[1][2].Parts[0].FunctionResponse.Response["output"])
}

func TestGeminiCurateProseRejectionSkips(t *testing.T) {
	fm := &fakeModels{responses: []*genai.GenerateContentResponse{
		toolCallResponse(map[string]any{"question": "Why is the sky blue?"}),
		textResponse("Error: this question is not related to gaming."),
	}}
	g := newGemini(fm, "")

	res, err := g.Curate(context.Background(), CurateRequest{Question: "Why is the sky blue?"})
	require.NoError(t, err)
	assert.False(t, res.Accepted())
}

func TestGeminiCurateEmpty(t *testing.T) {
	g := newGemini(&fakeModels{responses: []*genai.GenerateContentResponse{textResponse("  ")}}, "")

	_, err := g.Curate(context.Background(), CurateRequest{Question: "play?"})
	assert.ErrorIs(t, err, ErrEmptyCuration)
	assert.NotErrorIs(t, err, ErrEmptyQuestion)
}

func TestGeminiCurateGivesUpAfterToolRounds(t *testing.T) {
	var responses []*genai.GenerateContentResponse
	for i := 0; i <= maxToolRounds; i++ {
		responses = append(responses, toolCallResponse(map[string]any{"question": "play?"}))
	}
	g := newGemini(&fakeModels{responses: responses}, "")

	_, err := g.Curate(context.Background(), CurateRequest{Question: "play?"})
	assert.ErrorContains(t, err, "tool rounds")
}

func TestAnswerToolCallUnknownTool(t *testing.T) {
	fr := answerToolCall(&genai.FunctionCall{Name: "weather"}, "q")
	assert.Contains(t, fr.Response, "error")
}

func TestDecodeModelJSON(t *testing.T) {
	var out CurateResult
	require.NoError(t, decodeModelJSON("```JSON\n{\"curatedQuestion\":\"a\",\"isValid\":true}```", &out))
	assert.Equal(t, CurateResult{CuratedQuestion: "a", IsValid: true}, out)

	assert.ErrorIs(t, decodeModelJSON("   ", &out), errEmptyModelText)
	assert.Error(t, decodeModelJSON("not json", &out))
}
