package llm

import (
	"context"
	"errors"
	"testing"

	"resume-analyzer/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type mockModels struct {
	mock.Mock
}

func (m *mockModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	args := m.Called(ctx, model, contents, cfg)
	if resp := args.Get(0); resp != nil {
		return resp.(*genai.GenerateContentResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func analysisConfig() config.AnalysisConfig {
	return config.AnalysisConfig{
		TextModel:       "gemini-1.5-flash",
		VisionModel:     "gemini-1.5-pro",
		Temperature:     0.1,
		TopP:            0.8,
		TopK:            40,
		MaxOutputTokens: 4096,
	}
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: genai.RoleModel}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func TestGenerationConfig(t *testing.T) {
	gc := GenerationConfig(analysisConfig())
	assert.InDelta(t, 0.1, *gc.Temperature, 1e-6)
	assert.InDelta(t, 0.8, *gc.TopP, 1e-6)
	assert.InDelta(t, 40, *gc.TopK, 1e-6)
	assert.Equal(t, int32(4096), gc.MaxOutputTokens)
	require.Len(t, gc.SafetySettings, 4)
	for _, s := range gc.SafetySettings {
		assert.Equal(t, genai.HarmBlockThresholdBlockMediumAndAbove, s.Threshold)
	}
}

func TestGeminiGenerateText(t *testing.T) {
	models := new(mockModels)
	models.On("GenerateContent", mock.Anything, "gemini-1.5-flash", mock.MatchedBy(func(contents []*genai.Content) bool {
		return len(contents) == 1 && len(contents[0].Parts) == 1 && contents[0].Parts[0].Text == "analyze"
	}), mock.Anything).Return(textResponse(`{"overall_score":`, ` 70}`), nil)

	p := newGeminiProvider(models, analysisConfig())
	text, err := p.Generate(context.Background(), Request{Prompt: "analyze"})
	require.NoError(t, err)
	assert.Equal(t, `{"overall_score": 70}`, text, "同一候选的多个片段应拼接")
	models.AssertExpectations(t)
}

func TestGeminiGenerateVisionAttachesDocument(t *testing.T) {
	models := new(mockModels)
	pdf := []byte("%PDF-1.4")
	models.On("GenerateContent", mock.Anything, "gemini-1.5-pro", mock.MatchedBy(func(contents []*genai.Content) bool {
		parts := contents[0].Parts
		return len(parts) == 2 && parts[1].InlineData != nil &&
			parts[1].InlineData.MIMEType == "application/pdf" && string(parts[1].InlineData.Data) == "%PDF-1.4"
	}), mock.Anything).Return(textResponse("{}"), nil)

	p := newGeminiProvider(models, analysisConfig())
	_, err := p.Generate(context.Background(), Request{
		Model:    "gemini-1.5-pro",
		Prompt:   "analyze document",
		Document: &Attachment{Data: pdf, MIMEType: "application/pdf"},
	})
	require.NoError(t, err)
	models.AssertExpectations(t)
}

func TestGeminiRejectsUnsupportedAttachment(t *testing.T) {
	models := new(mockModels)
	p := newGeminiProvider(models, analysisConfig())
	_, err := p.Generate(context.Background(), Request{
		Prompt:   "analyze",
		Document: &Attachment{MIMEType: "application/msword"},
	})
	require.ErrorIs(t, err, ErrVisionUnsupported)
	assert.False(t, IsTransient(err))
	models.AssertNotCalled(t, "GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGeminiWrapsAPIError(t *testing.T) {
	models := new(mockModels)
	models.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, genai.APIError{Code: 503, Status: "UNAVAILABLE"})

	_, err := newGeminiProvider(models, analysisConfig()).Generate(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.True(t, IsTransient(err), "503 应可重试")
}

func TestGeminiEmptyResponse(t *testing.T) {
	models := new(mockModels)
	models.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&genai.GenerateContentResponse{}, nil)

	text, err := newGeminiProvider(models, analysisConfig()).Generate(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestGeminiRequiresPrompt(t *testing.T) {
	_, err := newGeminiProvider(new(mockModels), analysisConfig()).Generate(context.Background(), Request{})
	assert.Error(t, err)

	_, err = NewGeminiProvider(context.Background(), " ", analysisConfig())
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrVisionUnsupported))
}
