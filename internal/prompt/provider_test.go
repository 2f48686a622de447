package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Lookup(ctx context.Context, purpose Purpose, customerID string) (Template, error) {
	args := m.Called(ctx, purpose, customerID)
	return args.Get(0).(Template), args.Error(1)
}

func (m *mockStore) RecordUsage(ctx context.Context, tpl Template) error {
	args := m.Called(ctx, tpl)
	return args.Error(0)
}

func textVars() map[string]string {
	return map[string]string{"resume_text": "Jane Doe, Go engineer", "job_context": ""}
}

func TestRenderWithoutStoreUsesBuiltin(t *testing.T) {
	out, err := NewRenderer().Render(context.Background(), PurposeTextAnalysis, textVars())
	require.NoError(t, err)
	assert.Contains(t, out, "Resume Text:\nJane Doe, Go engineer")
	assert.Contains(t, out, `"overall_score"`)
}

func TestRenderUsesStoredTemplate(t *testing.T) {
	store := new(mockStore)
	tpl := Template{Name: "acme text", Purpose: PurposeTextAnalysis, Content: "Analyze: {resume_text}", Key: "p:text-analysis:customer:acme"}
	store.On("Lookup", mock.Anything, PurposeTextAnalysis, "acme").Return(tpl, nil)
	store.On("RecordUsage", mock.Anything, tpl).Return(nil)

	r := NewRenderer(WithStore(store), WithCustomerID("acme"))
	out, err := r.Render(context.Background(), PurposeTextAnalysis, textVars())
	require.NoError(t, err)
	assert.Equal(t, "Analyze: Jane Doe, Go engineer", out)
	store.AssertExpectations(t)
}

func TestRenderFallsBackWhenTemplateMissing(t *testing.T) {
	store := new(mockStore)
	store.On("Lookup", mock.Anything, PurposeVisionAnalysis, "").Return(Template{}, ErrTemplateNotFound)

	out, err := NewRenderer(WithStore(store)).Render(context.Background(), PurposeVisionAnalysis, map[string]string{"job_context": ""})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "You are an expert HR analyst. Analyze this resume document"))
	store.AssertNotCalled(t, "RecordUsage", mock.Anything, mock.Anything)
}

func TestRenderFallsBackOnStoreError(t *testing.T) {
	store := new(mockStore)
	store.On("Lookup", mock.Anything, PurposeTextAnalysis, "").Return(Template{}, errors.New("connection refused"))

	out, err := NewRenderer(WithStore(store)).Render(context.Background(), PurposeTextAnalysis, textVars())
	require.NoError(t, err, "存储出错时应回退到内置模板")
	assert.Contains(t, out, "Jane Doe, Go engineer")
}

func TestRenderFallsBackWhenStoredTemplateIsBroken(t *testing.T) {
	store := new(mockStore)
	tpl := Template{Name: "broken", Content: "Needs {unknown_var}", Key: "k"}
	store.On("Lookup", mock.Anything, PurposeTextAnalysis, "").Return(tpl, nil)
	store.On("RecordUsage", mock.Anything, tpl).Return(nil)

	out, err := NewRenderer(WithStore(store)).Render(context.Background(), PurposeTextAnalysis, textVars())
	require.NoError(t, err)
	assert.Contains(t, out, "Resume Text:", "存储模板渲染失败时应使用内置模板")
}

func TestRenderUsageErrorIsNotFatal(t *testing.T) {
	store := new(mockStore)
	tpl := Template{Name: "t", Content: "{resume_text}", Key: "k"}
	store.On("Lookup", mock.Anything, PurposeTextAnalysis, "").Return(tpl, nil)
	store.On("RecordUsage", mock.Anything, tpl).Return(errors.New("readonly"))

	out, err := NewRenderer(WithStore(store)).Render(context.Background(), PurposeTextAnalysis, textVars())
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe, Go engineer", out)
}

func TestRenderUnknownPurpose(t *testing.T) {
	_, err := NewRenderer().Render(context.Background(), Purpose("summarize"), nil)
	assert.Error(t, err)
}

func TestRenderBuiltinMissingVariable(t *testing.T) {
	_, err := NewRenderer().Render(context.Background(), PurposeQAAssessment, map[string]string{})
	assert.ErrorIs(t, err, ErrMissingVariable)
}
