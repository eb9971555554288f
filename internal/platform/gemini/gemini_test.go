package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/phrazzld/reverie-api/internal/config"
	"github.com/phrazzld/reverie-api/internal/generation"
	"github.com/phrazzld/reverie-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeContentModel struct {
	resp     *genai.GenerateContentResponse
	err      error
	model    string
	prompt   string
	config   *genai.GenerateContentConfig
	deadline bool
}

func (f *fakeContentModel) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = cfg
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	_, f.deadline = ctx.Deadline()
	return f.resp, f.err
}

type fakeImageModel struct {
	resp   *genai.GenerateImagesResponse
	err    error
	prompt string
}

func (f *fakeImageModel) GenerateImages(
	ctx context.Context,
	model string,
	prompt string,
	cfg *genai.GenerateImagesConfig,
) (*genai.GenerateImagesResponse, error) {
	f.prompt = prompt
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: []*genai.Part{{Text: text}}},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

func testAnalyzer(t *testing.T, models contentModel) *Analyzer {
	t.Helper()
	tmpl, err := loadPromptTemplate("")
	require.NoError(t, err)
	return newAnalyzer(models, "gemini-test", tmpl, time.Second, logger.Discard())
}

func TestAnalyzer_Analyze(t *testing.T) {
	models := &fakeContentModel{resp: textResponse("```json\n{\"vibe\": \"calm\"}\n```")}
	a := testAnalyzer(t, models)

	payload, err := a.Analyze(context.Background(), "I was flying over a city made of glass.")
	require.NoError(t, err)
	assert.JSONEq(t, `{"vibe": "calm"}`, string(payload))

	assert.Equal(t, "gemini-test", models.model)
	assert.Equal(t, "application/json", models.config.ResponseMIMEType)
	assert.Contains(t, models.prompt, "I was flying over a city made of glass.")
	assert.Contains(t, models.prompt, "dreamer, explorer, guardian")
	assert.True(t, models.deadline, "calls are bounded by the request timeout")
}

func TestAnalyzer_Errors(t *testing.T) {
	tests := []struct {
		name   string
		models *fakeContentModel
		want   error
	}{
		{
			name:   "deadline exceeded is transient",
			models: &fakeContentModel{err: fmt.Errorf("post: %w", context.DeadlineExceeded)},
			want:   generation.ErrTransientFailure,
		},
		{
			name:   "rate limited is transient",
			models: &fakeContentModel{err: genai.APIError{Code: 429, Message: "quota"}},
			want:   generation.ErrTransientFailure,
		},
		{
			name:   "server error is transient",
			models: &fakeContentModel{err: genai.APIError{Code: 503, Message: "unavailable"}},
			want:   generation.ErrTransientFailure,
		},
		{
			name:   "bad request fails",
			models: &fakeContentModel{err: genai.APIError{Code: 400, Message: "bad model"}},
			want:   generation.ErrGenerationFailed,
		},
		{
			name:   "no candidates",
			models: &fakeContentModel{resp: &genai.GenerateContentResponse{}},
			want:   generation.ErrInvalidResponse,
		},
		{
			name: "safety finish",
			models: &fakeContentModel{resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
			}},
			want: generation.ErrContentBlocked,
		},
		{
			name: "prompt blocked",
			models: &fakeContentModel{resp: &genai.GenerateContentResponse{
				PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
			}},
			want: generation.ErrContentBlocked,
		},
		{
			name:   "blank text",
			models: &fakeContentModel{resp: textResponse("  ")},
			want:   generation.ErrInvalidResponse,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := testAnalyzer(t, tc.models).Analyze(context.Background(), "entry")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)

			var serviceErr *generation.ServiceError
			require.ErrorAs(t, err, &serviceErr)
			assert.Equal(t, "gemini", serviceErr.Service)
			assert.Equal(t, "analyze", serviceErr.Op)
		})
	}
}

func TestAnalyzer_EmptyText(t *testing.T) {
	models := &fakeContentModel{}
	_, err := testAnalyzer(t, models).Analyze(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.Empty(t, models.prompt, "no call is made")
}

func TestImageGenerator_GenerateImage(t *testing.T) {
	models := &fakeImageModel{resp: &genai.GenerateImagesResponse{
		GeneratedImages: []*genai.GeneratedImage{
			{RAIFilteredReason: "filtered"},
			{Image: &genai.Image{ImageBytes: []byte{1, 2, 3}}},
		},
	}}
	g := newImageGenerator(models, "imagen-test", time.Second, logger.Discard())

	image, err := g.GenerateImage(context.Background(), "a lighthouse")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, image.Data)
	assert.Equal(t, "image/png", image.MIMEType)
	assert.Equal(t, "a lighthouse", models.prompt)
}

func TestImageGenerator_Errors(t *testing.T) {
	tests := []struct {
		name   string
		models *fakeImageModel
		want   error
	}{
		{"timeout", &fakeImageModel{err: context.DeadlineExceeded}, generation.ErrTransientFailure},
		{"no images", &fakeImageModel{resp: &genai.GenerateImagesResponse{}}, generation.ErrInvalidResponse},
		{"all filtered", &fakeImageModel{resp: &genai.GenerateImagesResponse{
			GeneratedImages: []*genai.GeneratedImage{{RAIFilteredReason: "person"}},
		}}, generation.ErrContentBlocked},
		{"empty bytes", &fakeImageModel{resp: &genai.GenerateImagesResponse{
			GeneratedImages: []*genai.GeneratedImage{{Image: &genai.Image{}}},
		}}, generation.ErrInvalidResponse},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := newImageGenerator(tc.models, "imagen-test", time.Second, logger.Discard())
			_, err := g.GenerateImage(context.Background(), "a lighthouse")
			assert.ErrorIs(t, err, tc.want)

			var serviceErr *generation.ServiceError
			require.ErrorAs(t, err, &serviceErr)
			assert.Equal(t, "imagen", serviceErr.Service)
		})
	}

	g := newImageGenerator(&fakeImageModel{}, "imagen-test", time.Second, logger.Discard())
	_, err := g.GenerateImage(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestClassifyError(t *testing.T) {
	assert.Nil(t, classifyError(nil))
	assert.ErrorIs(t, classifyError(errors.New("connection reset by peer")), generation.ErrTransientFailure)
	assert.ErrorIs(t, classifyError(&genai.APIError{Code: 500}), generation.ErrTransientFailure)

	canceled := classifyError(context.Canceled)
	assert.ErrorIs(t, canceled, context.Canceled)
	assert.NotErrorIs(t, canceled, generation.ErrTransientFailure)
}

func TestStripCodeFence(t *testing.T) {
	tests := map[string]string{
		`{"a":1}`:                     `{"a":1}`,
		"  {\"a\":1}\n":               `{"a":1}`,
		"```json\n{\"a\":1}\n```":     `{"a":1}`,
		"```\n{\"a\":1}\n```  ":       `{"a":1}`,
		"```json\n{\"a\":\"```\"}```": `{"a":"` + "```" + `"}`,
	}
	for in, want := range tests {
		assert.Equal(t, want, stripCodeFence(in), "input %q", in)
	}
}

func TestLoadPromptTemplate(t *testing.T) {
	tmpl, err := loadPromptTemplate("")
	require.NoError(t, err)
	prompt, err := renderPrompt(tmpl, "the moon was a door")
	require.NoError(t, err)
	assert.Contains(t, prompt, "the moon was a door")
	assert.Contains(t, prompt, "sage, rebel, nurturer, visionary")

	path := filepath.Join(t.TempDir(), "custom.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("Analyze: {{.EntryText}}"), 0o600))
	tmpl, err = loadPromptTemplate(path)
	require.NoError(t, err)
	prompt, err = renderPrompt(tmpl, "hello")
	require.NoError(t, err)
	assert.Equal(t, "Analyze: hello", prompt)

	_, err = loadPromptTemplate(filepath.Join(t.TempDir(), "missing.tmpl"))
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	require.NoError(t, os.WriteFile(path, []byte("{{.EntryText"), 0o600))
	_, err = loadPromptTemplate(path)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestValidateConfig(t *testing.T) {
	valid := config.LLMConfig{
		GeminiAPIKey:   "key",
		AnalysisModel:  "gemini-2.0-flash",
		ImageModel:     "imagen-3.0-generate-002",
		RequestTimeout: time.Minute,
	}
	require.NoError(t, validateConfig(context.Background(), logger.Discard(), valid))

	for name, mutate := range map[string]func(c *config.LLMConfig){
		"api key":        func(c *config.LLMConfig) { c.GeminiAPIKey = "" },
		"analysis model": func(c *config.LLMConfig) { c.AnalysisModel = "" },
		"image model":    func(c *config.LLMConfig) { c.ImageModel = "" },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			assert.ErrorIs(t, validateConfig(context.Background(), logger.Discard(), cfg), generation.ErrInvalidConfig)
		})
	}
}
