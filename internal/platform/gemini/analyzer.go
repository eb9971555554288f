package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/phrazzld/reverie-api/internal/generation"
	"github.com/phrazzld/reverie-api/internal/platform/logger"
	"google.golang.org/genai"
)

const analysisSystemInstruction = "You interpret personal journal entries with warmth and care. " +
	"You always answer with a single valid JSON object."

// Analyzer implements generation.Analyzer with a Gemini text model.
type Analyzer struct {
	models  contentModel
	model   string
	prompt  *template.Template
	timeout time.Duration
	logger  *slog.Logger
}

var _ generation.Analyzer = (*Analyzer)(nil)

func newAnalyzer(models contentModel, model string, prompt *template.Template, timeout time.Duration, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		models:  models,
		model:   model,
		prompt:  prompt,
		timeout: timeout,
		logger:  logger.With("component", "gemini_analyzer"),
	}
}

// Analyze sends text to the model and returns the JSON payload it produced.
// The payload is not validated here.
func (a *Analyzer) Analyze(ctx context.Context, text string) ([]byte, error) {
	log := logger.FromContextOrDefault(ctx, a.logger)

	if strings.TrimSpace(text) == "" {
		return nil, generation.NewServiceError(serviceGemini, "analyze", ErrEmptyText)
	}

	prompt, err := renderPrompt(a.prompt, text)
	if err != nil {
		return nil, generation.NewServiceError(serviceGemini, "analyze", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	resp, err := a.models.GenerateContent(callCtx, a.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: analysisSystemInstruction}}},
			ResponseMIMEType:  "application/json",
		})
	if err != nil {
		log.WarnContext(ctx, "gemini call failed",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return nil, generation.NewServiceError(serviceGemini, "analyze", classifyError(err))
	}

	payload, err := responseText(resp)
	if err != nil {
		return nil, generation.NewServiceError(serviceGemini, "analyze", err)
	}

	log.DebugContext(ctx, "gemini call succeeded",
		"model", a.model,
		"payload_bytes", len(payload),
		"duration_ms", time.Since(start).Milliseconds())
	return []byte(payload), nil
}

// responseText extracts the text of the first candidate, rejecting blocked
// and empty responses.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked: %s", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: response blocked by safety filters", generation.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}

	text := stripCodeFence(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: empty text in response", generation.ErrInvalidResponse)
	}
	return text, nil
}
