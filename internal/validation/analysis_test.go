package validation

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/phrazzld/reverie-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimalPayload contains exactly the required fields.
func minimalPayload() map[string]any {
	return map[string]any{
		"interpretation": "You are letting go of something you outgrew.",
		"deep_analysis": map[string]any{
			"emotional_state":      "wistful",
			"core_themes":          "change, memory",
			"subconscious_signals": "water imagery",
			"growth_insight":       "grief can be gentle",
		},
		"personality_type": "dreamer",
		"vibe":             "Soft tide, long exhale",
		"sentiment": map[string]any{
			"positive": 40,
			"neutral":  35,
			"negative": 25,
		},
		"share_metadata": map[string]any{
			"title": "A Quiet Ocean of Forgotten Dreams",
			"color_theme": map[string]any{
				"background": "#0B1D3A",
				"accent":     "#7FD1E8",
				"text":       "#F5F7FA",
			},
			"captions": map[string]any{
				"instagram": "tide",
				"twitter":   "tide",
				"tiktok":    "tide",
			},
		},
	}
}

func encode(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

// setPath replaces (or deletes, when remove is true) the value at a dotted path.
func setPath(m map[string]any, path string, value any, remove bool) {
	parts := strings.Split(path, ".")
	for _, part := range parts[:len(parts)-1] {
		m = m[part].(map[string]any)
	}
	last := parts[len(parts)-1]
	if remove {
		delete(m, last)
		return
	}
	m[last] = value
}

func TestValidateAnalysis_AcceptsMinimalPayload(t *testing.T) {
	result, err := ValidateAnalysis(encode(t, minimalPayload()))
	require.NoError(t, err)

	assert.Equal(t, domain.PersonalityDreamer, result.PersonalityType)
	assert.Equal(t, 25, result.Sentiment.Negative)
	assert.Equal(t, 100, result.Sentiment.Total())
	assert.Equal(t, "A Quiet Ocean of Forgotten Dreams", result.ShareMetadata.Title)
	assert.Equal(t, "#7FD1E8", result.ShareMetadata.ColorTheme.Accent)
}

func TestValidateAnalysis_AcceptsExtraFields(t *testing.T) {
	payload := minimalPayload()
	payload["mood_score"] = 7
	setPath(payload, "deep_analysis.shadow_work", "unexpected", false)
	setPath(payload, "share_metadata.captions.threads", "also unexpected", false)

	result, err := ValidateAnalysis(encode(t, payload))
	require.NoError(t, err)
	assert.Equal(t, "wistful", result.DeepAnalysis.EmotionalState)
}

func TestValidateAnalysis_RejectsEachMissingField(t *testing.T) {
	for _, path := range RequiredFields() {
		t.Run(path, func(t *testing.T) {
			payload := minimalPayload()
			setPath(payload, path, nil, true)

			result, err := ValidateAnalysis(encode(t, payload))
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, errors.Is(err, ErrInvalidPayload))

			var verr *Error
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, path, verr.Field)
			assert.Contains(t, err.Error(), path)
		})
	}
}

func TestValidateAnalysis_RejectsEachNullField(t *testing.T) {
	for _, path := range RequiredFields() {
		t.Run(path, func(t *testing.T) {
			payload := minimalPayload()
			setPath(payload, path, nil, false)

			_, err := ValidateAnalysis(encode(t, payload))
			var verr *Error
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, path, verr.Field)
			assert.Equal(t, "is missing", verr.Reason)
		})
	}
}

func TestValidateAnalysis_RejectsWrongKinds(t *testing.T) {
	tests := []struct {
		path  string
		value any
	}{
		{"interpretation", 42},
		{"deep_analysis", "not an object"},
		{"deep_analysis.core_themes", []string{"a", "b"}},
		{"sentiment.positive", "40"},
		{"sentiment.neutral", 35.5},
		{"share_metadata.color_theme", []any{}},
		{"share_metadata.captions.tiktok", true},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			payload := minimalPayload()
			setPath(payload, tc.path, tc.value, false)

			_, err := ValidateAnalysis(encode(t, payload))
			var verr *Error
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.path, verr.Field)
			assert.Contains(t, verr.Reason, "must be")
		})
	}
}

func TestValidateAnalysis_RejectsUnknownPersonality(t *testing.T) {
	payload := minimalPayload()
	payload["personality_type"] = "wanderer"

	_, err := ValidateAnalysis(encode(t, payload))
	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "personality_type", verr.Field)
	assert.Contains(t, verr.Reason, "wanderer")
}

func TestValidateAnalysis_RejectsMalformedPayloads(t *testing.T) {
	tests := map[string]string{
		"empty":         "",
		"not json":      "The entry speaks of the sea.",
		"array":         `[{"interpretation": "x"}]`,
		"string":        `"interpretation"`,
		"truncated":     `{"interpretation": "x", "deep_analysis": {`,
		"trailing data": `{} {}`,
	}

	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ValidateAnalysis([]byte(payload))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidPayload)

			var verr *Error
			require.True(t, errors.As(err, &verr))
			assert.Empty(t, verr.Field)
		})
	}
}

func TestValidateAnalysis_MissingSentimentNegativeMessage(t *testing.T) {
	payload := minimalPayload()
	setPath(payload, "sentiment.negative", nil, true)

	_, err := ValidateAnalysis(encode(t, payload))
	require.Error(t, err)
	assert.Equal(t, "invalid analysis payload: field sentiment.negative is missing", err.Error())
}
