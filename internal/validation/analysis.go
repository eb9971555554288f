package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/reverie-api/internal/domain"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindInteger
	kindObject
)

func (k fieldKind) String() string {
	switch k {
	case kindString:
		return "a string"
	case kindInteger:
		return "an integer"
	default:
		return "an object"
	}
}

type requiredField struct {
	Path string
	Kind fieldKind
}

// requiredFields is the AnalysisResult contract. Parents precede their children.
var requiredFields = []requiredField{
	{"interpretation", kindString},
	{"deep_analysis", kindObject},
	{"deep_analysis.emotional_state", kindString},
	{"deep_analysis.core_themes", kindString},
	{"deep_analysis.subconscious_signals", kindString},
	{"deep_analysis.growth_insight", kindString},
	{"personality_type", kindString},
	{"vibe", kindString},
	{"sentiment", kindObject},
	{"sentiment.positive", kindInteger},
	{"sentiment.neutral", kindInteger},
	{"sentiment.negative", kindInteger},
	{"share_metadata", kindObject},
	{"share_metadata.title", kindString},
	{"share_metadata.color_theme", kindObject},
	{"share_metadata.color_theme.background", kindString},
	{"share_metadata.color_theme.accent", kindString},
	{"share_metadata.color_theme.text", kindString},
	{"share_metadata.captions", kindObject},
	{"share_metadata.captions.instagram", kindString},
	{"share_metadata.captions.twitter", kindString},
	{"share_metadata.captions.tiktok", kindString},
}

// RequiredFields returns the dotted paths of every required field.
func RequiredFields() []string {
	paths := make([]string, len(requiredFields))
	for i, f := range requiredFields {
		paths[i] = f.Path
	}
	return paths
}

var validate = validator.New()

// personalityRule is the validator tag restricting personality_type to the closed set.
var personalityRule = func() string {
	names := make([]string, len(domain.PersonalityTypes))
	for i, p := range domain.PersonalityTypes {
		names[i] = string(p)
	}
	return "oneof=" + strings.Join(names, " ")
}()

// ValidateAnalysis checks payload against the AnalysisResult contract and
// returns the decoded result. Any violation is reported as *Error.
func ValidateAnalysis(payload []byte) (*domain.AnalysisResult, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, &Error{Reason: fmt.Sprintf("is not valid JSON: %v", err)}
	}
	if dec.More() {
		return nil, &Error{Reason: "contains trailing data after the JSON object"}
	}

	root, ok := tree.(map[string]any)
	if !ok {
		return nil, &Error{Reason: "must be a JSON object"}
	}

	for _, f := range requiredFields {
		if err := checkField(root, f); err != nil {
			return nil, err
		}
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, &Error{Reason: fmt.Sprintf("does not match the analysis shape: %v", err)}
	}

	if err := validate.Var(string(result.PersonalityType), personalityRule); err != nil {
		return nil, &Error{
			Field:  "personality_type",
			Reason: fmt.Sprintf("must be one of %v, got %q", domain.PersonalityTypes, result.PersonalityType),
		}
	}

	return &result, nil
}

func checkField(root map[string]any, f requiredField) error {
	value, present := lookup(root, f.Path)
	if !present || value == nil {
		return &Error{Field: f.Path, Reason: "is missing"}
	}

	switch f.Kind {
	case kindString:
		if _, ok := value.(string); ok {
			return nil
		}
	case kindInteger:
		if n, ok := value.(json.Number); ok {
			if _, err := n.Int64(); err == nil {
				return nil
			}
		}
	case kindObject:
		if _, ok := value.(map[string]any); ok {
			return nil
		}
	}
	return &Error{Field: f.Path, Reason: "must be " + f.Kind.String()}
}

// lookup resolves a dotted path. Parents are checked before children, so every
// intermediate value is already known to be an object.
func lookup(root map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	current := root
	for i, part := range parts {
		value, ok := current[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return value, true
		}
		current, ok = value.(map[string]any)
		if !ok {
			return nil, false
		}
	}
	return nil, false
}
