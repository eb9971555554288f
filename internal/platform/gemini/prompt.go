package gemini

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/phrazzld/reverie-api/internal/domain"
	"github.com/phrazzld/reverie-api/internal/generation"
)

//go:embed prompts/analysis.tmpl
var defaultPromptTemplate string

// promptData is the data passed to the analysis prompt template.
type promptData struct {
	EntryText        string
	PersonalityTypes string
}

// loadPromptTemplate parses the template at path, or the embedded default
// when path is empty.
func loadPromptTemplate(path string) (*template.Template, error) {
	content := defaultPromptTemplate
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read prompt template from %s: %v",
				generation.ErrInvalidConfig, path, err)
		}
		content = string(data)
	}

	tmpl, err := template.New("analysis").Option("missingkey=error").Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v",
			generation.ErrInvalidConfig, err)
	}
	return tmpl, nil
}

func renderPrompt(tmpl *template.Template, text string) (string, error) {
	types := make([]string, 0, len(domain.PersonalityTypes))
	for _, p := range domain.PersonalityTypes {
		types = append(types, string(p))
	}

	var buf bytes.Buffer
	err := tmpl.Execute(&buf, promptData{
		EntryText:        text,
		PersonalityTypes: strings.Join(types, ", "),
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// stripCodeFence removes a surrounding markdown code fence, which models add
// despite being asked for bare JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// Drop the language tag line.
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
