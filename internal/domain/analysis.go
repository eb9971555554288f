package domain

// PersonalityType is the closed set of personality archetypes an analysis may select.
type PersonalityType string

// Personality archetypes
const (
	PersonalityDreamer   PersonalityType = "dreamer"
	PersonalityExplorer  PersonalityType = "explorer"
	PersonalityGuardian  PersonalityType = "guardian"
	PersonalityCreator   PersonalityType = "creator"
	PersonalitySage      PersonalityType = "sage"
	PersonalityRebel     PersonalityType = "rebel"
	PersonalityNurturer  PersonalityType = "nurturer"
	PersonalityVisionary PersonalityType = "visionary"
)

// PersonalityTypes lists every valid personality type.
var PersonalityTypes = []PersonalityType{
	PersonalityDreamer,
	PersonalityExplorer,
	PersonalityGuardian,
	PersonalityCreator,
	PersonalitySage,
	PersonalityRebel,
	PersonalityNurturer,
	PersonalityVisionary,
}

// IsValid reports whether p is a member of the closed personality set.
func (p PersonalityType) IsValid() bool {
	for _, v := range PersonalityTypes {
		if p == v {
			return true
		}
	}
	return false
}

// AnalysisResult is the structured interpretation of a journal entry produced
// by the language model. It is immutable once persisted.
type AnalysisResult struct {
	Interpretation  string          `json:"interpretation" bson:"interpretation"`
	DeepAnalysis    DeepAnalysis    `json:"deep_analysis" bson:"deep_analysis"`
	PersonalityType PersonalityType `json:"personality_type" bson:"personality_type"`
	Vibe            string          `json:"vibe" bson:"vibe"`
	Sentiment       Sentiment       `json:"sentiment" bson:"sentiment"`
	ShareMetadata   ShareMetadata   `json:"share_metadata" bson:"share_metadata"`
}

// DeepAnalysis holds the categorized long-form findings.
type DeepAnalysis struct {
	EmotionalState      string `json:"emotional_state" bson:"emotional_state"`
	CoreThemes          string `json:"core_themes" bson:"core_themes"`
	SubconsciousSignals string `json:"subconscious_signals" bson:"subconscious_signals"`
	GrowthInsight       string `json:"growth_insight" bson:"growth_insight"`
}

// Sentiment is a percentage distribution that conceptually sums to 100.
type Sentiment struct {
	Positive int `json:"positive" bson:"positive"`
	Neutral  int `json:"neutral" bson:"neutral"`
	Negative int `json:"negative" bson:"negative"`
}

// Total returns the sum of the distribution.
func (s Sentiment) Total() int {
	return s.Positive + s.Neutral + s.Negative
}

// ShareMetadata describes how the entry is presented when shared.
type ShareMetadata struct {
	Title      string     `json:"title" bson:"title"`
	ColorTheme ColorTheme `json:"color_theme" bson:"color_theme"`
	Captions   Captions   `json:"captions" bson:"captions"`
}

// ColorTheme is the palette used for the share card, as hex strings.
type ColorTheme struct {
	Background string `json:"background" bson:"background"`
	Accent     string `json:"accent" bson:"accent"`
	Text       string `json:"text" bson:"text"`
}

// Captions are per-platform caption strings.
type Captions struct {
	Instagram string `json:"instagram" bson:"instagram"`
	Twitter   string `json:"twitter" bson:"twitter"`
	TikTok    string `json:"tiktok" bson:"tiktok"`
}
