package whisperapi

import (
	"strings"
	"time"

	"polyglot/internal/detect"
	"polyglot/internal/language"
	"polyglot/internal/speech"
)

// detectResponse accepts both the full probability map and the single-best
// shape ({"language_code": "nl", "confidence": 0.97}) some servers return.
type detectResponse struct {
	LanguageProbs    map[string]float64 `json:"language_probs"`
	AllLanguageProbs map[string]float64 `json:"all_language_probs"`
	LanguageCode     string             `json:"language_code"`
	DetectedLanguage string             `json:"detected_language"`
	Confidence       *float64           `json:"confidence"`
}

func (r detectResponse) probabilities() detect.Probabilities {
	source := r.LanguageProbs
	if len(source) == 0 {
		source = r.AllLanguageProbs
	}
	if len(source) > 0 {
		return detect.Probabilities(source).Normalize(canonicalCode)
	}
	code := language.ToISO2(r.LanguageCode)
	if code == "" {
		code = language.ToISO2(r.DetectedLanguage)
	}
	if code == "" || r.Confidence == nil {
		return nil
	}
	return detect.Probabilities{code: *r.Confidence}
}

// canonicalCode maps server codes ("nld", "dutch") to ISO 639-1, keeping
// codes the language table does not know.
func canonicalCode(code string) string {
	if iso := language.ToISO2(code); iso != "" {
		return iso
	}
	return code
}

type asrSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type asrResponse struct {
	Text     string       `json:"text"`
	Language string       `json:"language"`
	Segments []asrSegment `json:"segments"`
}

func (r asrResponse) result() speech.Result {
	segments := make([]speech.Segment, 0, len(r.Segments))
	var joined []string
	for _, s := range r.Segments {
		text := strings.TrimSpace(s.Text)
		segments = append(segments, speech.Segment{
			Start: secondsToDuration(s.Start),
			End:   secondsToDuration(s.End),
			Text:  text,
		})
		if text != "" {
			joined = append(joined, text)
		}
	}
	text := strings.TrimSpace(r.Text)
	if text == "" {
		text = strings.Join(joined, " ")
	}
	lang := language.ToISO2(r.Language)
	if lang == "" {
		lang = strings.ToLower(strings.TrimSpace(r.Language))
	}
	return speech.Result{Text: text, Language: lang, Segments: segments}
}

func secondsToDuration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}
