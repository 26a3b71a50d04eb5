package speech

import (
	"errors"
	"fmt"
	"strings"

	"polyglot/internal/language"
)

// ErrEnglishOnly reports a non-English request against an English-only model.
var ErrEnglishOnly = errors.New("model only supports English")

// ModelInfo describes a whisper model size.
type ModelInfo struct {
	Name        string
	Parameters  string
	EnglishOnly bool
}

// Sizes lists the model names backends understand.
var Sizes = []ModelInfo{
	{Name: "tiny", Parameters: "39M"},
	{Name: "tiny.en", Parameters: "39M", EnglishOnly: true},
	{Name: "base", Parameters: "74M"},
	{Name: "base.en", Parameters: "74M", EnglishOnly: true},
	{Name: "small", Parameters: "244M"},
	{Name: "small.en", Parameters: "244M", EnglishOnly: true},
	{Name: "medium", Parameters: "769M"},
	{Name: "medium.en", Parameters: "769M", EnglishOnly: true},
	{Name: "large", Parameters: "1550M"},
	{Name: "large-v2", Parameters: "1550M"},
	{Name: "large-v3", Parameters: "1550M"},
	{Name: "large-v3-turbo", Parameters: "809M"},
	{Name: "turbo", Parameters: "809M"},
}

// LookupModel returns the catalog entry for name. Unknown names are accepted
// so custom checkpoints still work; they are assumed multilingual unless they
// carry the ".en" suffix.
func LookupModel(name string) (ModelInfo, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ModelInfo{}, errors.New("model name required")
	}
	for _, info := range Sizes {
		if info.Name == name {
			return info, nil
		}
	}
	return ModelInfo{Name: name, EnglishOnly: strings.HasSuffix(name, ".en")}, nil
}

// CheckOptions rejects decoding requests the model cannot serve.
func (m ModelInfo) CheckOptions(opts DecodingOptions) error {
	if !m.EnglishOnly {
		return nil
	}
	if opts.Language != "" && !language.IsEnglish(opts.Language) {
		return fmt.Errorf("%s: %w (requested %s)", m.Name, ErrEnglishOnly, language.Label(opts.Language))
	}
	return nil
}

// SupportsDetection reports whether language detection is meaningful.
func (m ModelInfo) SupportsDetection() bool {
	return !m.EnglishOnly
}
