package speech_test

import (
	"errors"
	"testing"

	"polyglot/internal/speech"
)

func TestParseTask(t *testing.T) {
	tests := []struct {
		input   string
		want    speech.Task
		wantErr bool
	}{
		{"", speech.TaskTranscribe, false},
		{"transcribe", speech.TaskTranscribe, false},
		{" Translate ", speech.TaskTranslate, false},
		{"summarize", "", true},
	}
	for _, tt := range tests {
		got, err := speech.ParseTask(tt.input)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseTask(%q) err = %v", tt.input, err)
		}
		if got != tt.want {
			t.Fatalf("ParseTask(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLookupModel(t *testing.T) {
	info, err := speech.LookupModel("Medium")
	if err != nil {
		t.Fatalf("LookupModel: %v", err)
	}
	if info.Name != "medium" || info.EnglishOnly {
		t.Fatalf("unexpected medium info %+v", info)
	}
	info, err = speech.LookupModel("medium.en")
	if err != nil || !info.EnglishOnly {
		t.Fatalf("expected English-only medium.en, got %+v err=%v", info, err)
	}
	info, err = speech.LookupModel("distil-custom.en")
	if err != nil || !info.EnglishOnly {
		t.Fatalf("expected custom .en model to be English-only, got %+v", info)
	}
	if _, err := speech.LookupModel(" "); err == nil {
		t.Fatal("expected error for empty model name")
	}
}

func TestEnglishOnlyRejectsOtherLanguages(t *testing.T) {
	info, _ := speech.LookupModel("base.en")
	if info.SupportsDetection() {
		t.Fatal("English-only model should not support detection")
	}
	err := info.CheckOptions(speech.DecodingOptions{Language: "nl", Task: speech.TaskTranscribe})
	if !errors.Is(err, speech.ErrEnglishOnly) {
		t.Fatalf("expected ErrEnglishOnly, got %v", err)
	}
	if err := info.CheckOptions(speech.DecodingOptions{Language: "en"}); err != nil {
		t.Fatalf("English should be accepted: %v", err)
	}
	if err := info.CheckOptions(speech.DecodingOptions{}); err != nil {
		t.Fatalf("empty language should be accepted: %v", err)
	}

	multi, _ := speech.LookupModel("small")
	if err := multi.CheckOptions(speech.DecodingOptions{Language: "nl"}); err != nil {
		t.Fatalf("multilingual model rejected nl: %v", err)
	}
}
