package detect_test

import (
	"errors"
	"testing"

	"polyglot/internal/detect"
)

func TestSelectTopDutchSample(t *testing.T) {
	probs := detect.Probabilities{"nl": 0.82, "af": 0.10, "de": 0.08}
	top, err := detect.SelectTop(probs)
	if err != nil {
		t.Fatalf("SelectTop returned error: %v", err)
	}
	if top.Language != "nl" || top.Probability != 0.82 {
		t.Fatalf("unexpected top language: %+v", top)
	}
}

func TestSelectTopEmptyMapping(t *testing.T) {
	for name, probs := range map[string]detect.Probabilities{
		"nil":   nil,
		"empty": {},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := detect.SelectTop(probs)
			if !errors.Is(err, detect.ErrNoProbabilities) {
				t.Fatalf("expected ErrNoProbabilities, got %v", err)
			}
		})
	}
}

func TestSelectTopReturnsMaximum(t *testing.T) {
	tests := []struct {
		name  string
		probs detect.Probabilities
	}{
		{"single", detect.Probabilities{"en": 1}},
		{"last wins", detect.Probabilities{"en": 0.1, "fr": 0.2, "ja": 0.7}},
		{"zeros", detect.Probabilities{"en": 0, "fr": 0}},
		{"many", detect.Probabilities{"en": 0.05, "es": 0.15, "pt": 0.3, "it": 0.25, "ro": 0.25}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			top, err := detect.SelectTop(tt.probs)
			if err != nil {
				t.Fatalf("SelectTop returned error: %v", err)
			}
			value, ok := tt.probs[top.Language]
			if !ok {
				t.Fatalf("selected language %q not present in mapping", top.Language)
			}
			if value != top.Probability {
				t.Fatalf("probability mismatch: got %v want %v", top.Probability, value)
			}
			for code, other := range tt.probs {
				if other > top.Probability {
					t.Fatalf("language %q (%v) beats selected %q (%v)", code, other, top.Language, top.Probability)
				}
			}
		})
	}
}

func TestSelectTopTieIsDeterministic(t *testing.T) {
	probs := detect.Probabilities{"sv": 0.4, "da": 0.4, "no": 0.2}
	for i := 0; i < 20; i++ {
		top, err := detect.SelectTop(probs)
		if err != nil {
			t.Fatalf("SelectTop returned error: %v", err)
		}
		if top.Language != "da" {
			t.Fatalf("expected lowest code to win the tie, got %q", top.Language)
		}
	}
}

func TestTopN(t *testing.T) {
	probs := detect.Probabilities{"nl": 0.82, "af": 0.10, "de": 0.08}

	got := detect.TopN(probs, 2)
	want := []detect.Candidate{{Language: "nl", Probability: 0.82}, {Language: "af", Probability: 0.10}}
	if len(got) != len(want) {
		t.Fatalf("TopN length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("TopN[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestTopNLengthAndOrder(t *testing.T) {
	probs := detect.Probabilities{"en": 0.05, "es": 0.15, "pt": 0.3, "it": 0.25, "ro": 0.25}
	tests := []struct {
		n    int
		want int
	}{
		{-1, 0},
		{0, 0},
		{1, 1},
		{3, 3},
		{5, 5},
		{10, 5},
	}
	for _, tt := range tests {
		got := detect.TopN(probs, tt.n)
		if len(got) != tt.want {
			t.Fatalf("TopN(%d) length = %d, want %d", tt.n, len(got), tt.want)
		}
		for i := 1; i < len(got); i++ {
			if got[i].Probability > got[i-1].Probability {
				t.Fatalf("TopN(%d) not in non-increasing order: %+v", tt.n, got)
			}
		}
	}
	ranked := detect.TopN(probs, 3)
	if ranked[1].Language != "it" || ranked[2].Language != "ro" {
		t.Fatalf("expected equal probabilities in code order, got %+v", ranked)
	}
}

func TestTopNEmpty(t *testing.T) {
	if got := detect.TopN(nil, 3); len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestNormalize(t *testing.T) {
	probs := detect.Probabilities{" NL ": 0.6, "nl": 0.2, "": 0.1, "af": 0.1}
	got := probs.Normalize(nil)
	if len(got) != 2 {
		t.Fatalf("unexpected normalized mapping: %v", got)
	}
	if got["nl"] != 0.6 {
		t.Fatalf("expected higher duplicate to win, got %v", got["nl"])
	}
}

func TestNormalizeCanonicalizes(t *testing.T) {
	aliases := map[string]string{"dutch": "nl", "nld": "nl", "afr": "af"}
	canon := func(code string) string {
		if alias, ok := aliases[code]; ok {
			return alias
		}
		return code
	}
	probs := detect.Probabilities{"Dutch": 0.7, "nld": 0.1, "AFR": 0.2}
	got := probs.Normalize(canon)
	if len(got) != 2 || got["nl"] != 0.7 || got["af"] != 0.2 {
		t.Fatalf("unexpected normalized mapping: %v", got)
	}
}

func TestSum(t *testing.T) {
	probs := detect.Probabilities{"nl": 0.5, "af": 0.25, "de": 0.25}
	if sum := probs.Sum(); sum != 1 {
		t.Fatalf("Sum = %v, want 1", sum)
	}
}
