package identity

import (
	"strings"
	"testing"
)

func TestHash_Deterministic(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "ascii", input: "how to sort an array"},
		{name: "unicode", input: "如何排序数组"},
		{name: "long", input: strings.Repeat("conversation text ", 200)},
		{name: "url", input: "https://gemini.google.com/app/54afa1a3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := Hash(tt.input)
			for i := 0; i < 5; i++ {
				if got := Hash(tt.input); got != first {
					t.Fatalf("Hash not deterministic: %q vs %q", got, first)
				}
			}
			for _, r := range first {
				if !strings.ContainsRune("0123456789abcdefghijklmnopqrstuvwxyz", r) {
					t.Errorf("Hash output %q is not base-36", first)
				}
			}
		})
	}
}

func TestForConversation_FieldPerturbation(t *testing.T) {
	base := ForConversation("Gemini", "https://gemini.google.com/app/1", "question text", "answer text")

	tests := []struct {
		name     string
		platform string
		url      string
		question string
		answer   string
	}{
		{"platform_changed", "ChatGPT", "https://gemini.google.com/app/1", "question text", "answer text"},
		{"url_changed", "Gemini", "https://gemini.google.com/app/2", "question text", "answer text"},
		{"question_changed", "Gemini", "https://gemini.google.com/app/1", "question text!", "answer text"},
		{"answer_changed", "Gemini", "https://gemini.google.com/app/1", "question text", "answer text!"},
		{"answer_truncated", "Gemini", "https://gemini.google.com/app/1", "question text", "answer tex"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ForConversation(tt.platform, tt.url, tt.question, tt.answer)
			if got == base {
				t.Errorf("id did not change for perturbed input: %q", got)
			}
		})
	}
}

func TestForConversation_EqualInputsEqualIDs(t *testing.T) {
	tuples := [][4]string{
		{"Gemini", "https://gemini.google.com/app/1", "q one", "a one"},
		{"ChatGPT", "https://chat.openai.com/c/2", "q two", "a two"},
		{"DeepSeek", "https://chat.deepseek.com/a/3", "q three", "a three"},
	}

	for _, tu := range tuples {
		a := ForConversation(tu[0], tu[1], tu[2], tu[3])
		b := ForConversation(tu[0], tu[1], tu[2], tu[3])
		if a != b {
			t.Errorf("equal inputs produced different ids: %q vs %q", a, b)
		}
		if !strings.HasPrefix(a, tu[0]+"-") {
			t.Errorf("id %q does not start with platform name", a)
		}
	}
}

func TestForConversation_SeparatorMatters(t *testing.T) {
	// "ab"+"|"+"c" and "a"+"|"+"bc" must not collide through concatenation.
	a := ForConversation("P", "u", "ab", "c")
	b := ForConversation("P", "u", "a", "bc")
	if a == b {
		t.Errorf("question/answer boundary lost in id derivation: %q", a)
	}
}
