package adapter

import "testing"

func TestRegistry_Match(t *testing.T) {
	tests := []struct {
		url      string
		wantName string
	}{
		{"https://gemini.google.com/app/1", "Gemini"},
		{"https://chat.openai.com/c/1", "ChatGPT"},
		{"https://chat.deepseek.com/a/1", "DeepSeek"},
		{"https://news.ycombinator.com/", ""},
	}

	reg := NewRegistry()
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			page, err := ParsePage("<html><body></body></html>", tt.url)
			if err != nil {
				t.Fatalf("ParsePage: %v", err)
			}
			a := reg.Match(page)
			if tt.wantName == "" {
				if a != nil {
					t.Fatalf("Match = %s, want no adapter", a.Name())
				}
				return
			}
			if a == nil {
				t.Fatalf("Match = nil, want %s", tt.wantName)
			}
			if a.Name() != tt.wantName {
				t.Errorf("Match = %s, want %s", a.Name(), tt.wantName)
			}
		})
	}
}

func TestTitleValidation(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"ordinary_title", "Debugging a race condition", true},
		{"cjk_title", "并发调试笔记", true},
		{"too_short", "ab", false},
		{"uuid", "54afa1a3-2865-47ac-b72a-ab8fd84d968c", false},
		{"hex_hash", "deadbeefdeadbeefdeadbeef", false},
		{"digits_only", "20240131", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isValidTitle(tt.input); got != tt.want {
				t.Errorf("isValidTitle(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
