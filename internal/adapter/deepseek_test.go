package adapter

import (
	"fmt"
	"testing"
)

const deepSeekPageURL = "https://chat.deepseek.com/a/chat/s/1"

func deepSeekPage(t *testing.T, body string) *Page {
	t.Helper()
	page, err := ParsePage("<html><head><title>DeepSeek</title></head><body>"+body+"</body></html>", deepSeekPageURL)
	if err != nil {
		t.Fatalf("ParsePage: %v", err)
	}
	return page
}

func deepSeekUserMsg(text string) string {
	return fmt.Sprintf(`<div class="ds-message _63c77b1 d29f3d7d">%s</div>`, text)
}

func deepSeekReplyMsg(text string) string {
	return fmt.Sprintf(`<div class="ds-message _63c77b1">
		<div class="ds-markdown"><div class="ds-markdown-paragraph">%s</div></div>
	</div>`, text)
}

// deepSeekBody wraps messages in the two-pane layout: a sidebar scroll area
// and a transcript scroll area.
func deepSeekBody(sidebar, messages string) string {
	return `<div class="ds-scroll-area sidebar">` + sidebar + `</div>` +
		`<div class="ds-scroll-area main">` + messages + `</div>`
}

const dsAnswer = "use a mutex or a channel to protect shared state"

func TestDeepSeek_ExtractConversations(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCount int
	}{
		{
			name:      "single_scroll_area_only",
			body:      `<div class="ds-scroll-area">` + deepSeekUserMsg("how to avoid data races") + `</div>`,
			wantCount: 0,
		},
		{
			name:      "paired_turn",
			body:      deepSeekBody("", deepSeekUserMsg("how to avoid data races")+deepSeekReplyMsg(dsAnswer)),
			wantCount: 1,
		},
		{
			name: "two_turns",
			body: deepSeekBody("",
				deepSeekUserMsg("how to avoid data races")+deepSeekReplyMsg(dsAnswer)+
					deepSeekUserMsg("when to prefer channels")+deepSeekReplyMsg(dsAnswer+" and share by communicating")),
			wantCount: 2,
		},
		{
			name: "role_markers_swapped_pair_skipped",
			// Reply-shaped element in the user slot: pairing must not
			// mis-assign roles.
			body: deepSeekBody("",
				deepSeekReplyMsg(dsAnswer)+deepSeekUserMsg("how to avoid data races")),
			wantCount: 0,
		},
		{
			name: "non_message_node_breaks_pair",
			body: deepSeekBody("",
				deepSeekUserMsg("how to avoid data races")+
					`<div class="ds-message banner">system notice</div>`+
					deepSeekReplyMsg(dsAnswer)),
			wantCount: 0,
		},
		{
			name:      "answer_too_short",
			body:      deepSeekBody("", deepSeekUserMsg("how to avoid data races")+deepSeekReplyMsg("use a mutex")),
			wantCount: 0,
		},
		{
			name: "duplicate_pairs_collapse",
			body: deepSeekBody("",
				deepSeekUserMsg("how to avoid data races")+deepSeekReplyMsg(dsAnswer)+
					deepSeekUserMsg("how to avoid data races")+deepSeekReplyMsg(dsAnswer)),
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := NewDeepSeek().ExtractConversations(deepSeekPage(t, tt.body))
			if len(records) != tt.wantCount {
				t.Fatalf("record count = %d, want %d", len(records), tt.wantCount)
			}
		})
	}
}

func TestDeepSeek_AnswerFromParagraphs(t *testing.T) {
	reply := `<div class="ds-message _63c77b1">
		<div class="ds-markdown">
			<div class="ds-markdown-paragraph">First paragraph of the reply.</div>
			<div class="ds-markdown-paragraph">Second paragraph of the reply.</div>
		</div>
	</div>`
	body := deepSeekBody("", deepSeekUserMsg("how to avoid data races")+reply)

	records := NewDeepSeek().ExtractConversations(deepSeekPage(t, body))
	if len(records) != 1 {
		t.Fatalf("record count = %d, want 1", len(records))
	}
	want := "First paragraph of the reply.\n\nSecond paragraph of the reply."
	if records[0].Answer != want {
		t.Errorf("answer = %q, want %q", records[0].Answer, want)
	}
}

func TestDeepSeek_TitleExtraction(t *testing.T) {
	tests := []struct {
		name    string
		sidebar string
		want    string
	}{
		{
			name: "sibling_after_focus_ring",
			sidebar: `<div class="ds-focus-ring"></div>
				<div class="a1b2 c3d4">Race condition debugging</div>`,
			want: "Race condition debugging",
		},
		{
			name: "date_bucket_skipped",
			sidebar: `<div class="ds-focus-ring"></div>
				<div class="a1b2 c3d4">7 days</div>
				<div class="e5f6 g7h8">Race condition debugging</div>`,
			want: "Race condition debugging",
		},
		{
			name: "uuid_candidate_rejected_falls_back_to_document_title",
			sidebar: `<div class="ds-focus-ring"></div>
				<div class="a1b2 c3d4">54afa1a3-2865-47ac-b72a-ab8fd84d968c</div>`,
			want: "DeepSeek",
		},
		{
			name:    "no_sidebar_candidates_document_title",
			sidebar: ``,
			want:    "DeepSeek",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := deepSeekBody(tt.sidebar, deepSeekUserMsg("how to avoid data races")+deepSeekReplyMsg(dsAnswer))
			records := NewDeepSeek().ExtractConversations(deepSeekPage(t, body))
			if len(records) != 1 {
				t.Fatalf("record count = %d, want 1", len(records))
			}
			if records[0].Title != tt.want {
				t.Errorf("title = %q, want %q", records[0].Title, tt.want)
			}
		})
	}
}
