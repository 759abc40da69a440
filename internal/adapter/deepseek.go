package adapter

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/sandevgo/convkeep/internal/core"
	"github.com/sandevgo/convkeep/internal/identity"
)

// DeepSeek extracts turns from chat.deepseek.com. Messages are a flat
// .ds-message list inside a scroll area, paired positionally: even index is
// the user turn, odd the reply. Position alone is not trusted — the hashed
// class markers below must match the expected role, otherwise the pair is
// skipped. This guards against non-message nodes inserted between turns.
type DeepSeek struct{}

func NewDeepSeek() *DeepSeek { return &DeepSeek{} }

func (d *DeepSeek) Name() string { return "DeepSeek" }

func (d *DeepSeek) Detect(page *Page) bool {
	return strings.Contains(page.Hostname(), "deepseek.com")
}

func (d *DeepSeek) ObserveTarget() string { return ".ds-scroll-area" }

func (d *DeepSeek) MutationKeywords() []string {
	return []string{"ds-message", "ds-markdown", "ds-markdown-paragraph"}
}

const deepSeekMinAnswerLen = 20

// Hashed class markers from the DeepSeek frontend build. userMarker is
// present only on user messages; messageMarker on both roles.
const (
	deepSeekUserMarker    = "d29f3d7d"
	deepSeekMessageMarker = "_63c77b1"
)

func (d *DeepSeek) ExtractConversations(page *Page) []core.ConversationRecord {
	area := d.messageArea(page)
	if area == nil {
		return nil
	}

	title := d.extractTitle(page, area)

	var messages []*goquery.Selection
	area.Find(".ds-message").Each(func(_ int, s *goquery.Selection) {
		messages = append(messages, s)
	})
	if len(messages) == 0 {
		return nil
	}

	var records []core.ConversationRecord
	seen := make(map[string]struct{})

	for i := 0; i+1 < len(messages); i += 2 {
		queryEl, answerEl := messages[i], messages[i+1]

		queryClasses := queryEl.AttrOr("class", "")
		answerClasses := answerEl.AttrOr("class", "")

		isUser := strings.Contains(queryClasses, deepSeekUserMarker) &&
			strings.Contains(queryClasses, "ds-message") &&
			strings.Contains(queryClasses, deepSeekMessageMarker)
		isReply := strings.Contains(answerClasses, deepSeekMessageMarker) &&
			strings.Contains(answerClasses, "ds-message") &&
			!strings.Contains(answerClasses, deepSeekUserMarker)
		if !isUser || !isReply {
			continue
		}

		question := text(queryEl)
		if utf8.RuneCountInString(question) <= minQuestionLen {
			continue
		}

		answer, answerHTML := d.extractAnswer(answerEl)
		if utf8.RuneCountInString(answer) < deepSeekMinAnswerLen {
			continue
		}

		id := identity.ForConversation(d.Name(), page.URL(), question, answer)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		records = append(records, core.ConversationRecord{
			ID:           id,
			Timestamp:    time.Now(),
			Platform:     d.Name(),
			Domain:       page.Hostname(),
			Question:     question,
			Answer:       answer,
			QuestionHTML: snapshotHTML(queryEl),
			AnswerHTML:   answerHTML,
			Title:        title,
			PageURL:      page.URL(),
		})
	}

	return records
}

// messageArea finds the scroll area holding the transcript: the page has
// one scroll area for the session list and one for messages, told apart by
// which of them contains .ds-message nodes.
func (d *DeepSeek) messageArea(page *Page) *goquery.Selection {
	areas := page.Find(".ds-scroll-area")
	if areas.Length() < 2 {
		return nil
	}

	var found *goquery.Selection
	areas.EachWithBreak(func(_ int, area *goquery.Selection) bool {
		if area.Find(".ds-message").Length() > 0 {
			found = area
			return false
		}
		return true
	})
	return found
}

// extractAnswer prefers the markdown paragraphs of a reply, falling back to
// the markdown container, then the raw message element.
func (d *DeepSeek) extractAnswer(answerEl *goquery.Selection) (string, string) {
	markdown := answerEl.Find(".ds-markdown").First()
	if markdown.Length() == 0 {
		return text(answerEl), snapshotHTML(answerEl)
	}

	paragraphs := markdown.Find(".ds-markdown-paragraph")
	if paragraphs.Length() == 0 {
		return text(markdown), snapshotHTML(markdown)
	}

	var parts []string
	paragraphs.Each(func(_ int, p *goquery.Selection) {
		if t := text(p); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, "\n\n"), joinedSnapshotHTML(paragraphs)
}

// extractTitle walks the session list for the active conversation title.
// Strategy 1: sibling elements following a .ds-focus-ring in the non-message
// scroll areas. Strategy 2: elements with known hashed title classes that sit
// shortly after a focus ring. Strategy 3: the document title.
func (d *DeepSeek) extractTitle(page *Page, messageArea *goquery.Selection) string {
	var title string

	page.Find(".ds-scroll-area").EachWithBreak(func(_ int, area *goquery.Selection) bool {
		if messageArea != nil && area.Length() > 0 && messageArea.Length() > 0 &&
			area.Get(0) == messageArea.Get(0) {
			return true
		}
		area.Find(".ds-focus-ring").EachWithBreak(func(_ int, ring *goquery.Selection) bool {
			title = titleAfterFocusRing(ring)
			return title == ""
		})
		return title == ""
	})
	if title != "" {
		return title
	}

	page.Find(`[class*="afa34042"], [class*="e37a04e4"], [class*="e0a1edb7"]`).
		EachWithBreak(func(_ int, candidate *goquery.Selection) bool {
			if !followsFocusRing(candidate) {
				return true
			}
			t := text(candidate)
			if t != "" && !isDateBucketLabel(t) && isValidTitle(t) {
				title = t
				return false
			}
			return true
		})
	if title != "" {
		return title
	}

	if t := page.DocumentTitle(); isValidTitle(t) {
		return t
	}
	return ""
}

// titleAfterFocusRing scans up to five elements after the ring, stopping at
// the next ring, for something that looks like a session title.
func titleAfterFocusRing(ring *goquery.Selection) string {
	next := ring.Next()
	for checked := 0; next.Length() > 0 && checked < 5; checked++ {
		classes := next.AttrOr("class", "")
		if len(strings.Fields(classes)) >= 2 {
			t := text(next)
			if t != "" && !isDateBucketLabel(t) && len(t) > 3 && isValidTitle(t) {
				return t
			}
		}
		next = next.Next()
		if next.HasClass("ds-focus-ring") {
			break
		}
	}
	return ""
}

func followsFocusRing(candidate *goquery.Selection) bool {
	prev := candidate.Prev()
	for checked := 0; prev.Length() > 0 && checked < 3; checked++ {
		if prev.HasClass("ds-focus-ring") {
			return true
		}
		prev = prev.Prev()
	}
	return false
}
