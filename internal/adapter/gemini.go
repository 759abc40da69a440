package adapter

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/sandevgo/convkeep/internal/core"
	"github.com/sandevgo/convkeep/internal/identity"
)

// Gemini extracts turns from gemini.google.com. The chat transcript lives
// under #chat-history as a flat list of conversation containers, each
// holding one user query element and one response element.
type Gemini struct{}

func NewGemini() *Gemini { return &Gemini{} }

func (g *Gemini) Name() string { return "Gemini" }

func (g *Gemini) Detect(page *Page) bool {
	return strings.Contains(page.Hostname(), "gemini.google.com")
}

func (g *Gemini) ObserveTarget() string { return "#chat-history" }

func (g *Gemini) MutationKeywords() []string {
	return []string{
		"conversation-container",
		"user-query-container",
		"response-container-content",
		"chat-history",
	}
}

const geminiMinAnswerLen = 20

func (g *Gemini) ExtractConversations(page *Page) []core.ConversationRecord {
	history := page.Find("#chat-history")
	if history.Length() == 0 {
		return nil
	}

	title := text(page.Find(`[class*="conversation-title"]`))

	var records []core.ConversationRecord
	seen := make(map[string]struct{})

	history.Find(`[class*="conversation-container"]`).Each(func(_ int, container *goquery.Selection) {
		query := container.Find(`[class*="user-query-container"]`).First()
		if query.Length() == 0 {
			return
		}
		response := container.Find(`[class*="response-container-content"]`).First()
		if response.Length() == 0 {
			return
		}

		question := text(query)
		answer := text(response)
		if utf8.RuneCountInString(question) <= minQuestionLen {
			return
		}
		if utf8.RuneCountInString(answer) < geminiMinAnswerLen {
			return
		}

		id := identity.ForConversation(g.Name(), page.URL(), question, answer)
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}

		records = append(records, core.ConversationRecord{
			ID:           id,
			Timestamp:    time.Now(),
			Platform:     g.Name(),
			Domain:       page.Hostname(),
			Question:     question,
			Answer:       answer,
			QuestionHTML: snapshotHTML(query),
			AnswerHTML:   snapshotHTML(response),
			Title:        title,
			PageURL:      page.URL(),
		})
	})

	return records
}
