package adapter

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/sandevgo/convkeep/internal/core"
	"github.com/sandevgo/convkeep/internal/identity"
)

// minQuestionLen is shared by all adapters: anything at or below it is
// treated as a not-yet-rendered placeholder, not a valid turn.
const minQuestionLen = 5

// ChatGPT extracts turns from chat.openai.com. The markup changes often,
// so both the turn grouping and the role elements are located through
// prioritized selector fallbacks.
type ChatGPT struct{}

func NewChatGPT() *ChatGPT { return &ChatGPT{} }

func (c *ChatGPT) Name() string { return "ChatGPT" }

func (c *ChatGPT) Detect(page *Page) bool {
	return strings.Contains(page.Hostname(), "chat.openai.com")
}

func (c *ChatGPT) ObserveTarget() string {
	return `[data-testid*="conversation"], main, [role="main"]`
}

func (c *ChatGPT) MutationKeywords() []string {
	return []string{"message", "conversation"}
}

const chatGPTMinAnswerLen = 10

var (
	chatGPTTurnSelectors = []string{
		`[data-testid*="conversation-turn"]`,
		`div[class*="group"]`,
		`div[class*="message"]`,
	}
	chatGPTUserSelectors = []string{
		`[data-message-author-role="user"]`,
		`div[class*="user"]`,
	}
	chatGPTAssistantSelectors = []string{
		`[data-message-author-role="assistant"]`,
		`div[class*="assistant"]`,
		`div[class*="model"]`,
	}
)

func (c *ChatGPT) ExtractConversations(page *Page) []core.ConversationRecord {
	turns := firstMatch(page.Body(), chatGPTTurnSelectors...)
	if turns == nil {
		return nil
	}

	var records []core.ConversationRecord
	seen := make(map[string]struct{})

	turns.Each(func(_ int, group *goquery.Selection) {
		query := firstMatch(group, chatGPTUserSelectors...)
		answerEl := firstMatch(group, chatGPTAssistantSelectors...)
		if query == nil || answerEl == nil {
			return
		}

		question := text(query)
		answer := text(answerEl)
		if utf8.RuneCountInString(question) <= minQuestionLen {
			return
		}
		if utf8.RuneCountInString(answer) < chatGPTMinAnswerLen {
			return
		}

		id := identity.ForConversation(c.Name(), page.URL(), question, answer)
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}

		records = append(records, core.ConversationRecord{
			ID:           id,
			Timestamp:    time.Now(),
			Platform:     c.Name(),
			Domain:       page.Hostname(),
			Question:     question,
			Answer:       answer,
			QuestionHTML: snapshotHTML(query),
			AnswerHTML:   snapshotHTML(answerEl),
			PageURL:      page.URL(),
		})
	})

	return records
}
