package adapter

import (
	"regexp"
	"strings"
)

// Session lists in chat sidebars bucket conversations under labels like
// "yesterday" or "7 days"; those must never be mistaken for titles.
var dateBucketLabels = []string{
	"昨天", "今天", "明天",
	"7天内", "30天内", "7天", "30天",
	"一周内", "一个月内", "一年内",
	"yesterday", "today", "tomorrow",
	"7 days", "30 days", "week", "month", "year",
}

var (
	uuidPattern   = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	hexPattern    = regexp.MustCompile(`^[a-f0-9]{16,}$`)
	letterPattern = regexp.MustCompile(`[\p{Han}\p{Hiragana}\p{Katakana}\p{Hangul}a-zA-Z]`)
)

func isDateBucketLabel(s string) bool {
	lower := strings.ToLower(s)
	for _, label := range dateBucketLabels {
		if strings.Contains(lower, strings.ToLower(label)) {
			return true
		}
	}
	return false
}

// isValidTitle rejects candidate strings that are too short, look like
// generated identifiers (UUIDs, hex hashes), or carry no alphabetic/CJK
// character at all.
func isValidTitle(s string) bool {
	if len(s) < 3 {
		return false
	}
	lower := strings.ToLower(s)
	if uuidPattern.MatchString(lower) || hexPattern.MatchString(lower) {
		return false
	}
	return letterPattern.MatchString(s)
}
