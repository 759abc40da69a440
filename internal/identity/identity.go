// Package identity derives stable, content-based ids for conversation
// records so re-scans of an unchanged page never produce duplicates.
package identity

import "strconv"

// ForConversation builds the record id as
// "{platform}-{hash(pageURL)}-{hash(question|answer)}".
//
// Any edit to question or answer yields a different id and is treated as a
// new conversation, not an update.
func ForConversation(platform, pageURL, question, answer string) string {
	return platform + "-" + Hash(pageURL) + "-" + Hash(question+"|"+answer)
}

// Hash is a 32-bit rolling multiply-and-add checksum, base-36 encoded.
// Not cryptographic; the composite record id carries enough entropy for
// deduplication.
func Hash(s string) string {
	var h int32
	for _, r := range s {
		h = h*31 + int32(r)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 36)
}
