package collect

import (
	"strings"
	"unicode"

	"github.com/hoanghai1803/murmur/internal/models"
)

// Fingerprint derives the identity key of a comment from its author and
// text. The key is used only for deduplication, never displayed. The source
// tag is deliberately excluded: a verbatim repost on the other platform
// counts as the same comment.
func Fingerprint(author, text string) string {
	return normalize(author) + "\x00" + normalize(text)
}

// normalize lower-cases a string, collapses internal whitespace to single
// spaces, and trims punctuation and whitespace from both edges.
func normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}

// Merge folds incoming comments into the seen fingerprint set,
// first-occurrence-wins. Comments whose fingerprint is new are accepted and
// recorded in seen; the rest are counted as duplicates and dropped. Incoming
// order is preserved, so merging is deterministic for a given input order.
// The caller owns seen across attempts; Merge keeps no state of its own.
func Merge(seen map[string]struct{}, incoming []models.Comment) (accepted []models.Comment, duplicates int) {
	for _, c := range incoming {
		fp := Fingerprint(c.Author, c.Text)
		if _, ok := seen[fp]; ok {
			duplicates++
			continue
		}
		seen[fp] = struct{}{}
		accepted = append(accepted, c)
	}
	return accepted, duplicates
}
