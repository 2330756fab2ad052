package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

const variantsSystemPromptTmpl = `You are a search query writer. Given a topic, produce exactly %d alternative search queries for finding comments and discussions about it on YouTube and Reddit. Vary the wording and style: use synonyms, different perspectives, some casual phrasings and some questions, but keep the core meaning identical. Return ONLY valid JSON: an array of %d strings. No explanations, no numbering, no markdown.`

const relatedSystemPromptTmpl = `You are a research assistant. Given a topic, suggest exactly %d adjacent topics someone researching public opinion about it would also want to look into. Each suggestion must be a short, self-contained search query. Return ONLY valid JSON: an array of %d strings. No explanations, no numbering, no markdown.`

// VariantsPrompt builds the system and user prompts for the query-variant
// suggestion operation.
func VariantsPrompt(query string, n int) (systemPrompt string, userPrompt string) {
	systemPrompt = fmt.Sprintf(variantsSystemPromptTmpl, n, n)
	userPrompt = fmt.Sprintf("Topic: %s", query)
	return systemPrompt, userPrompt
}

// RelatedPrompt builds the system and user prompts for the related-queries
// operation.
func RelatedPrompt(query string, n int) (systemPrompt string, userPrompt string) {
	systemPrompt = fmt.Sprintf(relatedSystemPromptTmpl, n, n)
	userPrompt = fmt.Sprintf("Topic: %s", query)
	return systemPrompt, userPrompt
}

// extractJSON strips markdown code fences from a string that may contain
// JSON wrapped in ```json ... ``` or ``` ... ``` blocks. This handles the
// common case where LLMs return JSON inside code fences.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)

	// Try ```json ... ``` first.
	if after, found := strings.CutPrefix(s, "```json"); found {
		if idx := strings.LastIndex(after, "```"); idx >= 0 {
			after = after[:idx]
		}
		return strings.TrimSpace(after)
	}

	// Try plain ``` ... ```.
	if after, found := strings.CutPrefix(s, "```"); found {
		if idx := strings.LastIndex(after, "```"); idx >= 0 {
			after = after[:idx]
		}
		return strings.TrimSpace(after)
	}

	return s
}

// parseSuggestions turns a model response into at most n non-empty
// suggestion strings. The expected shape is a JSON array of strings, but a
// numbered-list response is accepted as a fallback.
func parseSuggestions(text string, n int) ([]string, error) {
	cleaned := extractJSON(text)

	var items []string
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		items = parseNumberedList(text)
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
		if len(out) == n {
			break
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no suggestions in response")
	}
	return out, nil
}

// parseNumberedList extracts items from a numbered-list response like
// "1. first\n2. second". Models occasionally ignore the JSON instruction and
// answer this way instead.
func parseNumberedList(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !startsWithDigit(line) {
			continue
		}
		_, item, found := strings.Cut(line, ".")
		if !found {
			_, item, found = strings.Cut(line, ")")
		}
		if !found {
			continue
		}
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func startsWithDigit(s string) bool {
	for _, r := range s {
		return unicode.IsDigit(r)
	}
	return false
}
