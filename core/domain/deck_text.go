package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxTitleLength    = 255
	MaxAreaNameLength = 100
)

// ExtractTags pulls "#tag" words out of text. Tags are lower-cased and
// de-duplicated in order of appearance; the returned text has them removed
// and whitespace collapsed.
func ExtractTags(text string) (string, []string) {
	var (
		words []string
		tags  []string
		seen  = make(map[string]bool)
	)
	for _, word := range strings.Fields(text) {
		if len(word) > 1 && word[0] == '#' {
			tag := strings.ToLower(strings.TrimRightFunc(word[1:], unicode.IsPunct))
			if tag != "" && isTagWord(tag) {
				if !seen[tag] {
					seen[tag] = true
					tags = append(tags, tag)
				}
				continue
			}
		}
		words = append(words, word)
	}
	return strings.Join(words, " "), tags
}

func isTagWord(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

// MergeTags appends extra tags not already present.
func MergeTags(tags []string, extra ...string) []string {
	out := append([]string(nil), tags...)
	for _, tag := range extra {
		found := false
		for _, existing := range out {
			if existing == tag {
				found = true
				break
			}
		}
		if !found {
			out = append(out, tag)
		}
	}
	return out
}

// ValidateTitle returns a user-facing problem with title, or "".
func ValidateTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "title is required"
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "title is too long"
	}
	return ""
}

// ValidateAreaName returns a user-facing problem with name, or "".
func ValidateAreaName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "name is required"
	}
	if utf8.RuneCountInString(name) > MaxAreaNameLength {
		return "name is too long"
	}
	return ""
}
