// Package text holds the prompt-shaping routines: sentence segmentation,
// budget truncation, and output filename generation.
package text

import (
	"math/rand"
	"strings"
	"unicode"
)

// maxSlugLen caps the slug portion of generated filenames.
const maxSlugLen = 50

// SplitSentences cuts text after each terminal . ! or ?, folding the
// whitespace that follows the terminator into the sentence it closes.
// Joining the returned slices reproduces the input exactly; a trailing
// fragment with no terminator counts as one more sentence.
func SplitSentences(text string) []string {
	var sentences []string
	var buf strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		buf.WriteRune(runes[i])
		if !terminatesSentence(runes[i]) {
			continue
		}
		for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			i++
			buf.WriteRune(runes[i])
		}
		sentences = append(sentences, buf.String())
		buf.Reset()
	}
	if buf.Len() > 0 {
		sentences = append(sentences, buf.String())
	}
	return sentences
}

func terminatesSentence(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// TruncateChars shortens text to at most max characters, cutting at
// sentence boundaries. Whole sentences are kept while they fit. When not
// even the first sentence fits, the text is cut at the last word boundary
// before max, or hard-cut at max when it contains no space at all.
// The result is trimmed of surrounding whitespace.
func TruncateChars(text string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(text) <= max {
		return strings.TrimSpace(text)
	}

	var b strings.Builder
	for _, s := range SplitSentences(text) {
		if b.Len()+len(s) > max {
			break
		}
		b.WriteString(s)
	}
	truncated := strings.TrimSpace(b.String())
	if truncated != "" {
		return truncated
	}

	// No complete sentence fits. Fall back to a word boundary.
	if idx := strings.LastIndex(text[:max], " "); idx > 0 {
		return strings.TrimSpace(text[:idx])
	}
	return text[:max]
}

// TruncateSentences keeps at most max sentences, trimmed of surrounding
// whitespace. A non-positive max yields the empty string.
func TruncateSentences(text string, max int) string {
	if max <= 0 {
		return ""
	}
	sentences := SplitSentences(text)
	if len(sentences) > max {
		sentences = sentences[:max]
	}
	return strings.TrimSpace(strings.Join(sentences, ""))
}

// Filename derives a WAV filename from a prompt: lowercased, punctuation
// folded into dashes, capped at 50 characters, plus a random four-letter
// suffix so repeated prompts never collide.
func Filename(prompt string) string {
	return Slugify(prompt) + "-" + randSuffix(4) + ".wav"
}

// Slugify converts a prompt into a filesystem-safe slug.
func Slugify(prompt string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(prompt) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			// Spaces and punctuation alike collapse into one dash.
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugLen {
		slug = strings.Trim(slug[:maxSlugLen], "-")
	}
	return slug
}

func randSuffix(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
