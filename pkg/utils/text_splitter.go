package utils

import (
	"strings"
	"unicode"
)

// ChunkSentences greedily packs sentences into chunks of at most chunkSize
// characters. A chunk is closed when the next sentence would overflow it.
// Sentences longer than chunkSize are cut with SplitText.
func ChunkSentences(text string, chunkSize int) []string {
	if chunkSize <= 0 {
		chunkSize = 1000
	}

	var (
		chunks  []string
		current []string
		size    int
	)
	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current, size = nil, 0
		}
	}

	for _, sent := range SplitSentences(text) {
		n := len([]rune(sent))
		if n > chunkSize {
			flush()
			chunks = append(chunks, SplitText(sent, chunkSize, 0)...)
			continue
		}
		if size+n > chunkSize && len(current) > 0 {
			flush()
		}
		current = append(current, sent)
		size += n
	}
	flush()

	if chunks == nil {
		return []string{}
	}
	return chunks
}

// SplitSentences breaks text after '.', '!' or '?' followed by whitespace,
// and at blank lines. Returned sentences are trimmed and never empty.
func SplitSentences(text string) []string {
	var (
		out   []string
		start int
	)
	runes := []rune(text)
	emit := func(end int) {
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
		start = end
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '.' || r == '!' || r == '?':
			// Swallow runs like "?!" or "..." and closing quotes.
			j := i + 1
			for j < len(runes) && (runes[j] == '.' || runes[j] == '!' || runes[j] == '?' || runes[j] == '"' || runes[j] == '\'' || runes[j] == ')') {
				j++
			}
			if j == len(runes) || unicode.IsSpace(runes[j]) {
				emit(j)
				i = j - 1
			}
		case r == '\n' && i+1 < len(runes) && runes[i+1] == '\n':
			emit(i)
		}
	}
	emit(len(runes))
	return out
}

// SplitText cuts text into pieces of at most chunkSize runes, with overlap
// runes repeated at each boundary.
func SplitText(text string, chunkSize int, overlap int) []string {
	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	totalLen := len(runes)

	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize
	}

	for i := 0; i < totalLen; i += step {
		end := i + chunkSize
		if end > totalLen {
			end = totalLen
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == totalLen {
			break
		}
	}

	return chunks
}
