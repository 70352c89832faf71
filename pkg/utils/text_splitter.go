package utils

import "strings"

// SplitText splits a long string into chunks of at most chunkSize runes with
// an overlap between neighbours to preserve context at boundaries. When a
// chunk boundary lands inside a word, the cut backs up to the nearest
// whitespace within a small window so words are not split in half.
func SplitText(text string, chunkSize int, overlap int) []string {
	if chunkSize <= 0 {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize // fallback if overlap >= chunkSize
	}

	var chunks []string
	totalLen := len(runes)
	for i := 0; i < totalLen; i += step {
		end := i + chunkSize
		if end >= totalLen {
			if tail := strings.TrimSpace(string(runes[i:totalLen])); tail != "" {
				chunks = append(chunks, tail)
			}
			break
		}

		cut := end
		// Back up at most 100 runes looking for whitespace.
		for j := end; j > end-100 && j > i; j-- {
			if isSpace(runes[j-1]) {
				cut = j
				break
			}
		}

		chunk := strings.TrimSpace(string(runes[i:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	return chunks
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
