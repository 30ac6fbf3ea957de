package chunking

import (
	"strings"
	"unicode"
)

// Splitter breaks cleaned text into overlapping chunks along sentence
// boundaries. Sentences are never split: a sentence longer than ChunkSize is
// emitted whole rather than cut mid-sentence.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	sentences := splitSentences(text)

	var chunks []string
	var current []string
	currentSize := 0

	for _, sentence := range sentences {
		sentenceSize := len(sentence)

		if currentSize+sentenceSize > s.ChunkSize && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))

			// Seed the next chunk with a trailing run of sentences whose
			// cumulative length stays within the overlap budget. A previous
			// chunk that fits entirely inside the budget seeds nothing.
			if len(strings.Join(current, " ")) > s.Overlap {
				var overlapSentences []string
				overlapSize := 0
				for i := len(current) - 1; i >= 0; i-- {
					if overlapSize+len(current[i]) > s.Overlap {
						break
					}
					overlapSentences = append([]string{current[i]}, overlapSentences...)
					overlapSize += len(current[i])
				}
				current = overlapSentences
				currentSize = overlapSize
			} else {
				current = nil
				currentSize = 0
			}
		}

		current = append(current, sentence)
		currentSize += sentenceSize
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// splitSentences cuts text after terminal punctuation (. ! ?) followed by
// whitespace, consuming the whitespace run. The rule is fixed and
// locale-independent so chunking stays deterministic.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	i := 0
	for i < len(runes) {
		r := runes[i]
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			sentences = append(sentences, current.String())
			current.Reset()
			i++
			for i < len(runes) && unicode.IsSpace(runes[i]) {
				i++
			}
			continue
		}
		i++
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}
