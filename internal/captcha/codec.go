package captcha

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// Alphabet holds every glyph the site draws, in class index order.
	Alphabet = "2345678abcdefghkmnprwxy"

	// Length is the number of glyphs in every challenge.
	Length = 5
)

// Encode converts a label into a Length x len(Alphabet) one-hot matrix.
func Encode(label string) ([][]float32, error) {
	runes := []rune(label)
	if len(runes) != Length {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidLabelLength, len(runes), Length)
	}

	out := make([][]float32, Length)
	for i, r := range runes {
		idx := strings.IndexRune(Alphabet, r)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %q at position %d", ErrInvalidLabelChar, r, i)
		}
		row := make([]float32, len(Alphabet))
		row[idx] = 1
		out[i] = row
	}
	return out, nil
}

// Decode picks the highest scoring class per position. Ties resolve to the
// class that comes first in Alphabet.
func Decode(prediction [][]float64) (string, error) {
	if len(prediction) != Length {
		return "", fmt.Errorf("%w: %d positions", ErrPredictionShape, len(prediction))
	}

	var b strings.Builder
	for pos, scores := range prediction {
		if len(scores) != len(Alphabet) {
			return "", fmt.Errorf("%w: position %d has %d classes", ErrPredictionShape, pos, len(scores))
		}
		best := 0
		for i := 1; i < len(scores); i++ {
			if scores[i] > scores[best] {
				best = i
			}
		}
		b.WriteByte(Alphabet[best])
	}
	return b.String(), nil
}

// DecodeBatch decodes a prediction that may still carry the leading batch
// dimension returned by the inference server.
func DecodeBatch(batch [][][]float64) (string, error) {
	if len(batch) != 1 {
		return "", fmt.Errorf("%w: batch of %d", ErrPredictionShape, len(batch))
	}
	return Decode(batch[0])
}

// DecodeRaw decodes a JSON prediction with or without the batch dimension.
func DecodeRaw(raw json.RawMessage) (string, error) {
	var batched [][][]float64
	if err := json.Unmarshal(raw, &batched); err == nil {
		return DecodeBatch(batched)
	}

	var plain [][]float64
	if err := json.Unmarshal(raw, &plain); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPredictionShape, err)
	}
	return Decode(plain)
}
