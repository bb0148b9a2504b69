package onnx

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

// BERT special tokens.
const (
	tokenPad = "[PAD]"
	tokenUnk = "[UNK]"
	tokenCLS = "[CLS]"
	tokenSEP = "[SEP]"

	maxWordChars = 100
)

// WordPiece is an uncased BERT tokenizer over a vocab.txt vocabulary.
type WordPiece struct {
	vocab map[string]int64
	pad   int64
	unk   int64
	cls   int64
	sep   int64
}

// LoadVocab reads a vocab.txt file, one token per line, id = line number.
func LoadVocab(path string) (*WordPiece, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()
	return NewWordPiece(f)
}

// NewWordPiece builds a tokenizer from a vocab stream.
func NewWordPiece(r io.Reader) (*WordPiece, error) {
	vocab := make(map[string]int64)
	sc := bufio.NewScanner(r)
	var id int64
	for sc.Scan() {
		tok := strings.TrimRight(sc.Text(), "\r")
		if _, dup := vocab[tok]; !dup {
			vocab[tok] = id
		}
		id++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read vocab: %w", err)
	}

	w := &WordPiece{vocab: vocab}
	for _, sp := range []struct {
		token string
		dst   *int64
	}{
		{tokenPad, &w.pad}, {tokenUnk, &w.unk}, {tokenCLS, &w.cls}, {tokenSEP, &w.sep},
	} {
		v, ok := vocab[sp.token]
		if !ok {
			return nil, fmt.Errorf("vocab is missing %s", sp.token)
		}
		*sp.dst = v
	}
	return w, nil
}

// Encoding is a padded model input.
type Encoding struct {
	InputIDs      []int64
	AttentionMask []int64
	TokenTypeIDs  []int64
	// Tokens counts the unpadded positions, [CLS] and [SEP] included.
	Tokens int
}

// Encode tokenizes text into exactly maxTokens positions: [CLS] pieces [SEP] [PAD]...
// Pieces that do not fit are truncated.
func (w *WordPiece) Encode(text string, maxTokens int) Encoding {
	if maxTokens < 2 {
		maxTokens = 2
	}
	enc := Encoding{
		InputIDs:      make([]int64, maxTokens),
		AttentionMask: make([]int64, maxTokens),
		TokenTypeIDs:  make([]int64, maxTokens),
	}

	ids := make([]int64, 0, maxTokens)
	ids = append(ids, w.cls)
	for _, word := range basicTokenize(text) {
		if len(ids) >= maxTokens-1 {
			break
		}
		ids = append(ids, w.wordPieces(word)...)
	}
	if len(ids) > maxTokens-1 {
		ids = ids[:maxTokens-1]
	}
	ids = append(ids, w.sep)

	for i := range enc.InputIDs {
		if i < len(ids) {
			enc.InputIDs[i] = ids[i]
			enc.AttentionMask[i] = 1
		} else {
			enc.InputIDs[i] = w.pad
		}
	}
	enc.Tokens = len(ids)
	return enc
}

// wordPieces splits one word greedily into the longest vocab pieces.
func (w *WordPiece) wordPieces(word string) []int64 {
	runes := []rune(word)
	if len(runes) > maxWordChars {
		return []int64{w.unk}
	}

	var pieces []int64
	for start := 0; start < len(runes); {
		end := len(runes)
		var id int64
		found := false
		for start < end {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if v, ok := w.vocab[sub]; ok {
				id, found = v, true
				break
			}
			end--
		}
		if !found {
			return []int64{w.unk}
		}
		pieces = append(pieces, id)
		start = end
	}
	return pieces
}

// basicTokenize lowercases, drops control characters and splits on whitespace and punctuation.
func basicTokenize(text string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsSpace(r):
			flush()
		case r == 0 || r == unicode.ReplacementChar || unicode.IsControl(r):
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			words = append(words, string(r))
		case unicode.Is(unicode.Mn, r):
			// combining marks carry accents the uncased vocab does not have
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}
