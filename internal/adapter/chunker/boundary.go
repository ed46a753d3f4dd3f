package chunker

import "unicode"

// Boundary finds candidate cut positions in a rune slice. A cut position p
// splits text into text[:p] and text[p:].
type Boundary interface {
	Name() string
	// LastCut returns the largest cut p with lo < p <= hi, or -1.
	LastCut(text []rune, lo, hi int) int
	// NextCut returns the smallest cut p > from, or -1.
	NextCut(text []rune, from int) int
}

// DefaultBoundaries returns the preference order used when none is configured:
// paragraph, line, sentence, word, character.
func DefaultBoundaries() []Boundary {
	return []Boundary{
		Separator("paragraph", "\n\n"),
		Separator("line", "\n"),
		Sentence(),
		Separator("word", " "),
		Character(),
	}
}

type separatorBoundary struct {
	name string
	sep  []rune
}

// Separator cuts directly after each occurrence of sep.
func Separator(name, sep string) Boundary {
	return separatorBoundary{name: name, sep: []rune(sep)}
}

func (b separatorBoundary) Name() string { return b.name }

func (b separatorBoundary) LastCut(text []rune, lo, hi int) int {
	n := len(b.sep)
	for i := hi - n; i >= 0 && i+n > lo; i-- {
		if b.matchAt(text, i) {
			return i + n
		}
	}
	return -1
}

func (b separatorBoundary) NextCut(text []rune, from int) int {
	n := len(b.sep)
	for i := max(from-n+1, 0); i+n <= len(text); i++ {
		if b.matchAt(text, i) {
			return i + n
		}
	}
	return -1
}

func (b separatorBoundary) matchAt(text []rune, i int) bool {
	if i+len(b.sep) > len(text) {
		return false
	}
	for j, r := range b.sep {
		if text[i+j] != r {
			return false
		}
	}
	return true
}

type sentenceBoundary struct{}

// Sentence cuts after the whitespace that follows '.', '!' or '?'.
func Sentence() Boundary {
	return sentenceBoundary{}
}

func (sentenceBoundary) Name() string { return "sentence" }

func (b sentenceBoundary) LastCut(text []rune, lo, hi int) int {
	for p := min(hi, len(text)); p > lo; p-- {
		if b.cutAt(text, p) {
			return p
		}
	}
	return -1
}

func (b sentenceBoundary) NextCut(text []rune, from int) int {
	for p := from + 1; p <= len(text); p++ {
		if b.cutAt(text, p) {
			return p
		}
	}
	return -1
}

func (sentenceBoundary) cutAt(text []rune, p int) bool {
	if p < 2 || p > len(text) {
		return false
	}
	if !unicode.IsSpace(text[p-1]) {
		return false
	}
	switch text[p-2] {
	case '.', '!', '?':
		return true
	}
	return false
}

type characterBoundary struct{}

// Character cuts anywhere. It always succeeds, so it belongs last.
func Character() Boundary {
	return characterBoundary{}
}

func (characterBoundary) Name() string { return "character" }

func (characterBoundary) LastCut(text []rune, lo, hi int) int {
	if hi > lo {
		return hi
	}
	return -1
}

func (characterBoundary) NextCut(text []rune, from int) int {
	if from < len(text) {
		return from + 1
	}
	return -1
}
