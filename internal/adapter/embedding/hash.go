package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const defaultHashDimension = 256

// Hash is a deterministic bag-of-words embedder using signed feature
// hashing. It needs no network and suits offline runs and tests; texts that
// share words score high, nothing more.
type Hash struct {
	dim int
}

func NewHash(dim int) *Hash {
	if dim <= 0 {
		dim = defaultHashDimension
	}
	return &Hash{dim: dim}
}

func (h *Hash) Embed(_ context.Context, texts []string, _ Task) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = h.vector(t)
	}
	return out, nil
}

func (h *Hash) vector(text string) []float32 {
	v := make([]float32, h.dim)
	for _, w := range words(text) {
		f := fnv.New64a()
		f.Write([]byte(w))
		sum := f.Sum64()
		idx := int(sum % uint64(h.dim))
		if sum>>63 == 1 {
			v[idx]--
		} else {
			v[idx]++
		}
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}

// words lower-cases text and keeps runs of letters and digits of length two or more.
func words(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			out = append(out, f)
		}
	}
	return out
}

func (h *Hash) Dimension() int    { return h.dim }
func (h *Hash) ModelName() string { return "fnv-bow" }
func (h *Hash) Provider() string  { return "hash" }
