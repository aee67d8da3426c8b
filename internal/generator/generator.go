// Package generator builds race paragraphs.
package generator

import (
	"math/rand"
	"strings"
	"time"
)

// DefaultWords is the paragraph length used when none is configured.
const DefaultWords = 200

// Generator produces randomized prompt text.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed returns a deterministic Generator.
func NewWithSeed(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Generate selects count words uniformly, with replacement.
func (g *Generator) Generate(words []string, count int) []string {
	if len(words) == 0 || count <= 0 {
		return nil
	}
	result := make([]string, 0, count)
	for i := 0; i < count; i++ {
		result = append(result, words[g.rnd.Intn(len(words))])
	}
	return result
}

// Paragraph joins count random words with single spaces. The paragraph ends
// with a space so the last word is scored like every other.
func (g *Generator) Paragraph(words []string, count int) string {
	picked := g.Generate(words, count)
	if len(picked) == 0 {
		return ""
	}
	return strings.Join(picked, " ") + " "
}
