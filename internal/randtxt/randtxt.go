// SPDX-FileCopyrightText: © 2024 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

// Package randtxt provides pseudo-random English-like text for tests
// and benchmarks. The text compresses like natural language but is
// fully determined by the seed of the random source.
package randtxt

import (
	"math/rand"
	"sort"
)

// words lists common English words. Sampling them with Zipf-like
// weights yields letter and digram frequencies close enough to real
// prose for compression tests.
var words = []string{
	"the", "of", "and", "to", "in", "that", "for", "with", "was",
	"his", "on", "are", "they", "this", "have", "from", "one", "had",
	"word", "but", "what", "some", "other", "were", "all", "there",
	"when", "your", "can", "said", "each", "which", "she", "how",
	"their", "will", "about", "out", "many", "then", "them", "these",
	"would", "write", "like", "him", "into", "time", "has", "look",
	"two", "more", "number", "could", "people", "than", "first",
	"water", "been", "call", "who", "oil", "its", "now", "find",
	"long", "down", "day", "did", "get", "come", "made", "may",
	"part", "over", "new", "sound", "take", "only", "little", "work",
	"know", "place", "year", "live", "back", "give", "most", "very",
	"after", "thing", "our", "just", "name", "good", "sentence",
	"man", "think", "say", "great", "where", "help", "through",
	"much", "before", "line", "right", "too", "mean", "old", "any",
	"same", "tell", "boy", "follow", "came", "want", "show", "also",
	"around", "form", "three", "small", "set", "put", "end", "does",
	"another", "well", "large", "must", "big", "even", "such",
	"because", "turn", "here", "why", "ask", "went", "men", "read",
	"need", "land", "different", "home", "move", "try", "kind",
	"hand", "picture", "again", "change", "off", "play", "spell",
	"air", "away", "animal", "house", "point", "page", "letter",
	"mother", "answer", "found", "study", "still", "learn", "should",
	"america", "world",
}

// cum holds the cumulative sampling weights for words.
var cum []int

func init() {
	cum = make([]int, len(words))
	s := 0
	for i := range cum {
		s += 2000 / (i + 2)
		cum[i] = s
	}
}

const lineLen = 72

// A Reader generates an endless stream of English-like text. Read
// never returns an error. Two readers created with sources in the
// same state produce the same byte stream.
type Reader struct {
	rnd  *rand.Rand
	buf  []byte
	off  int
	col  int // output column, 0 at the start of a line
	left int // words remaining in the current sentence
}

// NewReader creates a text reader using the given random source.
func NewReader(src rand.Source) *Reader {
	return &Reader{rnd: rand.New(src)}
}

// Read fills p completely with generated text.
func (r *Reader) Read(p []byte) (n int, err error) {
	for n < len(p) {
		if r.off == len(r.buf) {
			r.next()
		}
		k := copy(p[n:], r.buf[r.off:])
		r.off += k
		n += k
	}
	return n, nil
}

// word samples a single word from the table.
func (r *Reader) word() string {
	t := r.rnd.Intn(cum[len(cum)-1])
	i := sort.SearchInts(cum, t+1)
	return words[i]
}

// next generates the following word, including the separator before it
// and any punctuation after it, into the buffer.
func (r *Reader) next() {
	w := r.word()
	start := r.left == 0
	if start {
		r.left = 4 + r.rnd.Intn(12)
	}
	r.left--

	b := r.buf[:0]
	switch {
	case r.col == 0:
	case r.col+1+len(w)+1 > lineLen:
		b = append(b, '\n')
		r.col = 0
	default:
		b = append(b, ' ')
		r.col++
	}
	m := len(b)
	if start {
		b = append(b, w[0]-'a'+'A')
		b = append(b, w[1:]...)
	} else {
		b = append(b, w...)
	}
	switch {
	case r.left == 0:
		b = append(b, '.')
	case r.rnd.Intn(12) == 0:
		b = append(b, ',')
	}
	r.col += len(b) - m
	r.buf = b
	r.off = 0
}
