package engine

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"math"
)

// ByteGenerator streams bytes from HMAC-SHA256(server, "client:nonce:round").
// Each round yields 32 bytes; the round counter advances when a buffer is spent.
type ByteGenerator struct {
	serverSeed   string
	clientSeed   string
	nonce        uint64
	currentRound uint64
	currentPos   int
	buffer       [32]byte
}

// NewByteGenerator creates a generator positioned at cursor bytes into the stream.
func NewByteGenerator(serverSeed, clientSeed string, nonce uint64, cursor uint64) *ByteGenerator {
	bg := &ByteGenerator{
		serverSeed:   serverSeed,
		clientSeed:   clientSeed,
		nonce:        nonce,
		currentRound: cursor / 32,
		currentPos:   int(cursor % 32),
	}
	bg.generateRound()
	return bg
}

// Next returns the next byte from the generator.
func (bg *ByteGenerator) Next() byte {
	if bg.currentPos >= 32 {
		bg.currentRound++
		bg.currentPos = 0
		bg.generateRound()
	}

	b := bg.buffer[bg.currentPos]
	bg.currentPos++
	return b
}

// NextFloat consumes exactly 4 bytes and returns a float in [0, 1).
func (bg *ByteGenerator) NextFloat() float64 {
	return bytesToFloat([4]byte{bg.Next(), bg.Next(), bg.Next(), bg.Next()})
}

func (bg *ByteGenerator) generateRound() {
	h := hmac.New(sha256.New, []byte(bg.serverSeed))
	fmt.Fprintf(h, "%s:%d:%d", bg.clientSeed, bg.nonce, bg.currentRound)
	copy(bg.buffer[:], h.Sum(nil))
}

// bytesToFloat computes b0/256 + b1/256^2 + b2/256^3 + b3/256^4.
func bytesToFloat(bytes [4]byte) float64 {
	result := 0.0
	for i, b := range bytes {
		result += float64(b) / math.Pow(256, float64(i+1))
	}
	return result
}

// Floats generates count floats for the given seeds starting at cursor.
func Floats(seeds Seeds, cursor uint64, count int) []float64 {
	bg := NewByteGenerator(seeds.Server, seeds.Client, seeds.Nonce, cursor)
	floats := make([]float64, count)
	for i := range floats {
		floats[i] = bg.NextFloat()
	}
	return floats
}

// Source yields uniformly distributed indexes. Party generation draws from a
// Source so tests and replays can inject a fixed sequence.
type Source interface {
	IntN(n int) int
}

// Stream is a Source backed by a ByteGenerator. It is not safe for
// concurrent use.
type Stream struct {
	bg    *ByteGenerator
	draws uint64
}

// NewStream opens a draw stream for the given seeds at cursor 0.
func NewStream(seeds Seeds) *Stream {
	return &Stream{bg: NewByteGenerator(seeds.Server, seeds.Client, seeds.Nonce, 0)}
}

// Float64 returns the next float in [0, 1).
func (s *Stream) Float64() float64 {
	s.draws++
	return s.bg.NextFloat()
}

// IntN returns an index in [0, n). It panics if n <= 0, like math/rand.
func (s *Stream) IntN(n int) int {
	if n <= 0 {
		panic("engine: IntN called with non-positive n")
	}
	idx := int(math.Floor(s.Float64() * float64(n)))
	if idx >= n {
		idx = n - 1
	}
	return idx
}

// Draws reports how many floats the stream has produced.
func (s *Stream) Draws() uint64 {
	return s.draws
}
