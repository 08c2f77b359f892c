// Package stageid generates identifiers for settled stages: UUIDv7 encoded
// as 26 characters of Crockford base32, so IDs sort by creation time.
package stageid

import (
	"crypto/rand"
	"fmt"
	"time"
)

const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// RandSource supplies randomness, injectable for deterministic tests.
type RandSource interface {
	Intn(n int) int
}

// Generator produces stage IDs with configurable randomness and time.
type Generator struct {
	rand RandSource
	now  func() time.Time
}

// NewGenerator creates a generator. A nil RandSource uses crypto/rand.
func NewGenerator(rand RandSource) *Generator {
	return &Generator{rand: rand, now: time.Now}
}

// Generate creates a stage ID with the default generator.
func Generate() string {
	return NewGenerator(nil).Generate()
}

// Generate creates a new stage ID.
func (g *Generator) Generate() string {
	return encode(g.uuidv7())
}

func (g *Generator) uuidv7() [16]byte {
	var id [16]byte

	ms := g.now().UnixMilli()
	for i := 0; i < 6; i++ {
		id[i] = byte(ms >> (40 - 8*i))
	}

	if g.rand != nil {
		for i := 6; i < 16; i++ {
			id[i] = byte(g.rand.Intn(256))
		}
	} else if _, err := rand.Read(id[6:]); err != nil {
		panic("stageid: read random bytes: " + err.Error())
	}

	id[6] = (id[6] & 0x0f) | 0x70 // version 7
	id[8] = (id[8] & 0x3f) | 0x80 // RFC 4122 variant

	return id
}

// encode renders 128 bits as 26 base32 characters, five bits per character,
// most significant bits first.
func encode(id [16]byte) string {
	out := make([]byte, 26)
	var acc uint64
	var bits int
	pos := 0
	for _, b := range id {
		acc = acc<<8 | uint64(b)
		bits += 8
		for bits >= 5 && pos < 25 {
			bits -= 5
			out[pos] = alphabet[(acc>>bits)&0x1f]
			pos++
		}
	}
	// 128 = 25*5 + 3: the final character carries the trailing three bits.
	out[25] = alphabet[(acc<<(5-bits))&0x1f]
	return string(out)
}

// Validate checks an ID is 26 characters of the base32 alphabet.
func Validate(id string) error {
	if len(id) != 26 {
		return fmt.Errorf("stage ID must be 26 characters, got %d", len(id))
	}
	for i := 0; i < len(id); i++ {
		if !validChar(id[i]) {
			return fmt.Errorf("invalid character %q at position %d", id[i], i)
		}
	}
	return nil
}

func validChar(c byte) bool {
	for i := 0; i < len(alphabet); i++ {
		if alphabet[i] == c {
			return true
		}
	}
	return false
}
