// Package codegen produces the two credentials an invitation carries: a short
// human-shareable code and a high-entropy link token.
package codegen

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"sync"
)

const (
	// CodeLength is the number of characters in an invitation code.
	CodeLength = 8

	// codeAlphabet is a 32-symbol set with the visually ambiguous
	// I, O, 0 and 1 removed. Codes are read out loud and typed by hand,
	// so every symbol has to survive a phone call.
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// TokenBytes is the raw entropy of a link token; rendered as hex it
	// becomes 64 lowercase characters.
	TokenBytes = 32
)

// Generator produces invitation codes and link tokens.
//
// Codes draw from an injected uniform source so tests can seed it; the code
// space plus the store's uniqueness check is the real defense there. Link
// tokens are bearer credentials embedded in shareable URLs and always come
// from a cryptographically secure source.
type Generator struct {
	mu       sync.Mutex
	rng      *rand.Rand
	tokenSrc io.Reader
}

// New returns a Generator seeded from the OS entropy pool, reading link
// tokens from crypto/rand.
func New() *Generator {
	var seed [16]byte
	if _, err := cryptorand.Read(seed[:]); err != nil {
		panic(fmt.Sprintf("codegen: failed to seed generator: %v", err))
	}
	hi := binary.LittleEndian.Uint64(seed[:8])
	lo := binary.LittleEndian.Uint64(seed[8:])
	return NewWithSources(rand.New(rand.NewPCG(hi, lo)), cryptorand.Reader)
}

// NewWithSources returns a Generator with explicit sources. Tests pass a
// seeded rng and a deterministic token reader.
func NewWithSources(rng *rand.Rand, tokenSrc io.Reader) *Generator {
	return &Generator{rng: rng, tokenSrc: tokenSrc}
}

// Code returns a fresh 8-character invitation code. Uniqueness is not
// guaranteed here; the caller checks against the store and retries.
func (g *Generator) Code() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var b [CodeLength]byte
	for i := range b {
		b[i] = codeAlphabet[g.rng.IntN(len(codeAlphabet))]
	}
	return string(b[:])
}

// Token returns a fresh link token: 32 random bytes as 64 lowercase hex
// characters.
func (g *Generator) Token() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := io.ReadFull(g.tokenSrc, buf); err != nil {
		return "", fmt.Errorf("codegen: failed to read token entropy: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// NormalizeCode canonicalizes user-supplied code input for lookup: trimmed
// and upper-cased, matching the alphabet codes are minted from.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
