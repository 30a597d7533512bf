// Package generate produces random passwords from a categorized alphabet.
// Generation is the one operation that does not require a session.
package generate

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

const DefaultLength = 16

// Space, backslash and quote characters are excluded from the symbol set so
// generated passwords paste cleanly into shells and config files.
var (
	upper   = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	lower   = []byte("abcdefghijklmnopqrstuvwxyz")
	digits  = []byte("0123456789")
	symbols = []byte("!@#$%^&*()-_=+[]{};:,.?/")

	categories = [][]byte{upper, lower, digits, symbols}
)

// Password returns a random password of the given length (minimum 1). Each
// category contributes at least one character when the length allows, and
// the result is shuffled so the category picks do not lead.
func Password(length int) (string, error) {
	if length < 1 {
		length = 1
	}

	alphabet := make([]byte, 0, len(upper)+len(lower)+len(digits)+len(symbols))
	for _, cat := range categories {
		alphabet = append(alphabet, cat...)
	}

	buf := make([]byte, 0, length)
	for _, cat := range categories {
		if len(buf) >= length {
			break
		}
		i, err := randIndex(len(cat))
		if err != nil {
			return "", err
		}
		buf = append(buf, cat[i])
	}
	for len(buf) < length {
		i, err := randIndex(len(alphabet))
		if err != nil {
			return "", err
		}
		buf = append(buf, alphabet[i])
	}

	if err := shuffle(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// randIndex returns a uniform index in [0, n) using rejection sampling over
// a random uint64, avoiding modulo bias.
func randIndex(n int) (int, error) {
	if n <= 1 {
		return 0, nil
	}
	bound := uint64(n)
	zone := ^uint64(0) - (^uint64(0) % bound)
	var b [8]byte
	for {
		if _, err := rand.Read(b[:]); err != nil {
			return 0, fmt.Errorf("generate: read random: %w", err)
		}
		v := binary.BigEndian.Uint64(b[:])
		if v < zone {
			return int(v % bound), nil
		}
	}
}

// shuffle performs a Fisher-Yates shuffle in place.
func shuffle(data []byte) error {
	for i := len(data) - 1; i >= 1; i-- {
		j, err := randIndex(i + 1)
		if err != nil {
			return err
		}
		data[i], data[j] = data[j], data[i]
	}
	return nil
}
