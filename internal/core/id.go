package core

import (
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// idLength is the width of a 128-bit value in base 36.
const idLength = 25

// GenerateID returns a new opaque identifier: a random UUID written in
// lowercase base 36, zero-padded to a fixed width.
func GenerateID() string {
	u := uuid.New()
	s := new(big.Int).SetBytes(u[:]).Text(36)
	return strings.Repeat("0", idLength-len(s)) + s
}
