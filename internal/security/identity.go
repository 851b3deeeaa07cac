package security

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// letterCodes maps the leading letter of a Taiwan national ID to its area code
var letterCodes = map[byte]int{
	'A': 10, 'B': 11, 'C': 12, 'D': 13, 'E': 14, 'F': 15, 'G': 16, 'H': 17,
	'I': 34, 'J': 18, 'K': 19, 'L': 20, 'M': 21, 'N': 22, 'O': 35, 'P': 23,
	'Q': 24, 'R': 25, 'S': 26, 'T': 27, 'U': 28, 'V': 29, 'W': 32, 'X': 30,
	'Y': 31, 'Z': 33,
}

// NormalizeIDNumber trims and upper-cases a national ID
func NormalizeIDNumber(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidIDNumber checks the format and checksum of a Taiwan national ID or
// resident certificate number (second digit 1, 2, 8 or 9).
func ValidIDNumber(raw string) bool {
	id := NormalizeIDNumber(raw)
	if len(id) != 10 {
		return false
	}
	code, ok := letterCodes[id[0]]
	if !ok {
		return false
	}
	switch id[1] {
	case '1', '2', '8', '9':
	default:
		return false
	}

	sum := code/10 + (code%10)*9
	for i := 1; i < 10; i++ {
		c := id[i]
		if c < '0' || c > '9' {
			return false
		}
		weight := 9 - i
		if i == 9 {
			weight = 1
		}
		sum += int(c-'0') * weight
	}
	return sum%10 == 0
}

// IdentityHasher hashes national IDs so they are never stored in clear text
type IdentityHasher struct {
	cost int
}

// NewIdentityHasher creates a hasher. A cost of 0 uses bcrypt.DefaultCost.
func NewIdentityHasher(cost int) *IdentityHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &IdentityHasher{cost: cost}
}

// Hash returns the bcrypt hash of the normalised ID number
func (h *IdentityHasher) Hash(idNumber string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(NormalizeIDNumber(idNumber)), h.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash id number: %w", err)
	}
	return hash, nil
}

// Matches reports whether idNumber corresponds to hash
func (h *IdentityHasher) Matches(hash []byte, idNumber string) bool {
	if len(hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(NormalizeIDNumber(idNumber))) == nil
}
