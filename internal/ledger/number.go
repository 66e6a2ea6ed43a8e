package ledger

import "math/rand/v2"

// numberLength is the width of an external account number.
const numberLength = 10

// newAccountNumber draws a random 10-digit numeric string. Uniqueness
// is enforced by the store; OpenAccount retries on collision.
func newAccountNumber() string {
	b := make([]byte, numberLength)
	for i := range b {
		b[i] = byte('0' + rand.IntN(10))
	}
	return string(b)
}
