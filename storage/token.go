package storage

import "math/rand"

const (
	tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	tokenLength   = 8
)

// generateToken returns a fresh invitation token: 8 symbols drawn uniformly
// from the alphanumeric alphabet. Collisions are left to the UNIQUE
// constraint on users.token; with 62^8 possible tokens the probability is
// negligible and no pre-insert check is made.
func generateToken() string {
	buf := make([]byte, tokenLength)
	for i := range buf {
		buf[i] = tokenAlphabet[rand.Intn(len(tokenAlphabet))]
	}
	return string(buf)
}
