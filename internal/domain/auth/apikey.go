package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// ScopeCreateOrder authorizes placing and quoting orders.
const ScopeCreateOrder = "create_order"

// Key is an issued API key. Only the peppered digest of the key material is
// stored; the plaintext key exists client-side only.
type Key struct {
	ID     string
	Hash   string
	Name   string
	Scopes []string
}

// HashKey computes the digest stored and looked up for an API key: the hex
// encoded HMAC-SHA256 of the key material under the server pepper.
func HashKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Matches compares a presented digest against the stored one in constant
// time.
func (k *Key) Matches(hash string) bool {
	stored, err := hex.DecodeString(k.Hash)
	if err != nil {
		return false
	}
	presented, err := hex.DecodeString(hash)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(presented, stored) == 1
}

// HasScope reports whether the key grants the named scope. A key issued
// without scopes is unrestricted.
func (k *Key) HasScope(scope string) bool {
	if len(k.Scopes) == 0 {
		return true
	}
	for _, s := range k.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Repository provides lookup of API keys by their stored digest.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*Key, error)
}
