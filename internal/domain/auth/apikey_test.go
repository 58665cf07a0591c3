package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashKey_Deterministic(t *testing.T) {
	pepper := []byte("pepper")

	a := HashKey(pepper, "key-material")
	b := HashKey(pepper, "key-material")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64) // hex SHA-256

	assert.NotEqual(t, a, HashKey(pepper, "other-key"))
	assert.NotEqual(t, a, HashKey([]byte("other-pepper"), "key-material"))
}

func TestKeyMatches(t *testing.T) {
	pepper := []byte("pepper")
	k := &Key{Hash: HashKey(pepper, "key-material")}

	assert.True(t, k.Matches(HashKey(pepper, "key-material")))
	assert.False(t, k.Matches(HashKey(pepper, "wrong-key")))
	assert.False(t, k.Matches("not hex"))

	corrupted := &Key{Hash: "zz"}
	assert.False(t, corrupted.Matches(HashKey(pepper, "key-material")))
}

func TestKeyHasScope(t *testing.T) {
	scoped := &Key{Scopes: []string{ScopeCreateOrder}}
	assert.True(t, scoped.HasScope(ScopeCreateOrder))
	assert.False(t, scoped.HasScope("admin"))

	unrestricted := &Key{}
	assert.True(t, unrestricted.HasScope(ScopeCreateOrder))
}
