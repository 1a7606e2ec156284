package uuid

import (
	"strings"
	"testing"

	"github.com/bmizerany/assert"
)

func TestGenUUID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		uuid := GenUUID()
		assert.Equal(t, UUID_LENGTH, len(uuid))
		assert.T(t, !seen[uuid], "duplicate uuid", uuid)
		seen[uuid] = true
	}
}

func TestGenKey(t *testing.T) {
	key := GenKey(10, KeyAlphabet)
	assert.Equal(t, 10, len(key))
	for _, c := range key {
		assert.T(t, strings.ContainsRune(KeyAlphabet, c), key)
	}
	assert.NotEqual(t, key, GenKey(10, KeyAlphabet))
}

func BenchmarkGenUUID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		GenUUID()
	}
}
