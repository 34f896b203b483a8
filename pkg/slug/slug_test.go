package slug_test

import (
	"strings"
	"testing"

	"swiftshare-go/pkg/slug"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func TestGenerateLengthAndAlphabet(t *testing.T) {
	for _, length := range []int{1, 8, 12, 32} {
		s := slug.Generate(length)
		assert.Len(t, s, length)
		for _, c := range s {
			assert.True(t, strings.ContainsRune(alphabet, c), "unexpected character %q", c)
		}
	}
}

func TestGenerateDefaultLength(t *testing.T) {
	assert.Len(t, slug.Generate(0), slug.DefaultLength)
	assert.Len(t, slug.Generate(-3), slug.DefaultLength)
}

func TestGenerateUniqueRetriesOnCollision(t *testing.T) {
	taken := map[string]bool{}
	calls := 0
	// 前两个候选视为已占用，第三个放行
	s, err := slug.GenerateUnique(12, func(candidate string) bool {
		calls++
		if calls <= 2 {
			taken[candidate] = true
			return true
		}
		return false
	})
	require.NoError(t, err)
	assert.Len(t, s, 12)
	assert.False(t, taken[s])
	assert.Equal(t, 3, calls)
}

func TestGenerateUniqueExhausted(t *testing.T) {
	_, err := slug.GenerateUnique(12, func(string) bool { return true })
	require.ErrorIs(t, err, slug.ErrExhausted)
}

func TestGeneratePairwiseDistinct(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		s := slug.Generate(12)
		_, dup := seen[s]
		require.False(t, dup, "slug %q generated twice", s)
		seen[s] = struct{}{}
	}
}
