package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortCodeGenerator_Generate(t *testing.T) {
	g := NewShortCodeGenerator(7)

	t.Run("codes are exactly 7 base62 characters", func(t *testing.T) {
		for i := 0; i < 1000; i++ {
			code, err := g.Generate()
			require.NoError(t, err)
			require.Len(t, code, 7)
			for _, ch := range code {
				assert.True(t, strings.ContainsRune(base62Chars, ch),
					"unexpected character %q in code %q", ch, code)
			}
		}
	})

	t.Run("candidates are independent", func(t *testing.T) {
		seen := make(map[string]struct{})
		for i := 0; i < 1000; i++ {
			code, err := g.Generate()
			require.NoError(t, err)
			_, dup := seen[code]
			require.False(t, dup, "duplicate code %q after %d draws", code, i)
			seen[code] = struct{}{}
		}
	})

	t.Run("respects configured length", func(t *testing.T) {
		for _, length := range []int{1, 4, 12} {
			code, err := NewShortCodeGenerator(length).Generate()
			require.NoError(t, err)
			assert.Len(t, code, length)
		}
	})
}
