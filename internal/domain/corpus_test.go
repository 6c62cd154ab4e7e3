package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenCorpusKeepsFirstSeenOrder(t *testing.T) {
	t.Parallel()

	c := NewTokenCorpus()
	for _, token := range []string{"b", "a", "b", "c", "a"} {
		c.Add(token)
	}

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"b", "a", "c"}, c.Tokens())

	found, ok := c.Find(func(token string) bool { return token != "b" })
	assert.True(t, ok)
	assert.Equal(t, "a", found)

	_, ok = c.Find(func(string) bool { return false })
	assert.False(t, ok)
}
