package domain

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// TokenCorpus is every distinct session value observed in a run, in first-seen order.
type TokenCorpus struct {
	tokens *orderedmap.OrderedMap[string, struct{}]
}

func NewTokenCorpus() *TokenCorpus {
	return &TokenCorpus{tokens: orderedmap.New[string, struct{}]()}
}

func (c *TokenCorpus) Add(token string) {
	if _, ok := c.tokens.Get(token); ok {
		return
	}
	c.tokens.Set(token, struct{}{})
}

func (c *TokenCorpus) Len() int {
	return c.tokens.Len()
}

// Find returns the first token, in first-seen order, accepted by match.
func (c *TokenCorpus) Find(match func(token string) bool) (string, bool) {
	for pair := c.tokens.Oldest(); pair != nil; pair = pair.Next() {
		if match(pair.Key) {
			return pair.Key, true
		}
	}
	return "", false
}

func (c *TokenCorpus) Tokens() []string {
	out := make([]string, 0, c.tokens.Len())
	for pair := c.tokens.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}
