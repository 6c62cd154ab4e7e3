package domain

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// SiblingAllocation is the integer linked to a session token. Collided is set
// when the range was exhausted and ID is shared with another token.
type SiblingAllocation struct {
	ID       int
	Collided bool
}

// SiblingLinker assigns each session token a stable integer in [0, max).
// Allocated integers are never released for the lifetime of the linker.
type SiblingLinker struct {
	byToken   map[string]int
	allocated map[int]struct{}
}

func NewSiblingLinker() *SiblingLinker {
	return &SiblingLinker{
		byToken:   map[string]int{},
		allocated: map[int]struct{}{},
	}
}

func (l *SiblingLinker) Link(token string, max int) (SiblingAllocation, error) {
	if id, ok := l.byToken[token]; ok {
		return SiblingAllocation{ID: id}, nil
	}
	if max <= 0 {
		return SiblingAllocation{}, fmt.Errorf("%w: range max must be positive, got %d", ErrSiblingLink, max)
	}

	candidate := int(xxhash.Sum64String(token) % uint64(max))
	result := SiblingAllocation{ID: candidate}

	if _, taken := l.allocated[candidate]; taken {
		result.Collided = true
		for i := 0; i < max; i++ {
			if _, taken := l.allocated[i]; !taken {
				result = SiblingAllocation{ID: i}
				break
			}
		}
	}

	l.allocated[result.ID] = struct{}{}
	l.byToken[token] = result.ID
	return result, nil
}

func (l *SiblingLinker) Allocated() int {
	return len(l.allocated)
}
