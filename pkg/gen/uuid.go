package gen

import (
	"github.com/google/uuid"
)

// UUIDGenerator yields identifiers. The default one is random (v4) so the
// values cannot be guessed from earlier ones.
type UUIDGenerator func() uuid.UUID

func UUID() UUIDGenerator {
	return func() uuid.UUID {
		return uuid.New()
	}
}

func (g UUIDGenerator) Next() uuid.UUID {
	if g == nil {
		return uuid.New()
	}

	return g()
}

func (g UUIDGenerator) NextString() string {
	return g.Next().String()
}
