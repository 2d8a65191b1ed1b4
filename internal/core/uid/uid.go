package uid

import (
	"fmt"

	"github.com/google/uuid"
)

// ID is a globally unique, string-round-trippable identifier.
// The zero value is the null id.
type ID string

// Null is the empty id. Messages with a null about-actor id are not routed to actors.
const Null ID = ""

// New returns a fresh random id.
func New() ID {
	return ID(uuid.NewString())
}

// Parse validates s and returns it as an ID. The empty string parses to Null.
func Parse(s string) (ID, error) {
	if s == "" {
		return Null, nil
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return Null, fmt.Errorf("parse unique id %q: %w", s, err)
	}
	return ID(u.String()), nil
}

// MustParse is Parse for ids embedded in code and test fixtures.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ID) String() string { return string(id) }
func (id ID) IsNull() bool   { return id == Null }
