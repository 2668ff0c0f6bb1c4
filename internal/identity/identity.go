// Package identity describes the principal a cart or an order is attached to.
package identity

import "strconv"

type Kind uint8

const (
	KindGuest Kind = iota
	KindAuthenticated
)

// Identity is either Authenticated(id) or Guest. The zero value is a guest.
type Identity struct {
	kind Kind
	id   int64
}

func Authenticated(id int64) Identity {
	return Identity{kind: KindAuthenticated, id: id}
}

func Guest() Identity {
	return Identity{kind: KindGuest}
}

// FromClaims maps an auth principal onto an Identity. Non-positive ids keep
// the legacy guest meaning and never become durable.
func FromClaims(id int64, isGuest bool) Identity {
	if isGuest || id <= 0 {
		return Guest()
	}
	return Authenticated(id)
}

// ID returns the user id, or 0 for guests.
func (i Identity) ID() int64 {
	if !i.Durable() {
		return 0
	}
	return i.id
}

// Durable reports whether the identity may own rows in the server store.
func (i Identity) Durable() bool {
	return i.kind == KindAuthenticated && i.id > 0
}

func (i Identity) String() string {
	if !i.Durable() {
		return "guest"
	}
	return "user:" + strconv.FormatInt(i.id, 10)
}
