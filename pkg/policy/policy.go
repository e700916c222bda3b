// Package policy decides whether a principal may perform an action on a
// resource. Decisions are computed per request from the principal's current
// role and the resource's ownership; nothing is cached.
package policy

import (
	"github.com/Slimpush/api-yamdb-final-master/pkg/apperr"
)

// Principal is the actor behind a request. A nil Principal is anonymous.
type Principal interface {
	PrincipalID() uint
	IsAdmin() bool
	IsModerator() bool
}

type Action string

const (
	ActionList          Action = "list"
	ActionRetrieve      Action = "retrieve"
	ActionCreate        Action = "create"
	ActionUpdate        Action = "update"
	ActionPartialUpdate Action = "partial_update"
	ActionDelete        Action = "delete"
)

func (a Action) ReadOnly() bool {
	return a == ActionList || a == ActionRetrieve
}

type Kind string

const (
	KindCategory Kind = "category"
	KindGenre    Kind = "genre"
	KindTitle    Kind = "title"
	KindReview   Kind = "review"
	KindComment  Kind = "comment"
	KindUser     Kind = "user"
	KindSelf     Kind = "me"
)

// Resource identifies the target of an action. AuthorID is set for reviews and
// comments that already exist; it is zero for collections and for creates.
type Resource struct {
	Kind     Kind
	AuthorID uint
}

func On(kind Kind) Resource {
	return Resource{Kind: kind}
}

func OwnedBy(kind Kind, authorID uint) Resource {
	return Resource{Kind: kind, AuthorID: authorID}
}

type Decision int

const (
	Allow Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "deny_unauthenticated"
	case DenyForbidden:
		return "deny_forbidden"
	}
	return "unknown"
}

// Authorize applies the access rules, most specific first.
func Authorize(p Principal, action Action, res Resource) Decision {
	anonymous := isAnonymous(p)

	switch res.Kind {
	case KindSelf:
		if anonymous {
			return DenyUnauthenticated
		}
		return Allow

	case KindUser:
		return adminOnly(p, anonymous)

	case KindCategory, KindGenre, KindTitle:
		if action.ReadOnly() {
			return Allow
		}
		return adminOnly(p, anonymous)

	case KindReview, KindComment:
		if action.ReadOnly() {
			return Allow
		}
		if anonymous {
			return DenyUnauthenticated
		}
		if action == ActionCreate {
			return Allow
		}
		if p.PrincipalID() == res.AuthorID || p.IsModerator() || p.IsAdmin() {
			return Allow
		}
		return DenyForbidden
	}

	if anonymous {
		return DenyUnauthenticated
	}
	return DenyForbidden
}

// Check is Authorize reported as an error: nil on Allow, otherwise an
// UNAUTHENTICATED or FORBIDDEN apperr.
func Check(p Principal, action Action, res Resource) error {
	switch Authorize(p, action, res) {
	case Allow:
		return nil
	case DenyUnauthenticated:
		return apperr.Unauthenticated(apperr.ErrUnauthenticated.Message)
	default:
		return apperr.Forbidden(apperr.ErrForbidden.Message)
	}
}

func adminOnly(p Principal, anonymous bool) Decision {
	if anonymous {
		return DenyUnauthenticated
	}
	if p.IsAdmin() {
		return Allow
	}
	return DenyForbidden
}

// isAnonymous treats a principal without an id as anonymous too. Principal
// implementations must return 0 from a nil receiver.
func isAnonymous(p Principal) bool {
	return p == nil || p.PrincipalID() == 0
}
