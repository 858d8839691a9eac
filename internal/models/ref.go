package models

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// RefKind discriminates the two lookup keys an entity can be addressed by.
type RefKind int

const (
	// RefInternalID is the durable numeric primary key.
	RefInternalID RefKind = iota
	// RefPublicToken is the opaque UUID used in shareable URLs.
	RefPublicToken
)

// Ref is a typed identifier for a list or item: either an internal numeric
// id or a public token. It is resolved once at the API boundary so the rest
// of the code never sniffs strings to guess which lookup to use.
type Ref struct {
	Kind  RefKind
	ID    int64
	Token string
}

// InternalRef builds a Ref for a numeric id.
func InternalRef(id int64) Ref {
	return Ref{Kind: RefInternalID, ID: id}
}

// TokenRef builds a Ref for a public token.
func TokenRef(token string) Ref {
	return Ref{Kind: RefPublicToken, Token: token}
}

// ParseRef interprets a path segment as either a decimal internal id or a
// UUID public token.
func ParseRef(raw string) (Ref, error) {
	if raw == "" {
		return Ref{}, fmt.Errorf("empty reference")
	}
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return InternalRef(id), nil
	}
	if _, err := uuid.Parse(raw); err == nil {
		return TokenRef(raw), nil
	}
	return Ref{}, fmt.Errorf("reference %q is neither a numeric id nor a token", raw)
}

// String returns the textual form of the reference.
func (r Ref) String() string {
	if r.Kind == RefPublicToken {
		return r.Token
	}
	return strconv.FormatInt(r.ID, 10)
}

// NewPublicToken generates a fresh opaque token for shareable URLs.
func NewPublicToken() string {
	return uuid.NewString()
}
