// Package auth resolves client auth tokens to usernames.
package auth

import (
	"context"
	"errors"
	"strings"
)

var ErrUnauthorized = errors.New("unauthorized")

// Validator resolves a token to the username it was issued for.
type Validator interface {
	ResolveUser(ctx context.Context, token string) (string, error)
}

// Static maps tokens to usernames. Meant for tests and local runs.
type Static map[string]string

// ParseStatic reads "token:user,token:user" pairs.
func ParseStatic(s string) Static {
	out := Static{}
	for _, pair := range strings.Split(s, ",") {
		tok, user, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || strings.TrimSpace(tok) == "" || strings.TrimSpace(user) == "" {
			continue
		}
		out[strings.TrimSpace(tok)] = strings.TrimSpace(user)
	}
	return out
}

func (s Static) ResolveUser(_ context.Context, token string) (string, error) {
	if u, ok := s[strings.TrimSpace(token)]; ok && u != "" {
		return u, nil
	}
	return "", ErrUnauthorized
}
