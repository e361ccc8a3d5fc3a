package fields

import (
	"log/slog"
)

// Token is the literal export value written into a checked checkbox.
type Token string

const (
	TokenYes Token = "Yes"
	TokenOn  Token = "On"
)

// OffToken is the standard PDF off-state name.
const OffToken = "Off"

// Resolver decides which on-token a checkbox expects. The zero value is not
// usable; start from DefaultResolver.
type Resolver struct {
	on map[string]Token
}

// DefaultResolver returns a resolver backed by the hand-verified on-token table.
func DefaultResolver() *Resolver {
	on := make(map[string]Token, len(onTokenFields))
	for name := range onTokenFields {
		on[name] = TokenOn
	}
	return &Resolver{on: on}
}

// Resolve normalizes value and returns the token to write, or false when the
// field must be left untouched (false or absent).
func (r *Resolver) Resolve(field string, value any) (Token, bool) {
	if ParseTristate(value) != True {
		return "", false
	}
	if tok, ok := r.on[field]; ok {
		return tok, true
	}
	return TokenYes, true
}

// WithDeclared returns a copy of r whose tokens follow the on-states the
// template itself declares. Disagreements with the static table are logged so
// template revisions that drift show up in the logs.
func (r *Resolver) WithDeclared(declared map[string]string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	on := make(map[string]Token, len(r.on))
	for name, tok := range r.on {
		on[name] = tok
	}
	for name, state := range declared {
		if state == "" || state == OffToken {
			continue
		}
		want := TokenYes
		if tok, ok := r.on[name]; ok {
			want = tok
		}
		if Token(state) != want {
			logger.Warn("Template declares a different checkbox on-state.", "field", name, "declared", state, "table", string(want))
		}
		if Token(state) == TokenYes {
			delete(on, name)
			continue
		}
		on[name] = Token(state)
	}
	return &Resolver{on: on}
}
