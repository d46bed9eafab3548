// Package token converts human-readable names into stable identity handles.
//
// The editor thread and the render thread refer to the same logical scene
// object by token rather than by pointer. For a given Interner the same
// name always yields the same token, distinct names never collide, and
// IDs are never reused for the lifetime of the interner.
package token

import "sync"

// Invalid is the zero token ID. Valid IDs start at 1.
const Invalid uint64 = 0

// Token is a stable integer+text identity for a named scene entity.
// Tokens are values; comparing the ID field is sufficient for equality
// within one interner.
type Token struct {
	ID   uint64
	Name string
}

// Valid reports whether the token was produced by an interner.
func (t Token) Valid() bool { return t.ID != Invalid }

// String returns the interned name.
func (t Token) String() string { return t.Name }

// Interner is a thread-safe, grow-only token table.
//
// Lookups are O(1) amortized. Readers never observe a partially inserted
// entry: a name is either absent or maps to a fully valid token. There is
// no deletion; the table only grows until the interner is dropped.
type Interner struct {
	mu     sync.RWMutex
	byName map[string]Token
	byID   map[uint64]Token
	nextID uint64
}

// NewInterner creates an empty interner. IDs are handed out from 1.
func NewInterner() *Interner {
	return &Interner{
		byName: make(map[string]Token),
		byID:   make(map[uint64]Token),
		nextID: 1,
	}
}

// Intern returns the token for name, creating it on first lookup.
// Safe for concurrent use: concurrent calls with the same name return
// tokens with identical IDs.
func (in *Interner) Intern(name string) Token {
	in.mu.RLock()
	t, ok := in.byName[name]
	in.mu.RUnlock()
	if ok {
		return t
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	// Another goroutine may have inserted while we waited for the lock.
	if t, ok := in.byName[name]; ok {
		return t
	}
	t = Token{ID: in.nextID, Name: name}
	in.nextID++
	in.byName[name] = t
	in.byID[t.ID] = t
	return t
}

// Lookup returns the token with the given ID, if one has been interned.
func (in *Interner) Lookup(id uint64) (Token, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	t, ok := in.byID[id]
	return t, ok
}

// Len returns the number of unique tokens currently interned.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.byName)
}
