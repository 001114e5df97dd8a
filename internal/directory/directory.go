// Package directory implements name -> peer id lookups for the resolver.
package directory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"tglink/internal/shared/types"
)

// ErrNotFound is returned by a Lookuper when the name does not exist.
var ErrNotFound = errors.New("directory: name not found")

// Lookuper is a single-shot lookup. Adapters implement it and Stream turns it
// into the channel-based contract the resolver consumes.
type Lookuper interface {
	Lookup(ctx context.Context, name string) (types.PeerID, error)
}

// LookupFunc adapts a plain function to Lookuper.
type LookupFunc func(ctx context.Context, name string) (types.PeerID, error)

func (f LookupFunc) Lookup(ctx context.Context, name string) (types.PeerID, error) {
	return f(ctx, name)
}

// Stream runs a Lookuper and emits exactly one value before closing.
type Stream struct {
	Lookuper Lookuper
}

// ResolvePeerByName implements resolver.Directory.
func (s Stream) ResolvePeerByName(ctx context.Context, name string) <-chan types.PeerLookup {
	ch := make(chan types.PeerLookup, 1)
	go func() {
		defer close(ch)
		id, err := s.Lookuper.Lookup(ctx, name)
		switch {
		case err == nil:
			ch <- types.PeerLookup{PeerID: id, Found: true}
		case errors.Is(err, ErrNotFound):
			ch <- types.PeerLookup{}
		default:
			ch <- types.PeerLookup{Err: err}
		}
	}()
	return ch
}

// NormalizeName lowers a public name and strips a leading '@'. Public names
// are case-insensitive.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "@"))
}

// Static is an in-memory name table, loaded from the seed file.
type Static struct {
	mu    sync.RWMutex
	peers map[string]types.PeerID
}

func NewStatic(seed map[string]types.PeerID) *Static {
	s := &Static{peers: make(map[string]types.PeerID, len(seed))}
	for name, id := range seed {
		s.peers[NormalizeName(name)] = id
	}
	return s
}

func (s *Static) Lookup(ctx context.Context, name string) (types.PeerID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.peers[NormalizeName(name)]
	if !ok {
		return types.PeerID{}, ErrNotFound
	}
	return id, nil
}

// Set adds or replaces an entry.
func (s *Static) Set(name string, id types.PeerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers[NormalizeName(name)] = id
}

// Len returns the number of entries.
func (s *Static) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

// Chain asks each Lookuper in order and returns the first hit. A transport
// error from one link does not stop the chain; it is returned only if no
// later link answers.
type Chain []Lookuper

func (c Chain) Lookup(ctx context.Context, name string) (types.PeerID, error) {
	var lastErr error
	for _, l := range c {
		id, err := l.Lookup(ctx, name)
		if err == nil {
			return id, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.PeerID{}, ctxErr
		}
		if !errors.Is(err, ErrNotFound) {
			lastErr = err
		}
	}
	if lastErr != nil {
		return types.PeerID{}, lastErr
	}
	return types.PeerID{}, ErrNotFound
}
