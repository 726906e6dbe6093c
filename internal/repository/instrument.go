package repository

import (
	"context"
	"maps"
	"slices"

	"github.com/DhruvK0/fynspo-mobile-sub000/pkg/database"
)

// Instrument wraps a store so every call is traced, counted and timed under
// the given system label.
func Instrument(store Store, system string) Store {
	return &instrumented{next: store, system: system}
}

type instrumented struct {
	next   Store
	system string
}

func (s *instrumented) Get(ctx context.Context, key string) (_ []byte, err error) {
	ctx, end := database.TraceOp(ctx, s.system, "Get", []string{key})
	defer func() { end(err) }()
	return s.next.Get(ctx, key)
}

func (s *instrumented) MultiGet(ctx context.Context, keys ...string) (_ map[string][]byte, err error) {
	ctx, end := database.TraceOp(ctx, s.system, "MultiGet", keys)
	defer func() { end(err) }()
	return s.next.MultiGet(ctx, keys...)
}

func (s *instrumented) Set(ctx context.Context, key string, value []byte) (err error) {
	ctx, end := database.TraceOp(ctx, s.system, "Set", []string{key})
	defer func() { end(err) }()
	return s.next.Set(ctx, key, value)
}

func (s *instrumented) MultiSet(ctx context.Context, entries map[string][]byte) (err error) {
	ctx, end := database.TraceOp(ctx, s.system, "MultiSet", slices.Sorted(maps.Keys(entries)))
	defer func() { end(err) }()
	return s.next.MultiSet(ctx, entries)
}

func (s *instrumented) MultiRemove(ctx context.Context, keys ...string) (err error) {
	ctx, end := database.TraceOp(ctx, s.system, "MultiRemove", keys)
	defer func() { end(err) }()
	return s.next.MultiRemove(ctx, keys...)
}

func (s *instrumented) Ping(ctx context.Context) (err error) {
	ctx, end := database.TraceOp(ctx, s.system, "Ping", nil)
	defer func() { end(err) }()
	return s.next.Ping(ctx)
}
