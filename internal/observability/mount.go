package observability

import (
	"context"
	"sync"
)

type mountHolderKey struct{}

// MountHolder carries the mount name chosen by an inner handler back out
// to middleware that wrapped the request before the mount was known.
type MountHolder struct {
	mu   sync.Mutex
	name string
}

// Set records the mount name.
func (h *MountHolder) Set(name string) {
	h.mu.Lock()
	h.name = name
	h.mu.Unlock()
}

// Get returns the recorded mount name.
func (h *MountHolder) Get() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.name
}

// ContextWithMountHolder attaches h to ctx.
func ContextWithMountHolder(ctx context.Context, h *MountHolder) context.Context {
	return context.WithValue(ctx, mountHolderKey{}, h)
}

// EnsureMountHolder returns the holder already attached to ctx, or
// attaches a new one.
func EnsureMountHolder(ctx context.Context) (context.Context, *MountHolder) {
	if h, ok := ctx.Value(mountHolderKey{}).(*MountHolder); ok {
		return ctx, h
	}
	h := &MountHolder{}
	return ContextWithMountHolder(ctx, h), h
}

// SetMount records mount in ctx for logging and in the enclosing
// MountHolder, if any, for metrics.
func SetMount(ctx context.Context, mount string) context.Context {
	if h, ok := ctx.Value(mountHolderKey{}).(*MountHolder); ok {
		h.Set(mount)
	}
	return ContextWithMount(ctx, mount)
}
