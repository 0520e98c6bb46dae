package proxy

import (
	"context"
	"net/http"
)

type mountPathKey struct{}

// Mount records prefix as the mount path of h. A Proxy inside h without
// WithPathname uses it as its public mount path. The request path is not
// stripped.
func Mount(prefix string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r.WithContext(ContextWithMountPath(r.Context(), prefix)))
	})
}

// ContextWithMountPath returns ctx carrying the mount path.
func ContextWithMountPath(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, mountPathKey{}, prefix)
}

// MountPathFromContext returns the mount path recorded by Mount.
func MountPathFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(mountPathKey{}).(string); ok {
		return v
	}
	return ""
}
