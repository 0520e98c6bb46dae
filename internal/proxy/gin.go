package proxy

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// Gin adapts the proxy to a gin route. Without WithPathname the mount path
// is the route pattern up to its first parameter, so "/data/*path" mounts
// at "/data/".
func (p *Proxy) Gin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p.serve(c.Writer, c.Request, ginMountPath(c.FullPath()))
	}
}

func ginMountPath(pattern string) string {
	if i := strings.IndexAny(pattern, ":*"); i >= 0 {
		return pattern[:i]
	}
	return pattern
}
