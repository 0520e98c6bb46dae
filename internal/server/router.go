package server

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/rdfproxy/internal/observability"
	"github.com/vyrodovalexey/rdfproxy/internal/proxy"
)

// ginModeOnce ensures gin.SetMode is only called once to avoid race conditions
var ginModeOnce sync.Once

// Route binds a mount path to the handler serving it.
type Route struct {
	Name     string
	Pathname string
	Handler  http.Handler
}

// ginHandler is implemented by handlers with a native gin adapter.
type ginHandler interface {
	Gin() gin.HandlerFunc
}

// NewRouter returns a gin engine dispatching each route's mount path, with
// and without its trailing slash, to the route's handler. Requests under no
// mount get a JSON 404. Mount paths must not overlap.
func NewRouter(routes []Route, logger observability.Logger) (*gin.Engine, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if err := checkOverlap(routes); err != nil {
		return nil, err
	}

	ginModeOnce.Do(func() {
		if gin.Mode() == gin.DebugMode {
			gin.SetMode(gin.ReleaseMode)
		}
	})

	engine := gin.New()
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false
	engine.HandleMethodNotAllowed = false

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": "no mount matches the request",
		})
	})

	for _, route := range routes {
		handler := adapt(route)
		for _, pattern := range routePatterns(route.Pathname) {
			engine.Any(pattern, handler)
		}
		logger.Debug("mount registered",
			observability.String("mount", route.Name),
			observability.String("pathname", route.Pathname),
		)
	}

	return engine, nil
}

func adapt(route Route) gin.HandlerFunc {
	if gh, ok := route.Handler.(ginHandler); ok {
		return gh.Gin()
	}
	return gin.WrapH(proxy.Mount(route.Pathname, route.Handler))
}

// routePatterns returns the gin patterns covering pathname: the bare path
// and everything below it.
func routePatterns(pathname string) []string {
	base := strings.TrimSuffix(pathname, "/")
	if base == "" {
		return []string{"/*path"}
	}
	return []string{base, base + "/*path"}
}

// checkOverlap rejects routes whose mount paths contain one another,
// which gin cannot register side by side.
func checkOverlap(routes []Route) error {
	bases := make([]string, len(routes))
	for i, route := range routes {
		if !strings.HasPrefix(route.Pathname, "/") {
			return fmt.Errorf("mount %s: pathname %q must start with /", route.Name, route.Pathname)
		}
		bases[i] = strings.TrimSuffix(route.Pathname, "/")
	}

	for i := range routes {
		for j := range routes {
			if i != j && nested(bases[i], bases[j]) && (bases[i] != bases[j] || i < j) {
				return fmt.Errorf("mount %s: pathname %q overlaps mount %s at %q",
					routes[j].Name, routes[j].Pathname, routes[i].Name, routes[i].Pathname)
			}
		}
	}
	return nil
}

// nested reports whether path b lies at or below path a.
func nested(a, b string) bool {
	return a == "" || a == b || strings.HasPrefix(b, a+"/")
}
