package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"
)

// DefaultDialTimeout bounds a single endpoint reachability check.
const DefaultDialTimeout = 2 * time.Second

// ReportFunc receives the outcome of an endpoint check.
type ReportFunc func(up bool)

// EndpointCheck returns a check that opens a TCP connection to the host of
// endpoint. An unreachable endpoint degrades readiness rather than failing
// it: the proxy keeps serving its other mounts and answers 502 for this
// one. report, when non-nil, is told every outcome.
func EndpointCheck(endpoint *url.URL, timeout time.Duration, report ReportFunc) CheckFunc {
	address := EndpointAddress(endpoint)
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}

	return func(ctx context.Context) Check {
		dialer := &net.Dialer{Timeout: timeout}

		conn, err := dialer.DialContext(ctx, "tcp", address)
		if report != nil {
			report(err == nil)
		}
		if err != nil {
			return Check{
				Status:  StatusDegraded,
				Message: fmt.Sprintf("endpoint %s unreachable: %v", address, err),
			}
		}
		_ = conn.Close()

		return Check{Status: StatusHealthy}
	}
}

// DirectoryCheck returns a check failing when dir is missing or is not a
// directory.
func DirectoryCheck(dir string) CheckFunc {
	return func(context.Context) Check {
		info, err := os.Stat(dir)
		switch {
		case err != nil:
			return Check{Status: StatusUnhealthy, Message: err.Error()}
		case !info.IsDir():
			return Check{Status: StatusUnhealthy, Message: fmt.Sprintf("%s is not a directory", dir)}
		default:
			return Check{Status: StatusHealthy}
		}
	}
}

// EndpointAddress returns host:port for u, defaulting the port from the
// scheme.
func EndpointAddress(u *url.URL) string {
	if port := u.Port(); port != "" {
		return net.JoinHostPort(u.Hostname(), port)
	}
	port := "80"
	if u.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port)
}
