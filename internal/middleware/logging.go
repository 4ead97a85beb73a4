// Package middleware provides the HTTP middleware for the lease
// server: request logging and rate limiting.
package middleware

import (
	"log"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"resource-pool/internal/pool"
)

// capture records the status and body size written by downstream
// handlers.
type capture struct {
	http.ResponseWriter
	status int
	size   int
}

func (c *capture) WriteHeader(status int) {
	c.status = status
	c.ResponseWriter.WriteHeader(status)
}

func (c *capture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	n, err := c.ResponseWriter.Write(b)
	c.size += n
	return n, err
}

var reqID atomic.Uint64

// Logging assigns each request an id, echoes it in X-Request-Id, and
// logs one line per request. When snap is non-nil the line also
// carries pool occupancy after the request, so saturation shows up
// next to the slow requests it causes.
func Logging(snap func() pool.Snapshot) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := reqID.Add(1)
			requestID := strconv.FormatUint(id, 10)
			w.Header().Set("X-Request-Id", requestID)

			start := time.Now()
			c := &capture{ResponseWriter: w}

			next.ServeHTTP(c, r)

			line := "request_id=" + requestID +
				" method=" + r.Method +
				" path=" + r.URL.Path +
				" status=" + strconv.Itoa(c.status) +
				" bytes=" + strconv.Itoa(c.size) +
				" duration=" + time.Since(start).String()
			if snap != nil {
				s := snap()
				line += " pool_in_use=" + strconv.Itoa(s.InUse) +
					" pool_waiting=" + strconv.Itoa(s.Waiting)
			}
			log.Print(line)
		})
	}
}
