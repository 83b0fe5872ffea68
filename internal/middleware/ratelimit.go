package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/httprate"

	"rfqportal/pkg/response"
)

// RateLimit limits requests per client IP over window.
func RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	return WrapHTTP(httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(response.Error(http.StatusTooManyRequests, "Too many requests, please try again later"))
		}),
	))
}

// WrapHTTP adapts a net/http middleware to gin. The gin chain continues only
// if the wrapped middleware calls its next handler.
func WrapHTTP(mw func(http.Handler) http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		passed := false
		mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
		}
	}
}
