package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
)

// SecureHeaders sets the standard hardening headers. In production plain
// HTTP is redirected to HTTPS.
func SecureHeaders(production bool) gin.HandlerFunc {
	sec := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        production,
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
	})
	return func(c *gin.Context) {
		// Process has already written the redirect or rejection when it errors
		if err := sec.Process(c.Writer, c.Request); err != nil {
			c.Abort()
		}
	}
}
