package mailer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"rfqportal/internal/mailer"
)

func TestOTPMessage(t *testing.T) {
	msg := mailer.OTPMessage("jo@example.com", "Jo <b>", "042917", 5*time.Minute)

	assert.Equal(t, "jo@example.com", msg.To)
	assert.Equal(t, "Your verification code", msg.Subject)
	assert.Contains(t, msg.Body, "<strong>042917</strong>")
	assert.Contains(t, msg.Body, "expires in 5 minutes")
	assert.Contains(t, msg.Body, "Jo &lt;b&gt;")
}
