package delivery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	headerTestTimestamp = int64(1614265330)
	headerTestMsgID     = "msg_p5jXN8AQM9LWM0D4loKWxJek"
	headerTestSig       = "v1,g0hM9SsE+OTPJTGt/tmIKtSyZlE3uFJELVlNIOLJ1OE="
)

func TestBuildHeaders_PlatformHeaders(t *testing.T) {
	t.Parallel()

	h := buildHeaders(headerTestTimestamp, headerTestMsgID, headerTestSig, false, nil, testLogger())

	assert.Equal(t, headerTestMsgID, h.Get("svix-id"))
	assert.Equal(t, "1614265330", h.Get("svix-timestamp"))
	assert.Equal(t, headerTestSig, h.Get("svix-signature"))
	assert.Equal(t, userAgent, h.Get("user-agent"))
}

func TestBuildHeaders_Whitelabel(t *testing.T) {
	t.Parallel()

	h := buildHeaders(headerTestTimestamp, headerTestMsgID, headerTestSig, true, nil, testLogger())

	assert.Equal(t, headerTestMsgID, h.Get("webhook-id"))
	assert.Equal(t, "1614265330", h.Get("webhook-timestamp"))
	assert.Equal(t, headerTestSig, h.Get("webhook-signature"))
	assert.Empty(t, h.Get("svix-id"))
	assert.Empty(t, h.Get("svix-signature"))
}

func TestBuildHeaders_InvalidCustomHeaderSkipped(t *testing.T) {
	t.Parallel()

	configured := map[string]string{
		"test_key":    "value",
		"invälid_key": "value",
	}

	h := buildHeaders(headerTestTimestamp, headerTestMsgID, headerTestSig, false, configured, testLogger())

	assert.Equal(t, "value", h.Get("test_key"))
	for name := range h {
		assert.NotContains(t, name, "invälid")
	}
}

func TestBuildHeaders_CustomOverridesPlatform(t *testing.T) {
	t.Parallel()

	configured := map[string]string{"svix-id": "customer-supplied"}

	h := buildHeaders(headerTestTimestamp, headerTestMsgID, headerTestSig, false, configured, testLogger())

	// Overriding platform headers is allowed, at the customer's own risk.
	assert.Equal(t, "customer-supplied", h.Get("svix-id"))
}

func TestBuildHeaders_Idempotent(t *testing.T) {
	t.Parallel()

	configured := map[string]string{"x-tenant": "acme"}

	first := buildHeaders(headerTestTimestamp, headerTestMsgID, headerTestSig, false, configured, testLogger())
	second := buildHeaders(headerTestTimestamp, headerTestMsgID, headerTestSig, false, configured, testLogger())

	require.Equal(t, first, second)
}
