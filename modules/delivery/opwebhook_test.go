package delivery

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hookrelay/pkg/secrets"
	"github.com/dmitrymomot/hookrelay/pkg/webhook"
)

func TestOperationalWebhookSender_SendsSignedEvent(t *testing.T) {
	t.Parallel()

	opKey := []byte("operational-webhook-hmac-key")

	type received struct {
		body    []byte
		headers http.Header
	}
	got := make(chan received, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- received{body: body, headers: r.Header.Clone()}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.OperationalWebhookURL = server.URL
	cfg.OperationalWebhookKey = base64.StdEncoding.EncodeToString(opKey)

	sender, err := NewOperationalWebhookSender(cfg, secrets.NewNoop(), testLogger())
	require.NoError(t, err)

	task := NewMessageV1Task("msg_1", "app_1", "ep_1", 5, TriggerScheduled)
	event := NewMessageAttemptFailingEvent(task, dispatchIDs{OrgID: "org_1"}, &MessageAttempt{ID: "att_1", URL: "https://example.com"})

	sender.Send(context.Background(), "org_1", event)

	r := <-got

	var decoded OperationalWebhookEvent
	require.NoError(t, json.Unmarshal(r.body, &decoded))
	assert.Equal(t, EventMessageAttemptFailing, decoded.Type)
	assert.Equal(t, "org_1", decoded.OrgID)

	// The event is signed like any other webhook: verify the v1 token.
	msgID := r.headers.Get("svix-id")
	timestamp := r.headers.Get("svix-timestamp")
	sig := r.headers.Get("svix-signature")
	require.NotEmpty(t, msgID)
	require.NotEmpty(t, timestamp)
	require.NotEmpty(t, sig)

	mac := hmac.New(sha256.New, opKey)
	fmt.Fprintf(mac, "%s.%s.%s", msgID, timestamp, r.body)
	expected := "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))
	assert.Equal(t, expected, sig)
}

func TestOperationalWebhookSender_RetriesThenGivesUp(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.OperationalWebhookURL = server.URL

	sender, err := NewOperationalWebhookSender(cfg, secrets.NewNoop(), testLogger())
	require.NoError(t, err)
	sender.backoff = webhook.FixedBackoff{Interval: time.Millisecond}

	task := NewMessageV1Task("msg_1", "app_1", "ep_1", 5, TriggerScheduled)
	event := NewMessageAttemptExhaustedEvent(task, dispatchIDs{OrgID: "org_1"}, &MessageAttempt{ID: "att_1"})

	// Send must settle without error even though every attempt fails.
	sender.Send(context.Background(), "org_1", event)

	assert.Equal(t, int32(opWebhookMaxRetries+1), hits.Load())
}

func TestOperationalWebhookSender_DisabledWithoutURL(t *testing.T) {
	t.Parallel()

	sender, err := NewOperationalWebhookSender(testConfig(), secrets.NewNoop(), testLogger())
	require.NoError(t, err)

	// No URL configured: events are dropped without any network activity.
	task := NewMessageV1Task("msg_1", "app_1", "ep_1", 0, TriggerScheduled)
	sender.Send(context.Background(), "org_1", NewMessageAttemptFailingEvent(task, dispatchIDs{OrgID: "org_1"}, &MessageAttempt{}))
}
