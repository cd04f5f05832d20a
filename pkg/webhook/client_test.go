package webhook_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hookrelay/pkg/webhook"
)

func TestClient_Post_Success(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"event":"test","id":"123"}`)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "custom-value", r.Header.Get("X-Custom"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, payload, body)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"received":true}`))
	}))
	defer server.Close()

	client := webhook.NewClient(5 * time.Second)

	header := make(http.Header)
	header.Set("X-Custom", "custom-value")

	resp, err := client.Post(context.Background(), server.URL, header, payload)
	require.NoError(t, err)
	assert.True(t, resp.Success())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []byte(`{"received":true}`), resp.Body)
}

func TestClient_Post_Non2xxIsNotError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := webhook.NewClient(5 * time.Second)

	resp, err := client.Post(context.Background(), server.URL, nil, []byte(`{}`))
	require.NoError(t, err)
	assert.False(t, resp.Success())
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestClient_Post_RedirectNotFollowed(t *testing.T) {
	t.Parallel()

	var followed bool
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		followed = true
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusTemporaryRedirect)
	}))
	defer server.Close()

	client := webhook.NewClient(5 * time.Second)

	resp, err := client.Post(context.Background(), server.URL, nil, []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.False(t, resp.Success())
	assert.False(t, followed, "redirects must not be followed")
}

func TestClient_Post_TransportError(t *testing.T) {
	t.Parallel()

	client := webhook.NewClient(time.Second)

	_, err := client.Post(context.Background(), "http://127.0.0.1:1", nil, []byte(`{}`))
	assert.Error(t, err)
}

func TestClient_Post_Timeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := webhook.NewClient(50 * time.Millisecond)

	_, err := client.Post(context.Background(), server.URL, nil, []byte(`{}`))
	assert.Error(t, err)
}
