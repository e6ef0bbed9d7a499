package main

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatEvent(method, path, body string) events.APIGatewayV2HTTPRequest {
	evt := events.APIGatewayV2HTTPRequest{RawPath: path, Body: body, Headers: map[string]string{}}
	evt.RequestContext.HTTP.Method = method
	evt.RequestContext.HTTP.SourceIP = "203.0.113.7"
	return evt
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("UPSTREAM_BASE_URL", "")
	_, err := loadConfig()
	assert.Error(t, err)

	t.Setenv("UPSTREAM_BASE_URL", "https://api.example/")
	t.Setenv("UPSTREAM_TIMEOUT", "3s")
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://api.example", cfg.upstreamBaseURL)
	assert.Equal(t, 3*time.Second, cfg.upstreamTimeout)

	t.Setenv("UPSTREAM_TIMEOUT", "soon")
	_, err = loadConfig()
	assert.Error(t, err)
}

func TestHandleRouting(t *testing.T) {
	cfg := config{upstreamBaseURL: "http://127.0.0.1:1", upstreamTimeout: time.Second}
	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"health", http.MethodGet, "/health", http.StatusOK},
		{"unknown path", http.MethodPost, "/admin/sessions/x", http.StatusNotFound},
		{"wrong method", http.MethodGet, "/chat", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := handle(context.Background(), cfg, http.DefaultClient, chatEvent(tt.method, tt.path, ""))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestHandleInvalidBase64Body(t *testing.T) {
	cfg := config{upstreamBaseURL: "http://127.0.0.1:1", upstreamTimeout: time.Second}
	evt := chatEvent(http.MethodPost, "/chat", "%%%")
	evt.IsBase64Encoded = true
	resp, err := handle(context.Background(), cfg, http.DefaultClient, evt)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleRejectsOversizedBody(t *testing.T) {
	cfg := config{upstreamBaseURL: "http://127.0.0.1:1", upstreamTimeout: time.Second}
	resp, err := handle(context.Background(), cfg, http.DefaultClient, chatEvent(http.MethodPost, "/chat", strings.Repeat("a", maxBodyBytes+1)))
	require.NoError(t, err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestHandleForwardsChat(t *testing.T) {
	var got *http.Request
	var gotBody string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer":"","suppressed":true}`))
	}))
	defer upstream.Close()

	cfg := config{upstreamBaseURL: upstream.URL, upstreamTimeout: time.Second}
	payload := `{"question":"Hi","session_id":"s-1"}`
	evt := chatEvent(http.MethodPost, "/chat", base64.StdEncoding.EncodeToString([]byte(payload)))
	evt.IsBase64Encoded = true
	evt.Headers["X-Org-ID"] = "org-1"

	resp, err := handle(context.Background(), cfg, upstream.Client(), evt)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Headers["content-type"])
	assert.Contains(t, resp.Body, `"suppressed":true`)

	require.NotNil(t, got)
	assert.Equal(t, "/chat", got.URL.Path)
	assert.Equal(t, payload, gotBody)
	assert.Equal(t, "org-1", got.Header.Get("X-Org-Id"))
	assert.Equal(t, "203.0.113.7", got.Header.Get("X-Real-Ip"))
}

func TestHandleUpstreamDown(t *testing.T) {
	cfg := config{upstreamBaseURL: "http://127.0.0.1:1", upstreamTimeout: 200 * time.Millisecond}
	resp, err := handle(context.Background(), cfg, &http.Client{Timeout: cfg.upstreamTimeout}, chatEvent(http.MethodPost, "/chat", "{}"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}
