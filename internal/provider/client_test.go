package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		Login:     "user",
		Password:  "secret",
		BaseURL:   srv.URL + "/v3/",
		Timeout:   2 * time.Second,
		UserAgent: "seoaudit-test",
	}, nil, nil)
}

func TestClientCallSendsAuthenticatedJSON(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v3/serp/task_post", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "user", user)
		require.Equal(t, "secret", pass)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, "seoaudit-test", r.Header.Get("User-Agent"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.JSONEq(t, `[{"id":"t1"}]`, string(body))

		_, _ = w.Write([]byte(`{"status_code":20000,"status_message":"Ok.","tasks":[{"id":"t1","status_code":20100,"data":{"keyword":"boots"}}]}`))
	})

	env, err := client.Call(context.Background(), "/serp/task_post", []map[string]string{{"id": "t1"}})
	require.NoError(t, err)
	require.Len(t, env.Tasks, 1)
	require.Equal(t, "t1", env.Tasks[0].ID)
	require.Equal(t, 20100, env.Tasks[0].StatusCode)
	require.Equal(t, "boots", env.Tasks[0].Data.Keyword)
}

func TestClientCallClassifiesFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		body      string
		retryable bool
		code      int
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"status_code":40100,"status_message":"not authorized"}`, code: 40100},
		{name: "throttled", status: http.StatusTooManyRequests, body: ``, retryable: true},
		{name: "server error", status: http.StatusBadGateway, body: `oops`, retryable: true},
		{name: "envelope rejected", status: http.StatusOK, body: `{"status_code":40501,"status_message":"invalid field"}`, code: 40501},
		{name: "provider internal", status: http.StatusOK, body: `{"status_code":50000,"status_message":"internal error"}`, retryable: true, code: 50000},
		{name: "garbage", status: http.StatusOK, body: `not json`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := client.Call(context.Background(), "op", struct{}{})
			require.Error(t, err)
			var perr *Error
			require.True(t, errors.As(err, &perr))
			require.Equal(t, KindRejected, perr.Kind)
			require.Equal(t, tc.retryable, perr.Retryable())
			require.Equal(t, tc.code, perr.StatusCode)
		})
	}
}

func TestClientCallTransportFailureIsRetryable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	client := NewClient(Config{BaseURL: base, Timeout: time.Second}, nil, nil)
	_, err := client.Call(context.Background(), "op", struct{}{})
	var perr *Error
	require.True(t, errors.As(err, &perr))
	require.Equal(t, KindTransport, perr.Kind)
	require.True(t, perr.Retryable())
	require.True(t, Undelivered(err), "refused connection never sent the request")
	require.Contains(t, perr.Error(), "transport failure")
}

func TestUndelivered(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "dial failure", err: transportError("op", &net.OpError{Op: "dial", Err: errors.New("refused")}), want: true},
		{name: "dns failure", err: transportError("op", &net.DNSError{Err: "no such host", Name: "api"}), want: true},
		{name: "reset after send", err: transportError("op", &net.OpError{Op: "read", Err: errors.New("reset")}), want: false},
		{name: "timeout awaiting response", err: transportError("op", context.DeadlineExceeded), want: false},
		{name: "throttled", err: rejectedError("op", http.StatusTooManyRequests, 0, "slow down"), want: true},
		{name: "server error", err: rejectedError("op", http.StatusBadGateway, 0, "bad gateway"), want: false},
		{name: "not a provider error", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Undelivered(tt.err))
		})
	}
}

type recordingPacer struct {
	urls []string
	err  error
}

func (p *recordingPacer) Wait(_ context.Context, rawURL string) error {
	p.urls = append(p.urls, rawURL)
	return p.err
}

func TestClientCallUsesPacer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(Envelope{StatusCode: StatusOK})
	}))
	t.Cleanup(srv.Close)

	pacer := &recordingPacer{}
	client := NewClient(Config{BaseURL: srv.URL}, pacer, nil)
	_, err := client.Call(context.Background(), "a/b", nil)
	require.NoError(t, err)
	require.Equal(t, []string{srv.URL + "/a/b"}, pacer.urls)

	pacer.err = context.Canceled
	_, err = client.Call(context.Background(), "a/b", nil)
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, Undelivered(err))
}
