package verify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mailsift/bulk-verifier/internal/validation"
)

func TestVerifyTakesStatusAndReasonVerbatim(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "alice@x.com", r.URL.Query().Get("email"))
		require.Equal(t, "key-123", r.URL.Query().Get("apikey"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"invalid","reason":"mailbox_not_found"}`))
	}))
	defer srv.Close()

	client := New(Config{APIKey: "key-123", BaseURL: srv.URL}, nil)
	out := client.Verify(context.Background(), "alice@x.com")
	require.Equal(t, validation.Outcome{Status: "invalid", Reason: "mailbox_not_found"}, out)
}

func TestVerifyDefaultsMissingFields(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := New(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	out := client.Verify(context.Background(), "a@x.com")
	require.Equal(t, validation.OutcomeUnknown, out.Status)
	require.Empty(t, out.Reason)
}

func TestVerifyRecoversFromMalformedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>rate limited</html>`))
	}))
	defer srv.Close()

	client := New(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	out := client.Verify(context.Background(), "a@x.com")
	require.Equal(t, validation.OutcomeError, out.Status)
	require.NotEmpty(t, out.Reason)
}

func TestVerifyRecoversFromConnectionFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse all connections

	client := New(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	out := client.Verify(context.Background(), "a@x.com")
	require.Equal(t, validation.OutcomeError, out.Status)
	require.NotEmpty(t, out.Reason)
}

func TestVerifyRecoversFromTimeout(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-block
	}))
	defer func() {
		close(block)
		srv.Close()
	}()

	client := New(Config{APIKey: "k", BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil)
	out := client.Verify(context.Background(), "a@x.com")
	require.Equal(t, validation.OutcomeError, out.Status)
}
