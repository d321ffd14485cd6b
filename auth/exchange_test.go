package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-phase-session/auth"
	"github.com/stretchr/testify/require"
)

func newProxy(t *testing.T, handler http.HandlerFunc) *auth.ProxyExchanger {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	pe, err := auth.NewProxyExchanger(srv.URL+"/", "client-1")
	require.NoError(t, err)
	return pe
}

func TestProxyExchanger_Success(t *testing.T) {
	var gotPath string
	pe := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"token":"gho_abc"}`))
	})

	tok, err := pe.Exchange(context.Background(), "code/1")
	require.NoError(t, err)
	require.Equal(t, "gho_abc", tok)
	require.Equal(t, "/code%2F1/client_id/client-1", gotPath)
}

func TestProxyExchanger_ProviderError(t *testing.T) {
	pe := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"bad_verification_code"}`))
	})

	_, err := pe.Exchange(context.Background(), "code")
	require.ErrorIs(t, err, auth.ErrProviderError)
	require.Contains(t, err.Error(), "bad_verification_code")
}

func TestProxyExchanger_ErrorStatus(t *testing.T) {
	pe := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := pe.Exchange(context.Background(), "code")
	require.ErrorIs(t, err, auth.ErrExchangeFailed)
}

func TestProxyExchanger_EmptyToken(t *testing.T) {
	pe := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := pe.Exchange(context.Background(), "code")
	require.ErrorIs(t, err, auth.ErrEmptyToken)
}

func TestProxyExchanger_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	pe, err := auth.NewProxyExchanger(srv.URL, "client-1")
	require.NoError(t, err)

	_, err = pe.Exchange(context.Background(), "code")
	require.ErrorIs(t, err, auth.ErrExchangeFailed)
}

func TestNewProxyExchanger_Validation(t *testing.T) {
	_, err := auth.NewProxyExchanger("", "client-1")
	require.Error(t, err)
	_, err = auth.NewProxyExchanger("http://localhost", "")
	require.Error(t, err)
}
