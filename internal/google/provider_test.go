package google

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeSource struct {
	mu    sync.Mutex
	calls int
	err   error
	tok   *oauth2.Token
}

func (f *fakeSource) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return oauth2.StaticTokenSource(f.tok), nil
}

func (f *fakeSource) Describe() string { return "fake" }

func validToken() *oauth2.Token {
	return &oauth2.Token{AccessToken: "access-123", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}
}

func TestProvider_BuildsOnceAndReuses(t *testing.T) {
	src := &fakeSource{tok: validToken()}
	p := NewProvider(src, nil)

	assert.False(t, p.Ready())

	var wg sync.WaitGroup
	clients := make([]*http.Client, 10)
	for i := range clients {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := p.HTTPClient(context.Background())
			assert.NoError(t, err)
			clients[i] = c
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, 1, p.Builds())
	assert.True(t, p.Ready())
	for _, c := range clients {
		assert.Same(t, clients[0], c)
	}
}

func TestProvider_InvalidateRebuilds(t *testing.T) {
	src := &fakeSource{tok: validToken()}
	p := NewProvider(src, nil)

	first, err := p.HTTPClient(context.Background())
	require.NoError(t, err)

	p.Invalidate()
	assert.False(t, p.Ready())

	second, err := p.HTTPClient(context.Background())
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, 2, p.Builds())
}

func TestProvider_BuildFailureIsCredentialError(t *testing.T) {
	src := &fakeSource{err: errors.New("boom")}
	p := NewProvider(src, nil)

	var results []bool
	p.OnBuild = func(ok bool) { results = append(results, ok) }

	_, err := p.HTTPClient(context.Background())
	require.Error(t, err)
	assert.True(t, IsCredentialError(err))

	// failures are not cached
	_, err = p.HTTPClient(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, src.calls)
	assert.Equal(t, []bool{false, false}, results)
	assert.False(t, p.Ready())
}

func TestProvider_ClientSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := NewProvider(&fakeSource{tok: validToken()}, nil, WithBaseTransport(http.DefaultTransport))
	c, err := p.HTTPClient(context.Background())
	require.NoError(t, err)

	resp, err := c.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer access-123", gotAuth)
}

func TestIsRefreshFailure(t *testing.T) {
	assert.True(t, IsRefreshFailure(&oauth2.RetrieveError{ErrorCode: "invalid_grant"}))
	assert.True(t, IsRefreshFailure(errors.Join(errors.New("get"), &oauth2.RetrieveError{})))
	assert.False(t, IsRefreshFailure(errors.New("connection reset")))
}

func TestCredentialError(t *testing.T) {
	inner := errors.New("no such file")
	err := &CredentialError{Op: "read key", Path: "/tmp/sa.json", Err: inner}

	assert.Equal(t, "credentials: read key /tmp/sa.json: no such file", err.Error())
	assert.ErrorIs(t, err, inner)

	noPath := &CredentialError{Op: "exchange auth code", Err: inner}
	assert.Equal(t, "credentials: exchange auth code: no such file", noPath.Error())
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
