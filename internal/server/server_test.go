package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStock struct {
	info string
	err  error
}

func (s stubStock) Fetch(context.Context) (string, error) { return s.info, s.err }

type stubNotifier struct {
	pushed []string
	err    error
}

func (n *stubNotifier) Push(_ context.Context, text string) error {
	n.pushed = append(n.pushed, text)
	return n.err
}

func get(t *testing.T, h http.Handler, method, path string) (int, string) {
	t.Helper()
	ts := httptest.NewServer(h)
	defer ts.Close()

	req, err := http.NewRequest(method, ts.URL+path, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestHealth(t *testing.T) {
	s := New(Options{})

	code, body := get(t, s.Router(), http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ChatGPT is alive!", body)
}

func TestCallbackRoute(t *testing.T) {
	called := false
	cb := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, _ = io.WriteString(w, "OK")
	})

	code, body := get(t, New(Options{Callback: cb}).Router(), http.MethodPost, "/callback")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body)
	assert.True(t, called)

	code, _ = get(t, New(Options{Callback: cb}).Router(), http.MethodGet, "/callback")
	assert.Equal(t, http.StatusMethodNotAllowed, code)

	code, _ = get(t, New(Options{}).Router(), http.MethodPost, "/callback")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestStock_PushesToOperator(t *testing.T) {
	n := &stubNotifier{}
	s := New(Options{Stock: stubStock{info: "代號 : 1234"}, Notifier: n})

	code, body := get(t, s.Router(), http.MethodGet, "/stock")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "stock is alive!", body)
	assert.Equal(t, []string{"代號 : 1234"}, n.pushed)
}

func TestStock_Failures(t *testing.T) {
	n := &stubNotifier{}
	code, _ := get(t, New(Options{Stock: stubStock{err: errors.New("down")}, Notifier: n}).Router(), http.MethodGet, "/stock")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Empty(t, n.pushed)

	n = &stubNotifier{err: errors.New("push failed")}
	code, _ = get(t, New(Options{Stock: stubStock{info: "x"}, Notifier: n}).Router(), http.MethodGet, "/stock")
	assert.Equal(t, http.StatusBadGateway, code)

	code, _ = get(t, New(Options{}).Router(), http.MethodGet, "/stock")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}
