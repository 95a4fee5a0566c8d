package stub

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func postLogin(t *testing.T, s *Server, user, password string) *http.Response {
	t.Helper()
	form := url.Values{"loginName": {user}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/lab/LoginPage.do", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	return resp
}

func TestLoginForm(t *testing.T) {
	s := New(DefaultOptions(), nil)
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/lab/LoginPage.do", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	html := body(t, resp)
	assert.Contains(t, html, `id="loginName"`)
	assert.Contains(t, html, `id="submitButton"`)
	assert.NotContains(t, html, "field-error")
}

func TestLoginRejected(t *testing.T) {
	s := New(DefaultOptions(), nil)

	resp := postLogin(t, s, "admin", "wrong")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	html := body(t, resp)
	assert.Contains(t, html, `<div class="field-error">Invalid username or password</div>`)
	assert.Contains(t, html, `value="admin"`)

	resp = postLogin(t, s, "", "")
	html = body(t, resp)
	assert.Contains(t, html, "Username is required")
	assert.Contains(t, html, "Password is required")
}

func TestLoginAndHome(t *testing.T) {
	opts := DefaultOptions()
	opts.ReadyDelay = 750 * time.Millisecond
	opts.Alert = "Samples pending"
	s := New(opts, nil)

	resp := postLogin(t, s, "admin", "admin")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/lab/HomePage.do", resp.Header.Get("Location"))

	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookie, cookies[0].Name)

	for _, path := range []string{"/lab/HomePage.do", "/lab/Dashboard.do"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.AddCookie(cookies[0])
		resp, err := s.App().Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)

		html := body(t, resp)
		assert.Contains(t, html, "Welcome admin")
		assert.Contains(t, html, `window["pageReady"] = true`)
		assert.Contains(t, html, `alert("Samples pending")`)
		assert.Contains(t, html, "750")
		assert.Contains(t, html, `id="discardSample"`)
		assert.Contains(t, html, `confirm('Discard sample?')`)
	}
}

func TestHomeRequiresSession(t *testing.T) {
	s := New(DefaultOptions(), nil)
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/lab/HomePage.do", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/lab/LoginPage.do", resp.Header.Get("Location"))
}

func TestLogout(t *testing.T) {
	s := New(DefaultOptions(), nil)
	cookie := postLogin(t, s, "admin", "admin").Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/lab/logout", nil)
	req.AddCookie(cookie)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/lab/LoginPage.do", resp.Header.Get("Location"))

	cleared := resp.Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, sessionCookie, cleared[0].Name)
	assert.Empty(t, cleared[0].Value)
	assert.Equal(t, cookie.Path, cleared[0].Path)
	assert.True(t, cleared[0].Expires.Before(time.Now()))

	req = httptest.NewRequest(http.MethodGet, "/lab/HomePage.do", nil)
	req.AddCookie(cookie)
	resp, err = s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestPrefixNormalization(t *testing.T) {
	opts := DefaultOptions()
	opts.Prefix = "/"
	s := New(opts, nil)
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/LoginPage.do", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body(t, resp), `action="/LoginPage.do"`)
}

func TestServeListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	s := New(DefaultOptions(), nil)
	go func() { done <- s.ServeListener(ctx, ln) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + ln.Addr().String() + "/health")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("server did not shut down")
	}
}
