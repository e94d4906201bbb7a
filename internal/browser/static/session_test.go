// internal/browser/static/session_test.go
package static

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/signup-cli/api/schemas"
	"github.com/xkilldash9x/signup-cli/internal/config"
)

const landingPage = `<html><head><title>Shop</title></head><body>
<div id="promo" style="display: none">Hidden promo text</div>
<p>Join our list</p>
<form id="news" action="/subscribe" method="post">
  <input type="hidden" name="token" value="abc">
  <input type="email" name="email" placeholder="Your email">
  <select name="freq"><option value="daily">Daily</option><option value="weekly" selected>Weekly</option></select>
  <button type="submit" name="go" value="1">Subscribe</button>
</form>
<input type="text" name="outside">
<a id="about" href="/about">About</a>
</body></html>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, landingPage)
	})
	mux.HandleFunc("/subscribe", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		fmt.Fprintf(w, "<html><body><p>Thank you for subscribing, %s (token %s, freq %s, go %s)</p></body></html>",
			r.PostForm.Get("email"), r.PostForm.Get("token"), r.PostForm.Get("freq"), r.PostForm.Get("go"))
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>About us</p></body></html>")
	})
	return httptest.NewServer(mux)
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	return New(config.NewDefaultConfig(), zaptest.NewLogger(t))
}

func TestSessionSubmitsFormLikeABrowser(t *testing.T) {
	defer goleak.VerifyNone(t)

	server := newTestServer(t)
	defer server.Close()

	ctx := context.Background()
	sess := newTestSession(t)
	defer sess.Close(ctx)

	require.NoError(t, sess.Navigate(ctx, server.URL+"/"))

	inputs, err := sess.FindElements(ctx, schemas.CSS("input[type='email']"))
	require.NoError(t, err)
	require.Len(t, inputs, 1)

	visible, err := inputs[0].Visible(ctx)
	require.NoError(t, err)
	assert.True(t, visible)
	require.NoError(t, inputs[0].Fill(ctx, "reader@example.com"))

	forms, err := inputs[0].FindElements(ctx, schemas.XPath("./ancestor::form"))
	require.NoError(t, err)
	require.Len(t, forms, 1)

	buttons, err := forms[0].FindElements(ctx, schemas.XPath(".//button | .//input[@type='submit']"))
	require.NoError(t, err)
	require.Len(t, buttons, 1)
	require.NoError(t, buttons[0].Click(ctx))

	text, err := sess.PageText(ctx)
	require.NoError(t, err)
	assert.Contains(t, text, "Thank you for subscribing, reader@example.com (token abc, freq weekly, go 1)")

	// The old document is gone.
	_, err = inputs[0].Visible(ctx)
	assert.ErrorIs(t, err, schemas.ErrElementNotFound)
}

func TestSessionPageTextSkipsHiddenContent(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	ctx := context.Background()
	sess := newTestSession(t)
	defer sess.Close(ctx)

	require.NoError(t, sess.Navigate(ctx, server.URL+"/"))
	text, err := sess.PageText(ctx)
	require.NoError(t, err)
	assert.Contains(t, text, "Join our list")
	assert.NotContains(t, text, "Hidden promo text")
	assert.NotContains(t, text, "Shop", "head content is not rendered")
}

func TestElementVisibilityAndAttributes(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	ctx := context.Background()
	sess := newTestSession(t)
	defer sess.Close(ctx)
	require.NoError(t, sess.Navigate(ctx, server.URL+"/"))

	testCases := []struct {
		name    string
		loc     schemas.Locator
		visible bool
	}{
		{name: "hidden input", loc: schemas.CSS("input[name='token']"), visible: false},
		{name: "display none ancestor", loc: schemas.XPath("//div[@id='promo']"), visible: false},
		{name: "plain text input", loc: schemas.CSS("input[name='outside']"), visible: true},
		{name: "by tag", loc: schemas.Tag("button"), visible: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			found, err := sess.FindElements(ctx, tc.loc)
			require.NoError(t, err)
			require.Len(t, found, 1)
			got, err := found[0].Visible(ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.visible, got)
		})
	}

	inputs, err := sess.FindElements(ctx, schemas.CSS("input[type='email']"))
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	placeholder, err := inputs[0].Attribute(ctx, "placeholder")
	require.NoError(t, err)
	assert.Equal(t, "Your email", placeholder)
	missing, err := inputs[0].Attribute(ctx, "aria-label")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestElementInteractionErrors(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	ctx := context.Background()
	sess := newTestSession(t)
	defer sess.Close(ctx)
	require.NoError(t, sess.Navigate(ctx, server.URL+"/"))

	t.Run("fill hidden input", func(t *testing.T) {
		found, err := sess.FindElements(ctx, schemas.CSS("input[name='token']"))
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.ErrorIs(t, found[0].Fill(ctx, "x"), schemas.ErrNotInteractable)
	})

	t.Run("submit outside a form", func(t *testing.T) {
		found, err := sess.FindElements(ctx, schemas.CSS("input[name='outside']"))
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.ErrorIs(t, found[0].Submit(ctx), schemas.ErrNotInteractable)
	})

	t.Run("invalid css", func(t *testing.T) {
		_, err := sess.FindElements(ctx, schemas.CSS("input["))
		assert.ErrorIs(t, err, schemas.ErrUnsupported)
	})

	t.Run("scripts are unsupported", func(t *testing.T) {
		assert.ErrorIs(t, sess.ExecuteScript(ctx, "window.scrollTo(0, 0);"), schemas.ErrUnsupported)
	})
}

func TestClickFollowsLinks(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	ctx := context.Background()
	sess := newTestSession(t)
	defer sess.Close(ctx)
	require.NoError(t, sess.Navigate(ctx, server.URL+"/"))

	links, err := sess.FindElements(ctx, schemas.CSS("#about"))
	require.NoError(t, err)
	require.Len(t, links, 1)
	require.NoError(t, links[0].Click(ctx))

	text, err := sess.PageText(ctx)
	require.NoError(t, err)
	assert.Contains(t, text, "About us")
}

func TestNavigateFailure(t *testing.T) {
	server := newTestServer(t)
	addr := server.URL
	server.Close()

	sess := newTestSession(t)
	err := sess.Navigate(context.Background(), addr)
	assert.ErrorIs(t, err, schemas.ErrNavigation)
}
