package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/casefiles/internal/config"
	"github.com/iliyamo/casefiles/internal/gate"
	"github.com/iliyamo/casefiles/internal/session"
	"github.com/iliyamo/casefiles/internal/utils"
)

func ok(c echo.Context) error { return c.String(http.StatusOK, Subject(c)) }

func serve(t *testing.T, h echo.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func bearer(t *testing.T, secret, sub, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, sub, role, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + tok.Token
}

func TestJWTAuthAndRole(t *testing.T) {
	h := JWTAuth("s")(RequireRole("ADMIN")(ok))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if rec := serve(t, h, req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: code=%d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, "other", "id-1", "ADMIN"))
	if rec := serve(t, h, req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad signature: code=%d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, "s", "v-1", "VISITOR"))
	if rec := serve(t, h, req); rec.Code != http.StatusForbidden {
		t.Fatalf("wrong role: code=%d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, "s", "id-1", "ADMIN"))
	rec := serve(t, h, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "id-1" {
		t.Fatalf("code=%d body=%q", rec.Code, rec.Body.String())
	}
}

type members map[string]bool

func (m members) IsAdmin(_ context.Context, id string) (bool, error) {
	if id == "broken" {
		return false, errors.New("db down")
	}
	return m[id], nil
}

func TestRequireAdmin(t *testing.T) {
	h := JWTAuth("s")(RequireAdmin(members{"id-1": true})(ok))
	cases := map[string]int{"id-1": http.StatusOK, "id-2": http.StatusUnauthorized, "broken": http.StatusInternalServerError}
	for id, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", bearer(t, "s", id, "ADMIN"))
		if rec := serve(t, h, req); rec.Code != want {
			t.Fatalf("id=%s: code=%d want=%d", id, rec.Code, want)
		}
	}
}

func TestVisitorSessionPersists(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	m := session.NewManager(store, time.Hour, false)
	mark := func(c echo.Context) error {
		v, _ := CurrentVisitor(c)
		v.Loaded = true
		return c.String(http.StatusOK, Subject(c))
	}
	h := Visitor(m)(mark)

	rec := serve(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != session.CookieName {
		t.Fatalf("cookies=%v", cookies)
	}
	if rec.Body.String() != cookies[0].Value {
		t.Fatalf("subject=%q cookie=%q", rec.Body.String(), cookies[0].Value)
	}
	v, err := store.Get(context.Background(), cookies[0].Value)
	if err != nil || !v.Loaded {
		t.Fatalf("stored=%+v err=%v", v, err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	if rec := serve(t, h, req); len(rec.Result().Cookies()) != 0 {
		t.Fatal("cookie reissued for a known visitor")
	}
}

func TestCachePassThroughWithoutRedis(t *testing.T) {
	h := NewRedisCache(config.CacheConfig{Enabled: true}, nil)(ok)
	rec := serve(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "" {
		t.Fatalf("code=%d x-cache=%q", rec.Code, rec.Header().Get("X-Cache"))
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	b, err := encodePayload(200, hdr, []byte(`{"a":1}`))
	if err != nil {
		t.Fatal(err)
	}
	status, got, body, ok := decodePayload(b)
	if !ok || status != 200 || got.Get("Content-Type") != "application/json" || string(body) != `{"a":1}` {
		t.Fatalf("status=%d hdr=%v body=%q ok=%v", status, got, body, ok)
	}
	if _, _, _, ok := decodePayload(b[:5]); ok {
		t.Fatal("decoded a truncated payload")
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/setup/admin", nil)
	req.Header.Set("X-Real-IP", "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/setup/admin")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_route"}
	if got := buildRateKey(cfg, c); got != "rl:ip:10.0.0.1:route:POST /v1/setup/admin" {
		t.Fatalf("got=%q", got)
	}
	cfg.KeyStrategy = "user"
	if got := buildRateKey(cfg, c); got != "rl:user:anon" {
		t.Fatalf("got=%q", got)
	}
}

func TestCacheKeyUsesConcretePath(t *testing.T) {
	e := echo.New()
	key := func(target string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/v1/cases/:id")
		return cacheKeyFrom(config.CacheConfig{Prefix: "cache"}, c)
	}
	if key("/v1/cases/a") == key("/v1/cases/b") {
		t.Fatal("different records share a cache key")
	}
	if key("/v1/cases/a?x=1") == key("/v1/cases/a?x=2") {
		t.Fatal("query ignored by route_query")
	}
	if !strings.HasPrefix(key("/v1/cases/a"), "cache:") {
		t.Fatal("prefix missing")
	}
}

func TestVisitorRequestsDoNotOverwriteEachOther(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	m := session.NewManager(store, time.Hour, false)

	// First request creates the session.
	rec := serve(t, Visitor(m)(func(c echo.Context) error { return c.NoContent(http.StatusOK) }),
		httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := rec.Result().Cookies()[0]
	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(cookie)
		return r
	}

	// A slow poll holds the session while a submit accepts the secret.
	pollIn, release := make(chan struct{}), make(chan struct{})
	poll := Visitor(m)(func(c echo.Context) error {
		close(pollIn)
		<-release
		return c.NoContent(http.StatusOK)
	})
	submit := Visitor(m)(func(c echo.Context) error {
		v, _ := CurrentVisitor(c)
		v.Gate.Phase = gate.Unlocking
		return c.NoContent(http.StatusOK)
	})

	pollDone := make(chan struct{})
	go func() {
		serve(t, poll, req())
		close(pollDone)
	}()
	<-pollIn
	submitDone := make(chan struct{})
	go func() {
		serve(t, submit, req())
		close(submitDone)
	}()
	close(release)
	<-pollDone
	<-submitDone

	v, err := store.Get(context.Background(), cookie.Value)
	if err != nil || v.Gate.Phase != gate.Unlocking {
		t.Fatalf("gate=%v err=%v", v.Gate.Phase, err)
	}
}
