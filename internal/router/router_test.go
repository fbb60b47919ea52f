package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/casefiles/internal/audit"
	"github.com/iliyamo/casefiles/internal/config"
	"github.com/iliyamo/casefiles/internal/database"
	"github.com/iliyamo/casefiles/internal/gate"
	"github.com/iliyamo/casefiles/internal/handler"
	"github.com/iliyamo/casefiles/internal/model"
	"github.com/iliyamo/casefiles/internal/repository"
	"github.com/iliyamo/casefiles/internal/session"
	"github.com/iliyamo/casefiles/internal/storage"
	"github.com/iliyamo/casefiles/internal/utils"
)

type app struct {
	e        *echo.Echo
	cases    *repository.CaseFileRepo
	attempts *repository.AttemptRepo
	admins   *repository.AdminRepo
}

func newApp(t *testing.T) *app {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.NewMigrator(db, "sqlite").Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := config.Config{
		JWTSecret:      "test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 1,
		VisitorTTLMin:  60,
		BcryptCost:     4,
		SetupKey:       "setup-key",
	}
	a := &app{
		e:        echo.New(),
		cases:    repository.NewCaseFileRepo(db),
		attempts: repository.NewAttemptRepo(db),
		admins:   repository.NewAdminRepo(db, "sqlite"),
	}
	photos := repository.NewPhotoRepo(db)
	siteCfg := repository.NewSiteConfigRepo(db)
	if err := siteCfg.Seed(ctx, "letmein"); err != nil {
		t.Fatal(err)
	}

	auditLog := audit.NewLogger(a.attempts, nil, audit.Options{})
	go auditLog.Run(ctx)

	root := t.TempDir()
	files, err := storage.NewDiskBucket(root, storage.CaseFilesBucket, "")
	if err != nil {
		t.Fatal(err)
	}
	music, err := storage.NewDiskBucket(root, storage.MusicBucket, "")
	if err != nil {
		t.Fatal(err)
	}

	deps := Deps{
		DB:          db,
		Sessions:    session.NewManager(session.NewMemoryStore(time.Hour), time.Hour, false),
		JWTSecret:   cfg.JWTSecret,
		StorageRoot: root,
		Admins:      a.admins,
	}
	RegisterRoutes(a.e, deps)
	RegisterSetup(a.e, handler.NewSetupHandler(cfg, a.admins), deps)
	RegisterGate(a.e, handler.NewGateHandler(cfg, gate.NewService(siteCfg, auditLog, 0, time.Second), a.cases, siteCfg), deps)
	RegisterVisitor(a.e, handler.NewCasesHandler(a.cases, photos, siteCfg), handler.NewBrowseHandler(a.cases, siteCfg, photos), deps)
	RegisterAdmin(a.e, handler.NewAuthHandler(cfg, a.admins, repository.NewTokenRepo(db)),
		handler.NewAdminHandler(a.cases, photos, a.attempts, siteCfg, files, music), deps)
	return a
}

type call struct {
	method, path string
	body         any
	token        string
	cookie       *http.Cookie
	contentType  string
	raw          []byte
}

func (a *app) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body []byte
	ct := c.contentType
	switch {
	case c.raw != nil:
		body = c.raw
	case c.body != nil:
		b, err := json.Marshal(c.body)
		if err != nil {
			t.Fatal(err)
		}
		body, ct = b, echo.MIMEApplicationJSON
	}
	req := httptest.NewRequest(c.method, c.path, bytes.NewReader(body))
	if ct != "" {
		req.Header.Set(echo.HeaderContentType, ct)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0")
	if c.token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+c.token)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func visitorCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatal("no visitor cookie set")
	return nil
}

type gateView struct {
	Phase  string `json:"phase"`
	Error  string `json:"error"`
	Access *struct {
		Token string `json:"token"`
	} `json:"access"`
}

func unlock(t *testing.T, a *app) (string, *http.Cookie) {
	t.Helper()
	rec := a.do(t, call{method: http.MethodGet, path: "/v1/gate"})
	if rec.Code != http.StatusOK {
		t.Fatalf("gate state: %d %s", rec.Code, rec.Body)
	}
	ck := visitorCookie(t, rec)

	rec = a.do(t, call{method: http.MethodPost, path: "/v1/gate", cookie: ck,
		body: map[string]any{"password": "  letmein ", "screen_width": 1920, "screen_height": 1080}})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body)
	}
	gv := decode[gateView](t, rec)
	if gv.Phase != "unlocked" || gv.Access == nil || gv.Access.Token == "" {
		t.Fatalf("unlock response: %+v", gv)
	}
	return gv.Access.Token, ck
}

func TestGateDeniesThenUnlocks(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, call{method: http.MethodGet, path: "/v1/cases"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("cases without token: %d", rec.Code)
	}

	rec = a.do(t, call{method: http.MethodGet, path: "/v1/gate"})
	ck := visitorCookie(t, rec)
	rec = a.do(t, call{method: http.MethodPost, path: "/v1/gate", cookie: ck, body: map[string]any{"password": "LETMEIN"}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong case: %d %s", rec.Code, rec.Body)
	}
	if gv := decode[gateView](t, rec); gv.Phase != "denied" || gv.Error != gate.MsgDenied {
		t.Fatalf("denied view: %+v", gv)
	}

	rec = a.do(t, call{method: http.MethodPost, path: "/v1/gate/input", cookie: ck, body: map[string]any{"value": "l"}})
	if gv := decode[gateView](t, rec); gv.Phase != "idle" || gv.Error != "" {
		t.Fatalf("typing after denial: %+v", gv)
	}

	rec = a.do(t, call{method: http.MethodPost, path: "/v1/gate", cookie: ck, body: map[string]any{"password": "   "}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank submit: %d", rec.Code)
	}

	token, _ := unlock(t, a)
	rec = a.do(t, call{method: http.MethodGet, path: "/v1/cases", token: token})
	if rec.Code != http.StatusOK {
		t.Fatalf("cases with token: %d %s", rec.Code, rec.Body)
	}

	// One wrong and one right attempt from the unlocked visitor; the blank
	// submit is never compared and so never logged.
	deadline := time.Now().Add(2 * time.Second)
	for {
		n, err := a.attempts.CountRecent(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if n == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("attempts=%d want=2", n)
		}
		time.Sleep(10 * time.Millisecond)
	}
	rows, _ := a.attempts.ListRecent(context.Background(), 10, 0)
	for _, r := range rows {
		if r.PasswordTried == "letmein" || r.PasswordTried == "LETMEIN" {
			t.Fatalf("attempt stored verbatim: %+v", r)
		}
		if r.DeviceInfo.Browser != "Chrome" || r.DeviceInfo.OS != "Windows" {
			t.Fatalf("fingerprint: %+v", r.DeviceInfo)
		}
	}
}

func TestVisitorTokenCannotReachAdmin(t *testing.T) {
	a := newApp(t)
	token, _ := unlock(t, a)
	rec := a.do(t, call{method: http.MethodGet, path: "/v1/admin/cases", token: token})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("visitor on admin: %d", rec.Code)
	}
}

type pageView struct {
	Cursor  int `json:"cursor"`
	Buttons []struct {
		Filter string `json:"filter"`
		Count  int    `json:"count"`
	} `json:"buttons"`
	Cards []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"cards"`
	Detail *struct {
		Title string `json:"title"`
	} `json:"detail"`
}

func TestBrowseUsesSnapshotTakenAtUnlock(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()
	for _, title := range []string{"Alpha", "Bravo", "Charlie"} {
		if _, err := a.cases.Create(ctx, repository.NewCaseFile{Title: title, FileType: model.FileImage}); err != nil {
			t.Fatal(err)
		}
	}
	token, ck := unlock(t, a)

	// Created after the unlock: not part of this visitor's snapshot.
	if _, err := a.cases.Create(ctx, repository.NewCaseFile{Title: "Late", FileType: model.FileVideo}); err != nil {
		t.Fatal(err)
	}

	rec := a.do(t, call{method: http.MethodGet, path: "/v1/browse", token: token, cookie: ck})
	if rec.Code != http.StatusOK {
		t.Fatalf("browse: %d %s", rec.Code, rec.Body)
	}
	pv := decode[pageView](t, rec)
	if len(pv.Cards) != 3 || pv.Cursor != -1 {
		t.Fatalf("initial page: %+v", pv)
	}

	act := func(body map[string]any) pageView {
		rec := a.do(t, call{method: http.MethodPost, path: "/v1/browse/actions", token: token, cookie: ck, body: body})
		if rec.Code != http.StatusOK {
			t.Fatalf("action %v: %d %s", body, rec.Code, rec.Body)
		}
		return decode[pageView](t, rec)
	}
	act(map[string]any{"type": "focus", "index": 0})
	pv = act(map[string]any{"type": "key", "key": "ArrowRight", "width": 1024})
	if pv.Cursor != 1 {
		t.Fatalf("cursor after right: %d", pv.Cursor)
	}
	pv = act(map[string]any{"type": "key", "key": "Enter", "width": 1024})
	if pv.Detail == nil || pv.Detail.Title != "Bravo" || pv.Cursor != 1 {
		t.Fatalf("enter: %+v", pv)
	}
	pv = act(map[string]any{"type": "search", "query": "char"})
	if len(pv.Cards) != 1 || pv.Cards[0].Title != "Charlie" {
		t.Fatalf("search: %+v", pv.Cards)
	}

	rec = a.do(t, call{method: http.MethodPost, path: "/v1/browse/actions", token: token, cookie: ck,
		body: map[string]any{"type": "teleport"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown action: %d", rec.Code)
	}
}

type setupView struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func TestSetupAdminBootstrap(t *testing.T) {
	a := newApp(t)
	post := func(body map[string]any) *httptest.ResponseRecorder {
		return a.do(t, call{method: http.MethodPost, path: "/v1/setup/admin", body: body})
	}

	rec := post(map[string]any{"email": "a@x.io", "password": "pw", "setupKey": "nope"})
	if rec.Code != http.StatusForbidden || decode[setupView](t, rec).Error != "Invalid setup key" {
		t.Fatalf("bad key: %d %s", rec.Code, rec.Body)
	}
	rec = post(map[string]any{"email": "", "password": "pw", "setupKey": "setup-key"})
	if rec.Code != http.StatusBadRequest || decode[setupView](t, rec).Error != "Email and password required" {
		t.Fatalf("missing email: %d %s", rec.Code, rec.Body)
	}
	for _, email := range []string{"a@x.io", "b@x.io"} {
		rec = post(map[string]any{"email": email, "password": "pw", "setupKey": "setup-key"})
		if sv := decode[setupView](t, rec); rec.Code != http.StatusCreated || !sv.Success || sv.Message != "Admin created successfully" {
			t.Fatalf("create %s: %d %s", email, rec.Code, rec.Body)
		}
	}
	rec = post(map[string]any{"email": "c@x.io", "password": "pw", "setupKey": "setup-key"})
	if rec.Code != http.StatusBadRequest || decode[setupView](t, rec).Error != "Maximum 2 admins allowed" {
		t.Fatalf("cap: %d %s", rec.Code, rec.Body)
	}
}

type authView struct {
	Error  string `json:"error"`
	Access struct {
		Token string `json:"token"`
	} `json:"access"`
	Refresh struct {
		Token string `json:"token"`
	} `json:"refresh"`
}

func adminLogin(t *testing.T, a *app) authView {
	t.Helper()
	rec := a.do(t, call{method: http.MethodPost, path: "/v1/setup/admin",
		body: map[string]any{"email": "boss@x.io", "password": "hunter2", "setupKey": "setup-key"}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("setup: %d %s", rec.Code, rec.Body)
	}
	rec = a.do(t, call{method: http.MethodPost, path: "/v1/admin/login",
		body: map[string]any{"email": "BOSS@x.io", "password": "hunter2"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body)
	}
	return decode[authView](t, rec)
}

func mustHash(t *testing.T, pw string) string {
	t.Helper()
	h, err := utils.HashPassword(pw, 4)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestAdminLoginRejectsNonAdmins(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()
	if _, err := a.admins.CreateIdentity(ctx, "plain@x.io", mustHash(t, "pw")); err != nil {
		t.Fatal(err)
	}

	rec := a.do(t, call{method: http.MethodPost, path: "/v1/admin/login", body: map[string]any{"email": "plain@x.io", "password": "pw"}})
	if rec.Code != http.StatusUnauthorized || decode[authView](t, rec).Error != "Unauthorized" {
		t.Fatalf("non-admin login: %d %s", rec.Code, rec.Body)
	}
	rec = a.do(t, call{method: http.MethodPost, path: "/v1/admin/login", body: map[string]any{"email": "plain@x.io", "password": "bad"}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: %d", rec.Code)
	}
}

func TestAdminPanel(t *testing.T) {
	a := newApp(t)
	auth := adminLogin(t, a)
	tok := auth.Access.Token

	// Text case via multipart.
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", "  Diary  ")
	_ = mw.WriteField("file_type", "text")
	_ = mw.WriteField("text_content", "day one")
	_ = mw.WriteField("description", "   ")
	_ = mw.Close()
	rec := a.do(t, call{method: http.MethodPost, path: "/v1/admin/cases", token: tok, raw: buf.Bytes(), contentType: mw.FormDataContentType()})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create text case: %d %s", rec.Code, rec.Body)
	}
	text := decode[model.CaseFile](t, rec)
	if text.Title != "Diary" || text.Description != nil || text.TextContent == nil || text.DisplayOrder != 0 {
		t.Fatalf("text case: %+v", text)
	}

	// Image case with an attachment.
	buf.Reset()
	mw = multipart.NewWriter(&buf)
	_ = mw.WriteField("title", "Scene")
	_ = mw.WriteField("file_type", "image")
	_ = mw.WriteField("text_content", "ignored")
	fw, _ := mw.CreateFormFile("file", "scene.JPG")
	_, _ = fw.Write([]byte("jpeg bytes"))
	_ = mw.Close()
	rec = a.do(t, call{method: http.MethodPost, path: "/v1/admin/cases", token: tok, raw: buf.Bytes(), contentType: mw.FormDataContentType()})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create image case: %d %s", rec.Code, rec.Body)
	}
	img := decode[model.CaseFile](t, rec)
	if img.TextContent != nil || img.FileURL == nil || !strings.HasPrefix(*img.FileURL, "/storage/case-files/") || !strings.HasSuffix(*img.FileURL, ".JPG") {
		t.Fatalf("image case: %+v", img)
	}
	if img.DisplayOrder != 1 {
		t.Fatalf("display_order=%d want=1", img.DisplayOrder)
	}

	// The stored object is served publicly.
	rec = a.do(t, call{method: http.MethodGet, path: *img.FileURL})
	if rec.Code != http.StatusOK || rec.Body.String() != "jpeg bytes" {
		t.Fatalf("static object: %d %q", rec.Code, rec.Body.String())
	}

	rec = a.do(t, call{method: http.MethodDelete, path: "/v1/admin/cases/" + text.ID, token: tok})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	rec = a.do(t, call{method: http.MethodDelete, path: "/v1/admin/cases/" + text.ID, token: tok})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("delete again: %d", rec.Code)
	}

	rec = a.do(t, call{method: http.MethodPut, path: "/v1/admin/settings/password", token: tok, body: map[string]any{"password": " opensesame "}})
	if rec.Code != http.StatusOK {
		t.Fatalf("update password: %d %s", rec.Code, rec.Body)
	}
	rec = a.do(t, call{method: http.MethodGet, path: "/v1/admin/settings", token: tok})
	if s := decode[map[string]any](t, rec); s["site_password"] != "opensesame" {
		t.Fatalf("settings: %v", s)
	}

	rec = a.do(t, call{method: http.MethodGet, path: "/v1/admin/attempts?page=1&page_size=1000", token: tok})
	if rec.Code != http.StatusOK {
		t.Fatalf("attempts: %d", rec.Code)
	}
	if av := decode[map[string]any](t, rec); av["page_size"] != float64(repository.MaxAttemptRows) {
		t.Fatalf("page_size not capped: %v", av["page_size"])
	}

	rec = a.do(t, call{method: http.MethodPost, path: "/v1/admin/refresh", body: map[string]any{"refresh_token": auth.Refresh.Token}})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", rec.Code, rec.Body)
	}
	rec = a.do(t, call{method: http.MethodPost, path: "/v1/admin/refresh", body: map[string]any{"refresh_token": auth.Refresh.Token}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh: %d", rec.Code)
	}
}

func TestAdminAttemptsHugePageStaysInRange(t *testing.T) {
	a := newApp(t)
	tok := adminLogin(t, a).Access.Token
	for i := 0; i < 3; i++ {
		at := &model.AccessAttempt{PasswordTried: "x", UserAgent: "ua", CreatedAt: time.Now()}
		if err := a.attempts.Insert(context.Background(), at); err != nil {
			t.Fatal(err)
		}
	}

	rec := a.do(t, call{method: http.MethodGet, path: "/v1/admin/attempts?page=9223372036854775807&page_size=50", token: tok})
	if rec.Code != http.StatusOK {
		t.Fatalf("attempts: %d %s", rec.Code, rec.Body)
	}
	av := decode[struct {
		Items []model.AccessAttempt `json:"items"`
		Page  int                   `json:"page"`
	}](t, rec)
	if want := (repository.MaxAttemptRows + 49) / 50; av.Page != want || len(av.Items) != 0 {
		t.Fatalf("page=%d items=%d want page=%d and no items", av.Page, len(av.Items), want)
	}
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, call{method: http.MethodGet, path: "/healthz"})
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
}

func TestCaseDetailPhotosAndMusic(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()
	desc := "found at the pier"
	cf, err := a.cases.Create(ctx, repository.NewCaseFile{Title: "Pier", Description: &desc, FileType: model.FileImage})
	if err != nil {
		t.Fatal(err)
	}
	token, _ := unlock(t, a)

	rec := a.do(t, call{method: http.MethodGet, path: "/v1/cases/" + cf.ID, token: token})
	if rec.Code != http.StatusOK {
		t.Fatalf("detail: %d %s", rec.Code, rec.Body)
	}
	dv := decode[struct {
		Detail struct {
			Label  string `json:"label"`
			Blocks []struct {
				Kind string `json:"kind"`
			} `json:"blocks"`
		} `json:"detail"`
	}](t, rec)
	if dv.Detail.Label != "PHOTOGRAPH" || len(dv.Detail.Blocks) != 1 {
		t.Fatalf("detail: %+v", dv.Detail)
	}

	rec = a.do(t, call{method: http.MethodGet, path: "/v1/cases/missing", token: token})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing detail: %d", rec.Code)
	}
	rec = a.do(t, call{method: http.MethodGet, path: "/v1/cases/" + cf.ID + "/photos", token: token})
	if rec.Code != http.StatusOK {
		t.Fatalf("photos: %d", rec.Code)
	}
	rec = a.do(t, call{method: http.MethodGet, path: "/v1/music", token: token})
	if mv := decode[map[string]any](t, rec); rec.Code != http.StatusOK || mv["music_url"] != nil {
		t.Fatalf("music: %d %v", rec.Code, mv)
	}
}
