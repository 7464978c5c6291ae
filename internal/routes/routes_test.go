package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"smart-locker-control/internal/access"
	"smart-locker-control/internal/activity"
	"smart-locker-control/internal/jwt"
	"smart-locker-control/internal/locker"
	"smart-locker-control/internal/nonce"
	"smart-locker-control/internal/service"
	"smart-locker-control/internal/storage"
)

const (
	testSecret   = "test-secret"
	testPassword = "correct horse"
	testLockerID = "locker-1"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	svc    *service.Services
}

func newTestServer(t *testing.T, settleDelay time.Duration) *testServer {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	users, err := access.NewDirectory(
		access.User{ID: "1", Username: "admin", PasswordHash: string(hash), Role: access.RoleAdmin},
		access.User{ID: "2", Username: "user", PasswordHash: string(hash), Role: access.RoleUser},
		access.User{ID: "3", Username: "guest", PasswordHash: string(hash), Role: access.RoleGuest},
	)
	if err != nil {
		t.Fatal(err)
	}

	provider := storage.NewMemoryProvider()
	nonces := nonce.NewMemoryStore()
	ctl, err := locker.NewController(context.Background(), testLockerID, provider, settleDelay)
	if err != nil {
		t.Fatal(err)
	}

	svc := &service.Services{
		Users:    users,
		Nonces:   nonces,
		Signer:   jwt.NewSigner(testSecret, time.Hour, time.Minute, 0, nonces),
		Locker:   ctl,
		Activity: activity.NewLog(storage.LogActivity, provider, 1000, 100, activity.TypeUserAction),
		QRLog:    activity.NewLog(storage.LogQR, provider, 1000, 100, activity.TypeInfo),
	}
	t.Cleanup(svc.Close)

	r := gin.New()
	r.Use(ErrorHandler())
	Health(r)
	h := &Handlers{Services: svc, QRImageSize: 128}
	h.Register(r.Group("/api"))

	return &testServer{t: t, router: r, svc: svc}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(username string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": username, "password": testPassword})
	if w.Code != http.StatusOK {
		s.t.Fatalf("login %s: status %d: %s", username, w.Code, w.Body.String())
	}
	var resp loginResponse
	decode(s.t, w, &resp)
	return resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid JSON %q: %v", w.Body.String(), err)
	}
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) errorStruct {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d: %s", w.Code, status, w.Body.String())
	}
	var body errorStruct
	decode(t, w, &body)
	if body.Succeed {
		t.Errorf("success = true in error response")
	}
	if code != "" && !slices.Contains(body.Code, code) {
		t.Errorf("codes = %v, want %s", body.Code, code)
	}
	return body
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, time.Second)

	w := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "user", "password": testPassword})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp loginResponse
	decode(t, w, &resp)
	if resp.Token == "" {
		t.Fatal("empty token")
	}
	if resp.User.Username != "user" || resp.User.Role != access.RoleUser || resp.User.ID != "2" {
		t.Errorf("user = %+v", resp.User)
	}
	if !slices.Contains(resp.User.Permissions, access.PermLockerOpen) {
		t.Errorf("permissions = %v", resp.User.Permissions)
	}

	entries, err := s.svc.Activity.All(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Action != activity.ActionLogin || entries[0].User != "user" || entries[0].Type != activity.TypeUserAction {
		t.Errorf("activity after login = %+v", entries)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	s := newTestServer(t, time.Second)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "user", "nope"},
		{"unknown user", "mallory", testPassword},
		{"case sensitive username", "User", testPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": tt.username, "password": tt.password})
			body := expectError(t, w, http.StatusUnauthorized, "AUTH_INVALID_CREDENTIALS")
			if body.Error != "Invalid credentials" {
				t.Errorf("error = %q", body.Error)
			}
		})
	}

	w := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "user"})
	expectError(t, w, http.StatusBadRequest, "MISSING_PARAMETER")
}

func TestAuthenticationErrors(t *testing.T) {
	s := newTestServer(t, time.Second)

	w := s.do(http.MethodGet, "/api/locker/status", "", nil)
	expectError(t, w, http.StatusUnauthorized, "AUTH_REQUIRED")

	w = s.do(http.MethodGet, "/api/locker/status", "not-a-token", nil)
	expectError(t, w, http.StatusUnauthorized, "AUTH_INVALID_TOKEN")

	expired := jwt.NewSigner(testSecret, -time.Minute, time.Minute, 0, nil)
	token, _, err := expired.IssueSession(&access.User{ID: "1", Username: "admin", Role: access.RoleAdmin})
	if err != nil {
		t.Fatal(err)
	}
	w = s.do(http.MethodGet, "/api/locker/status", token, nil)
	expectError(t, w, http.StatusUnauthorized, "AUTH_TOKEN_EXPIRED")
}

func TestExpiredSessionIgnoresClockSkew(t *testing.T) {
	s := newTestServer(t, time.Second)
	s.svc.Signer = jwt.NewSigner(testSecret, time.Hour, time.Minute, 5*time.Second, s.svc.Nonces)

	expired := jwt.NewSigner(testSecret, -2*time.Second, time.Minute, 5*time.Second, nil)
	token, _, err := expired.IssueSession(&access.User{ID: "1", Username: "admin", Role: access.RoleAdmin})
	if err != nil {
		t.Fatal(err)
	}
	w := s.do(http.MethodGet, "/api/locker/status", token, nil)
	expectError(t, w, http.StatusUnauthorized, "AUTH_TOKEN_EXPIRED")
}

func TestMe(t *testing.T) {
	s := newTestServer(t, time.Second)

	w := s.do(http.MethodGet, "/api/auth/me", s.login("guest"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var u publicUser
	decode(t, w, &u)
	if u.Username != "guest" || u.Role != access.RoleGuest {
		t.Errorf("me = %+v", u)
	}

	ghost, _, err := s.svc.Signer.IssueSession(&access.User{ID: "99", Username: "ghost", Role: access.RoleUser})
	if err != nil {
		t.Fatal(err)
	}
	w = s.do(http.MethodGet, "/api/auth/me", ghost, nil)
	expectError(t, w, http.StatusUnauthorized, "AUTH_UNKNOWN_USER")
}

func TestPermissions(t *testing.T) {
	s := newTestServer(t, time.Second)
	guest := s.login("guest")
	user := s.login("user")

	tests := []struct {
		name   string
		token  string
		method string
		path   string
		body   any
		status int
	}{
		{"guest reads status", guest, http.MethodGet, "/api/locker/status", nil, http.StatusOK},
		{"guest cannot open", guest, http.MethodPost, "/api/locker/command", gin.H{"action": "open"}, http.StatusForbidden},
		{"guest cannot close", guest, http.MethodPost, "/api/locker/command", gin.H{"action": "close"}, http.StatusForbidden},
		{"guest writes activity", guest, http.MethodPost, "/api/activity", gin.H{"action": "Viewed dashboard"}, http.StatusOK},
		{"guest cannot read analytics", guest, http.MethodGet, "/api/analytics", nil, http.StatusForbidden},
		{"guest cannot grant", guest, http.MethodPost, "/api/qr/grant", nil, http.StatusForbidden},
		{"user cannot read activity", user, http.MethodGet, "/api/activity", nil, http.StatusForbidden},
		{"user cannot clear activity", user, http.MethodDelete, "/api/activity", nil, http.StatusForbidden},
		{"user reads analytics", user, http.MethodGet, "/api/analytics", nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.method, tt.path, tt.token, tt.body)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.status, w.Body.String())
			}
			if tt.status == http.StatusForbidden {
				expectError(t, w, http.StatusForbidden, "INSUFFICIENT_PERMISSIONS")
			}
		})
	}

	if got := s.svc.Locker.Status().Status; got != locker.StatusClosed {
		t.Errorf("locker status = %s after forbidden commands", got)
	}
}

func TestLockerCommand(t *testing.T) {
	s := newTestServer(t, 20*time.Millisecond)
	token := s.login("user")

	w := s.do(http.MethodPost, "/api/locker/command", token, gin.H{"action": "open"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		OK     bool           `json:"ok"`
		Status locker.Status  `json:"status"`
		Locker locker.State   `json:"locker"`
		Entry  activity.Entry `json:"activity"`
	}
	decode(t, w, &resp)
	if !resp.OK || resp.Status != locker.StatusOpening || resp.Locker.Status != locker.StatusOpening {
		t.Errorf("response = %+v", resp)
	}
	if resp.Locker.LastUpdate.IsZero() {
		t.Error("last_update not stamped")
	}
	if resp.Entry.Action != activity.ActionLockerOpen || resp.Entry.Type != activity.TypeStatusChange || resp.Entry.User != "user" {
		t.Errorf("activity = %+v", resp.Entry)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := s.svc.Locker.Wait(ctx); err != nil {
		t.Fatal(err)
	}

	w = s.do(http.MethodGet, "/api/locker/status", token, nil)
	var state locker.State
	decode(t, w, &state)
	if state.Status != locker.StatusOpen {
		t.Errorf("settled status = %s, want open", state.Status)
	}
}

func TestLockerCommandInvalidAction(t *testing.T) {
	s := newTestServer(t, 20*time.Millisecond)
	token := s.login("admin")
	before := s.svc.Locker.Status()

	for _, action := range []string{"explode", "", "OPEN", "Open", " open", " Close "} {
		w := s.do(http.MethodPost, "/api/locker/command", token, gin.H{"action": action})
		expectError(t, w, http.StatusBadRequest, "INVALID_ACTION")
	}

	if after := s.svc.Locker.Status(); !after.LastUpdate.Equal(before.LastUpdate) || after.Status != before.Status {
		t.Errorf("state changed from %+v to %+v", before, after)
	}
	entries, _ := s.svc.Activity.All(context.Background())
	for _, e := range entries {
		if e.Type == activity.TypeStatusChange {
			t.Errorf("unexpected status change entry %+v", e)
		}
	}
}

func TestActivityLog(t *testing.T) {
	s := newTestServer(t, time.Second)
	admin := s.login("admin")
	guest := s.login("guest")

	w := s.do(http.MethodPost, "/api/activity", guest, gin.H{"action": "  Checked locker  ", "metadata": gin.H{"source": "dashboard"}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var entry activity.Entry
	decode(t, w, &entry)
	if entry.Action != "Checked locker" || entry.Type != activity.TypeUserAction || entry.User != "guest" || entry.ID == "" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Metadata["source"] != "dashboard" {
		t.Errorf("metadata = %v", entry.Metadata)
	}

	w = s.do(http.MethodPost, "/api/activity", guest, gin.H{"type": "info"})
	expectError(t, w, http.StatusBadRequest, "MISSING_ACTION")

	w = s.do(http.MethodGet, "/api/activity", admin, nil)
	var entries []activity.Entry
	decode(t, w, &entries)
	// Newest first: the entry above, then the two logins.
	if len(entries) != 3 || entries[0].Action != "Checked locker" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestActivityClear(t *testing.T) {
	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodDelete, "/api/activity"},
		{http.MethodPost, "/api/activity/clear"},
	} {
		t.Run(tc.method, func(t *testing.T) {
			s := newTestServer(t, time.Second)
			admin := s.login("admin")
			for range 5 {
				s.do(http.MethodPost, "/api/activity", admin, gin.H{"action": "noise"})
			}

			w := s.do(tc.method, tc.path, admin, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", w.Code, w.Body.String())
			}

			w = s.do(http.MethodGet, "/api/activity", admin, nil)
			var entries []activity.Entry
			decode(t, w, &entries)
			if len(entries) != 1 {
				t.Fatalf("entries after clear = %+v", entries)
			}
			if e := entries[0]; e.Action != activity.ActionCleared || e.Type != activity.TypeSystem || e.User != "admin" {
				t.Errorf("marker = %+v", e)
			}
		})
	}
}

func TestAnalytics(t *testing.T) {
	s := newTestServer(t, 10*time.Millisecond)
	token := s.login("admin")

	for _, action := range []string{"open", "close", "open"} {
		if w := s.do(http.MethodPost, "/api/locker/command", token, gin.H{"action": action}); w.Code != http.StatusOK {
			t.Fatalf("command %s: %d", action, w.Code)
		}
	}
	s.do(http.MethodPost, "/api/activity", token, gin.H{"action": "Sensor fault", "type": activity.TypeError})

	w := s.do(http.MethodGet, "/api/analytics", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var a activity.Analytics
	decode(t, w, &a)
	if a.Stats.TotalOpens != 2 || a.Stats.TotalCloses != 1 || a.Stats.SystemErrors != 1 || a.Stats.ActiveUsers != 1 {
		t.Errorf("stats = %+v", a.Stats)
	}
	if a.TotalEntries != 5 {
		t.Errorf("totalEntries = %d, want 5", a.TotalEntries)
	}
	if a.PeakHour == nil || *a.PeakHour != time.Now().Hour() {
		t.Errorf("peakHour = %v", a.PeakHour)
	}
	if a.StatusDistribution.Opening != 2 || a.StatusDistribution.Closing != 1 {
		t.Errorf("statusDistribution = %+v", a.StatusDistribution)
	}
}

func TestQRProcess(t *testing.T) {
	s := newTestServer(t, time.Second)
	token := s.login("guest")

	tests := []struct {
		data  string
		kind  string
		valid bool
	}{
		{"USER_42", "user", true},
		{"ADMIN_1", "admin", true},
		{"https://example.com", "url", false},
		{"hello", "unknown", false},
	}
	for _, tt := range tests {
		w := s.do(http.MethodPost, "/api/qr/process", token, gin.H{"data": tt.data})
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d: %s", tt.data, w.Code, w.Body.String())
		}
		var got struct {
			Type  string `json:"type"`
			Valid bool   `json:"valid"`
		}
		decode(t, w, &got)
		if got.Type != tt.kind || got.Valid != tt.valid {
			t.Errorf("%s: got %+v", tt.data, got)
		}
	}

	w := s.do(http.MethodPost, "/api/qr/process", token, gin.H{})
	expectError(t, w, http.StatusBadRequest, "MISSING_QR_DATA")

	w = s.do(http.MethodGet, "/api/qr/activity", token, nil)
	var entries []activity.Entry
	decode(t, w, &entries)
	if len(entries) != len(tests) || entries[0].Data != "hello" {
		t.Errorf("qr activity = %+v", entries)
	}
}

func TestQRGrantAccessCodeIsOneTime(t *testing.T) {
	s := newTestServer(t, 10*time.Millisecond)
	token := s.login("user")

	req := httptest.NewRequest(http.MethodPost, "/api/qr/generate", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("generate: status = %d: %s", w.Code, w.Body.String())
	}
	var gen qrGenerateResponse
	decode(t, w, &gen)
	if !strings.HasPrefix(gen.Data, "LOCKER_ACCESS_") || gen.ExpiresAt == nil || gen.PNG == "" {
		t.Fatalf("generate response = %+v", gen)
	}

	w = s.do(http.MethodPost, "/api/qr/grant", token, gin.H{"code": gen.Data})
	if w.Code != http.StatusOK {
		t.Fatalf("grant: status = %d: %s", w.Code, w.Body.String())
	}
	if got := s.svc.Locker.Status().Status; got != locker.StatusOpening {
		t.Errorf("status after grant = %s", got)
	}

	w = s.do(http.MethodPost, "/api/qr/grant", token, gin.H{"code": gen.Data})
	expectError(t, w, http.StatusUnauthorized, "AUTH_INVALID_NONCE")

	w = s.do(http.MethodPost, "/api/qr/grant", token, gin.H{"code": "USER_42"})
	expectError(t, w, http.StatusBadRequest, "INVALID_QR_CODE")

	entries, _ := s.svc.QRLog.All(context.Background())
	if len(entries) == 0 || entries[0].Action != activity.ActionQRDenied || entries[0].Type != activity.TypeSecurity {
		t.Errorf("qr log head = %+v", entries)
	}
	for _, e := range entries {
		if strings.Contains(e.Data, gen.Data) || e.Metadata["data"] == gen.Data {
			t.Errorf("access code leaked into the log: %+v", e)
		}
	}
}

type failingNonces struct{ *nonce.MemoryStore }

func (failingNonces) Consume(context.Context, string) (bool, error) {
	return false, errors.New("database is locked")
}

func TestQRGrantNonceStoreFailure(t *testing.T) {
	s := newTestServer(t, time.Second)
	nonces := failingNonces{nonce.NewMemoryStore()}
	t.Cleanup(func() { nonces.Close() })
	s.svc.Signer = jwt.NewSigner(testSecret, time.Hour, time.Minute, 0, nonces)

	token, _, err := s.svc.Signer.IssueAccessCode(context.Background(), testLockerID)
	if err != nil {
		t.Fatal(err)
	}
	w := s.do(http.MethodPost, "/api/qr/grant", s.login("user"), gin.H{"code": "LOCKER_ACCESS_" + token})
	expectError(t, w, http.StatusInternalServerError, "")

	if got := s.svc.Locker.Status().Status; got != locker.StatusClosed {
		t.Errorf("status = %s, want closed", got)
	}
	entries, _ := s.svc.QRLog.All(context.Background())
	for _, e := range entries {
		if e.Action == activity.ActionQRDenied {
			t.Errorf("store failure logged as denial: %+v", e)
		}
	}
}

func TestQRGeneratePNG(t *testing.T) {
	s := newTestServer(t, time.Second)
	w := s.do(http.MethodPost, "/api/qr/generate", s.login("admin"), gin.H{"data": "GUEST_7"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}

	entries, _ := s.svc.QRLog.All(context.Background())
	if len(entries) == 0 {
		t.Fatal("generation not logged")
	}
	e := entries[0]
	if e.Action != activity.ActionQRGenerated || e.User != "admin" || e.Metadata["kind"] != "guest" || e.Metadata["data"] != "GUEST_7" {
		t.Errorf("qr log head = %+v", e)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()
	rejected := 0
	rl.OnReject(func() { rejected++ })

	r := gin.New()
	r.Use(ErrorHandler(), rl.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for range 3 {
		last = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		r.ServeHTTP(last, req)
		codes = append(codes, last.Code)
	}
	if !slices.Equal(codes, []int{200, 200, 429}) {
		t.Fatalf("codes = %v", codes)
	}
	expectError(t, last, http.StatusTooManyRequests, "RATE_LIMITED")
	if last.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	if rejected != 1 {
		t.Errorf("rejected = %d", rejected)
	}

	// Other clients have their own bucket.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.2:1234"
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("second client: status = %d", w.Code)
	}

	rl.cleanup(time.Now().Add(3 * time.Minute))
	if n := rl.Count(); n != 0 {
		t.Errorf("clients after cleanup = %d", n)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, time.Second)
	w := s.do(http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	decode(t, w, &body)
	if body["status"] != "ok" || body["time"] == "" {
		t.Errorf("body = %v", body)
	}
}

func TestErrorHandlerMapsWrappedErrors(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/custom", func(c *gin.Context) {
		AbortWithHTTPError(c, http.StatusConflict, nil, "Locker busy", "LOCKER_BUSY")
	})
	r.GET("/internal", func(c *gin.Context) {
		AbortWithError(c, context.DeadlineExceeded)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/custom", nil))
	body := expectError(t, w, http.StatusConflict, "LOCKER_BUSY")
	if body.Error != "Locker busy" {
		t.Errorf("error = %q", body.Error)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal", nil))
	body = expectError(t, w, http.StatusInternalServerError, "")
	if strings.Contains(body.Error, "deadline") {
		t.Errorf("internal error leaked: %q", body.Error)
	}
}
