package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"agora/internal/auth"

	"github.com/gin-gonic/gin"
)

func newTestEngine(codec *auth.Codec) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", AuthRequired(codec), func(c *gin.Context) {
		fromCtx, _ := CallerFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"caller": CallerID(c), "ctx": fromCtx})
	})
	r.GET("/public", LoadCaller(codec), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"caller": CallerID(c)})
	})
	return r
}

func doGet(r http.Handler, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body.Error.Code
}

func TestAuthRequiredMissingToken(t *testing.T) {
	r := newTestEngine(auth.NewCodec([]byte("secret"), time.Hour))

	for _, header := range []string{"", "Basic dXNlcjpwYXNz", "Bearer", "Bearer   "} {
		w := doGet(r, "/private", header)
		if w.Code != http.StatusForbidden {
			t.Errorf("header %q: status = %d, want 403", header, w.Code)
			continue
		}
		if code := errorCode(t, w); code != "UNAUTHENTICATED" {
			t.Errorf("header %q: code = %q, want UNAUTHENTICATED", header, code)
		}
	}
}

func TestAuthRequiredInvalidToken(t *testing.T) {
	r := newTestEngine(auth.NewCodec([]byte("secret"), time.Hour))

	w := doGet(r, "/private", "Bearer not-a-token")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if code := errorCode(t, w); code != "INVALID_TOKEN" {
		t.Fatalf("code = %q, want INVALID_TOKEN", code)
	}
}

func TestAuthRequiredExpiredTokenLooksLikeBadSignature(t *testing.T) {
	codec := auth.NewCodec([]byte("secret"), time.Hour)
	issued := time.Now().Add(-2 * time.Hour)
	codec.Now = func() time.Time { return issued }
	expired, err := codec.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	codec.Now = time.Now

	forged, err := auth.NewCodec([]byte("other"), time.Hour).Issue("user-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	r := newTestEngine(codec)
	wExpired := doGet(r, "/private", "Bearer "+expired)
	wForged := doGet(r, "/private", "Bearer "+forged)
	if wExpired.Code != http.StatusUnauthorized || wForged.Code != http.StatusUnauthorized {
		t.Fatalf("statuses = %d, %d, want 401, 401", wExpired.Code, wForged.Code)
	}
	if wExpired.Body.String() != wForged.Body.String() {
		t.Errorf("expired and forged responses differ: %q vs %q", wExpired.Body.String(), wForged.Body.String())
	}
}

func TestAuthRequiredValidToken(t *testing.T) {
	codec := auth.NewCodec([]byte("secret"), time.Hour)
	token, err := codec.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	w := doGet(newTestEngine(codec), "/private", "bearer "+token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", w.Code, w.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["caller"] != "user-42" || body["ctx"] != "user-42" {
		t.Errorf("body = %v, want caller and ctx user-42", body)
	}
}

func TestLoadCallerIsOptional(t *testing.T) {
	codec := auth.NewCodec([]byte("secret"), time.Hour)
	r := newTestEngine(codec)

	if w := doGet(r, "/public", ""); w.Code != http.StatusOK || w.Body.String() != `{"caller":""}` {
		t.Errorf("anonymous: %d %s", w.Code, w.Body.String())
	}
	if w := doGet(r, "/public", "Bearer junk"); w.Code != http.StatusOK || w.Body.String() != `{"caller":""}` {
		t.Errorf("bad token: %d %s", w.Code, w.Body.String())
	}

	token, _ := codec.Issue("user-7")
	if w := doGet(r, "/public", "Bearer "+token); w.Body.String() != `{"caller":"user-7"}` {
		t.Errorf("valid token: %s", w.Body.String())
	}
}
