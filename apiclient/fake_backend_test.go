package apiclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/julienschmidt/httprouter"

	"github.com/marketdesk/adminctl/auth"
	"github.com/marketdesk/adminctl/auth/state"
)

// FakeBackend mimics the admin backend: it accepts a set of access tokens and
// exchanges known refresh tokens for new pairs.
type FakeBackend struct {
	srv *httptest.Server

	mu          sync.Mutex
	validAccess map[string]bool
	rotations   map[string]state.Credentials
	seenAuth    []string

	// rejectAll makes /resource answer 401 whatever the token.
	rejectAll atomic.Bool

	refreshCalls  atomic.Int32
	resourceCalls atomic.Int32
	// refreshGate, when set, holds refresh responses until it is closed.
	refreshGate  chan struct{}
	refreshStart chan struct{}
}

func NewFakeBackend() *FakeBackend {
	router := httprouter.New()
	backend := &FakeBackend{
		srv:          httptest.NewServer(router),
		validAccess:  make(map[string]bool),
		rotations:    make(map[string]state.Credentials),
		refreshStart: make(chan struct{}, 100),
	}

	router.GET("/resource", func(rw http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		backend.resourceCalls.Add(1)
		header := r.Header.Get("Authorization")
		backend.mu.Lock()
		backend.seenAuth = append(backend.seenAuth, header)
		ok := strings.HasPrefix(header, "Bearer ") && backend.validAccess[strings.TrimPrefix(header, "Bearer ")]
		backend.mu.Unlock()

		if !ok || backend.rejectAll.Load() {
			writeJSON(rw, http.StatusUnauthorized, map[string]string{"message": "jwt expired"})
			return
		}
		writeJSON(rw, http.StatusOK, map[string]interface{}{
			"data": map[string]string{"token": strings.TrimPrefix(header, "Bearer ")},
		})
	})
	router.POST("/resource", func(rw http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var payload map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		header := r.Header.Get("Authorization")
		backend.mu.Lock()
		ok := backend.validAccess[strings.TrimPrefix(header, "Bearer ")]
		backend.mu.Unlock()
		if !ok {
			writeJSON(rw, http.StatusUnauthorized, map[string]string{"message": "jwt expired"})
			return
		}
		writeJSON(rw, http.StatusCreated, map[string]interface{}{"data": payload})
	})
	router.GET("/broken", func(rw http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(rw, http.StatusInternalServerError, map[string]string{"message": "database unavailable"})
	})
	router.GET("/forbidden", func(rw http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(rw, http.StatusForbidden, map[string]string{"message": "not an admin"})
	})
	router.GET(DefaultHealthPath, func(rw http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(rw, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.POST(auth.DefaultRefreshPath, func(rw http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		backend.refreshCalls.Add(1)
		backend.refreshStart <- struct{}{}
		if gate := backend.refreshGate; gate != nil {
			<-gate
		}

		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(rw, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}

		backend.mu.Lock()
		next, ok := backend.rotations[req.RefreshToken]
		if ok {
			delete(backend.rotations, req.RefreshToken)
			backend.validAccess[next.AccessToken] = true
		}
		backend.mu.Unlock()

		if !ok {
			writeJSON(rw, http.StatusUnauthorized, map[string]string{"message": "invalid refresh token"})
			return
		}
		writeJSON(rw, http.StatusOK, map[string]interface{}{
			"data": map[string]string{"accessToken": next.AccessToken, "refreshToken": next.RefreshToken},
		})
	})

	return backend
}

func writeJSON(rw http.ResponseWriter, status int, v interface{}) {
	rw.Header().Add("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func (b *FakeBackend) URL() string {
	return b.srv.URL
}

func (b *FakeBackend) Close() {
	b.srv.Close()
}

// Accept marks an access token as valid.
func (b *FakeBackend) Accept(accessToken string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.validAccess[accessToken] = true
}

// Revoke marks an access token as expired.
func (b *FakeBackend) Revoke(accessToken string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.validAccess, accessToken)
}

// Rotate makes refreshToken exchangeable, once, for next.
func (b *FakeBackend) Rotate(refreshToken string, next state.Credentials) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rotations[refreshToken] = next
}

func (b *FakeBackend) SeenAuthorization() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.seenAuth...)
}
