// Package googletest levanta un proveedor OpenID falso (discovery, token,
// userinfo) sobre httptest para tests del login.
package googletest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// User es el perfil que devuelve userinfo para un code dado.
type User struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

// Server es el proveedor falso.
type Server struct {
	*httptest.Server

	ClientID     string
	ClientSecret string

	mu    sync.Mutex
	codes map[string]User
	// FailToken hace que /token responda 500.
	FailToken atomic.Bool
	// DiscoveryDelay retrasa cada respuesta de discovery (nanosegundos).
	DiscoveryDelay atomic.Int64

	discoveryHits atomic.Int64
	tokenHits     atomic.Int64
}

// NewServer arranca el servidor; llamar Close al terminar.
func NewServer() *Server {
	s := &Server{ClientID: "test-client", ClientSecret: "test-secret", codes: map[string]User{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", s.discovery)
	mux.HandleFunc("/token", s.token)
	mux.HandleFunc("/userinfo", s.userinfo)
	s.Server = httptest.NewServer(mux)
	return s
}

// DiscoveryURL del servidor.
func (s *Server) DiscoveryURL() string {
	return s.URL + "/.well-known/openid-configuration"
}

// AddCode registra el perfil que se entregará al canjear code.
func (s *Server) AddCode(code string, u User) {
	s.mu.Lock()
	s.codes[code] = u
	s.mu.Unlock()
}

func (s *Server) DiscoveryHits() int64 { return s.discoveryHits.Load() }
func (s *Server) TokenHits() int64 { return s.tokenHits.Load() }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) discovery(w http.ResponseWriter, r *http.Request) {
	s.discoveryHits.Add(1)
	if d := time.Duration(s.DiscoveryDelay.Load()); d > 0 {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"issuer":                 s.URL,
		"authorization_endpoint": s.URL + "/auth",
		"token_endpoint":         s.URL + "/token",
		"userinfo_endpoint":      s.URL + "/userinfo",
	})
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	s.tokenHits.Add(1)
	if s.FailToken.Load() {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
		return
	}
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "authorization_code" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}
	id, secret, ok := r.BasicAuth()
	if !ok {
		id, secret = r.PostForm.Get("client_id"), r.PostForm.Get("client_secret")
	}
	if id != s.ClientID || secret != s.ClientSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
		return
	}
	code := r.PostForm.Get("code")
	s.mu.Lock()
	_, known := s.codes[code]
	s.mu.Unlock()
	if !known {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": "at-" + code,
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func (s *Server) userinfo(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer at-")
	s.mu.Lock()
	u, ok := s.codes[code]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_token"})
		return
	}
	writeJSON(w, http.StatusOK, u)
}
