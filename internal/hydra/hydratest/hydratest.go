// Package hydratest runs an in-memory hydra admin API over HTTP for tests.
package hydratest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"

	"github.com/datacentricdesign/profile-api/internal/hydra"
)

// RedirectBase prefixes every redirect_to answered by the server.
const RedirectBase = "https://hydra.test/"

// Decision is an accept or a reject received by the server.
type Decision struct {
	Flow      string
	Action    string
	Challenge string
	Body      map[string]any
}

// Server is an in-memory hydra admin API.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	logins    map[string]hydra.LoginRequest
	consents  map[string]hydra.ConsentRequest
	logouts   map[string]hydra.LogoutRequest
	tokens    map[string]hydra.Introspection
	sessions  map[string][]hydra.PreviousConsent
	clients   map[string]hydra.Client
	decisions []Decision
	revoked   []string
}

// NewServer starts a server. Close it when done.
func NewServer() *Server {
	s := &Server{
		logins:   map[string]hydra.LoginRequest{},
		consents: map[string]hydra.ConsentRequest{},
		logouts:  map[string]hydra.LogoutRequest{},
		tokens:   map[string]hydra.Introspection{},
		sessions: map[string][]hydra.PreviousConsent{},
		clients:  map[string]hydra.Client{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth2/token", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "svc", "token_type": "bearer", "expires_in": 3600})
	})
	mux.HandleFunc("GET /oauth2/auth/requests/{flow}", s.getRequest)
	mux.HandleFunc("PUT /oauth2/auth/requests/{flow}/{action}", s.decide)
	mux.HandleFunc("POST /oauth2/introspect", s.introspect)
	mux.HandleFunc("GET /oauth2/auth/sessions/consent", s.listSessions)
	mux.HandleFunc("DELETE /oauth2/auth/sessions/consent", s.revokeSessions)
	mux.HandleFunc("GET /clients", s.listClients)
	mux.HandleFunc("POST /clients", s.createClient)
	mux.HandleFunc("DELETE /clients/{id}", s.deleteClient)

	s.Server = httptest.NewServer(mux)

	return s
}

// AddLogin registers a pending login.
func (s *Server) AddLogin(r hydra.LoginRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logins[r.Challenge] = r
}

// AddConsent registers a pending consent.
func (s *Server) AddConsent(r hydra.ConsentRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.consents[r.Challenge] = r
}

// AddLogout registers a pending logout.
func (s *Server) AddLogout(challenge string, r hydra.LogoutRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logouts[challenge] = r
}

// AddToken makes token known to introspection.
func (s *Server) AddToken(token string, i hydra.Introspection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token] = i
}

// AddSession records a consent granted by subject.
func (s *Server) AddSession(subject string, c hydra.PreviousConsent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[subject] = append(s.sessions[subject], c)
}

// AddClient registers an OAuth2 client.
func (s *Server) AddClient(c hydra.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clients[c.ClientID] = c
}

// Decisions returns the accepts and rejects received so far.
func (s *Server) Decisions() []Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.decisions)
}

// Revoked returns the "subject/client" pairs of the revoked consent sessions.
func (s *Server) Revoked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.revoked)
}

// Client returns a registered client.
func (s *Server) Client(id string) (hydra.Client, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[id]

	return c, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]any{"error": "Not Found", "status_code": http.StatusNotFound})
}

func (s *Server) lookup(flow, challenge string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		v  any
		ok bool
	)

	switch flow {
	case "login":
		v, ok = s.logins[challenge]
	case "consent":
		v, ok = s.consents[challenge]
	case "logout":
		v, ok = s.logouts[challenge]
	}

	return v, ok
}

func (s *Server) getRequest(w http.ResponseWriter, r *http.Request) {
	flow := r.PathValue("flow")

	v, ok := s.lookup(flow, r.URL.Query().Get(flow+"_challenge"))
	if !ok {
		notFound(w)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

func (s *Server) decide(w http.ResponseWriter, r *http.Request) {
	flow, action := r.PathValue("flow"), r.PathValue("action")
	challenge := r.URL.Query().Get(flow + "_challenge")

	if _, ok := s.lookup(flow, challenge); !ok {
		notFound(w)
		return
	}

	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	s.decisions = append(s.decisions, Decision{Flow: flow, Action: action, Challenge: challenge, Body: body})
	s.mu.Unlock()

	if flow == "logout" && action == "reject" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, hydra.Completed{RedirectTo: RedirectBase + flow + "/" + action + "?challenge=" + challenge})
}

func (s *Server) introspect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	i, ok := s.tokens[r.PostForm.Get("token")]
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusOK, hydra.Introspection{})
		return
	}

	granted := strings.Fields(i.Scope)
	for _, required := range strings.Fields(r.PostForm.Get("scope")) {
		if !slices.Contains(granted, required) {
			writeJSON(w, http.StatusOK, hydra.Introspection{})
			return
		}
	}

	writeJSON(w, http.StatusOK, i)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := slices.Clone(s.sessions[r.URL.Query().Get("subject")])
	s.mu.Unlock()

	if out == nil {
		out = []hydra.PreviousConsent{}
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) revokeSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	subject, client := q.Get("subject"), q.Get("client")

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[subject] = slices.DeleteFunc(s.sessions[subject], func(c hydra.PreviousConsent) bool {
		return client == "" || c.ConsentRequest.Client.ClientID == client
	})
	s.revoked = append(s.revoked, subject+"/"+client)

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listClients(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]hydra.Client, 0, len(s.clients))

	for _, c := range s.clients {
		out = append(out, c)
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b hydra.Client) int { return strings.Compare(a.ClientID, b.ClientID) })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createClient(w http.ResponseWriter, r *http.Request) {
	var c hydra.Client
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if c.ClientID == "" {
		c.ClientID = strings.ToLower(strings.ReplaceAll(c.ClientName, " ", "-"))
	}

	s.AddClient(c)
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) deleteClient(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := r.PathValue("id")
	if _, ok := s.clients[id]; !ok {
		notFound(w)
		return
	}

	delete(s.clients, id)
	w.WriteHeader(http.StatusNoContent)
}
