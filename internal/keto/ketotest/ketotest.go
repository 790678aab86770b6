// Package ketotest runs an in-memory keto ACP engine over HTTP for tests.
package ketotest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/datacentricdesign/profile-api/internal/keto"
)

// Server is an in-memory keto. Roles are evaluated as subjects: a member of a
// role is granted what the role is granted.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	roles    map[string][]string
	policies map[string]keto.Policy
	checks   int
	down     bool
}

// NewServer starts a server. Close it when done.
func NewServer() *Server {
	s := &Server{
		roles:    map[string][]string{},
		policies: map[string]keto.Policy{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("PUT /engines/acp/ory/exact/roles", s.putRole)
	mux.HandleFunc("GET /engines/acp/ory/exact/roles", s.listRoles)
	mux.HandleFunc("GET /engines/acp/ory/exact/roles/{id}", s.getRole)
	mux.HandleFunc("DELETE /engines/acp/ory/exact/roles/{id}", s.deleteRole)
	mux.HandleFunc("PUT /engines/acp/ory/exact/roles/{id}/members", s.addMembers)
	mux.HandleFunc("DELETE /engines/acp/ory/exact/roles/{id}/members/{member}", s.removeMember)
	mux.HandleFunc("PUT /engines/acp/ory/regex/policies", s.putPolicy)
	mux.HandleFunc("DELETE /engines/acp/ory/regex/policies/{id}", s.deletePolicy)
	mux.HandleFunc("POST /engines/acp/ory/{flavor}/allowed", s.allowed)

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		down := s.down
		s.mu.Unlock()

		if down {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		mux.ServeHTTP(w, r)
	}))

	return s
}

// Down makes every call answer 500 until called with false.
func (s *Server) Down(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.down = down
}

// SetRole stores a role.
func (s *Server) SetRole(id string, members ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.roles[id] = slices.Clone(members)
}

// Role returns the members of a role.
func (s *Server) Role(id string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.roles[id]

	return slices.Clone(m), ok
}

// SetPolicy stores a policy.
func (s *Server) SetPolicy(p keto.Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.policies[p.ID] = p
}

// Policy returns a policy.
func (s *Server) Policy(id string) (keto.Policy, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.policies[id]

	return p, ok
}

// Policies returns every policy ordered by id.
func (s *Server) Policies() []keto.Policy {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]keto.Policy, 0, len(s.policies))
	for _, p := range s.policies {
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// Checks returns the number of access requests evaluated.
func (s *Server) Checks() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.checks
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"code": http.StatusNotFound}})
}

func (s *Server) putRole(w http.ResponseWriter, r *http.Request) {
	var role keto.Role
	if err := json.NewDecoder(r.Body).Decode(&role); err != nil || role.ID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.SetRole(role.ID, role.Members...)
	writeJSON(w, http.StatusOK, role)
}

func (s *Server) listRoles(w http.ResponseWriter, r *http.Request) {
	member := r.URL.Query().Get("member")

	s.mu.Lock()
	out := []keto.Role{}

	for id, members := range s.roles {
		if member == "" || slices.Contains(members, member) {
			out = append(out, keto.Role{ID: id, Members: slices.Clone(members)})
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getRole(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	members, ok := s.Role(id)
	if !ok {
		notFound(w)
		return
	}

	writeJSON(w, http.StatusOK, keto.Role{ID: id, Members: members})
}

func (s *Server) deleteRole(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := r.PathValue("id")
	if _, ok := s.roles[id]; !ok {
		notFound(w)
		return
	}

	delete(s.roles, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addMembers(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Members []string `json:"members"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := r.PathValue("id")
	members := s.roles[id]

	for _, m := range body.Members {
		if !slices.Contains(members, m) {
			members = append(members, m)
		}
	}

	s.roles[id] = members
	writeJSON(w, http.StatusOK, keto.Role{ID: id, Members: members})
}

func (s *Server) removeMember(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := r.PathValue("id")

	members, ok := s.roles[id]
	if !ok {
		notFound(w)
		return
	}

	s.roles[id] = slices.DeleteFunc(members, func(m string) bool { return m == r.PathValue("member") })
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) putPolicy(w http.ResponseWriter, r *http.Request) {
	var p keto.Policy
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.ID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.SetPolicy(p)
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deletePolicy(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := r.PathValue("id")
	if _, ok := s.policies[id]; !ok {
		notFound(w)
		return
	}

	delete(s.policies, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) allowed(w http.ResponseWriter, r *http.Request) {
	var req keto.AccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if s.evaluate(req) {
		writeJSON(w, http.StatusOK, map[string]bool{"allowed": true})
		return
	}

	writeJSON(w, http.StatusForbidden, map[string]bool{"allowed": false})
}

// evaluate applies the policies to req, an explicit deny wins over any allow.
func (s *Server) evaluate(req keto.AccessRequest) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checks++

	subjects := []string{req.Subject}

	for id, members := range s.roles {
		if slices.Contains(members, req.Subject) {
			subjects = append(subjects, id)
		}
	}

	allowed := false

	for _, p := range s.policies {
		if !matchAny(p.Subjects, subjects...) || !matchAny(p.Resources, req.Resource) ||
			!matchAny(p.Actions, req.Action) {
			continue
		}

		if p.Effect == "deny" {
			return false
		}

		allowed = true
	}

	return allowed
}

// matchAny reports whether one of patterns matches one of values. Patterns may
// embed regular expressions between angle brackets, e.g. dcd:persons:<.*>.
func matchAny(patterns []string, values ...string) bool {
	for _, p := range patterns {
		for _, v := range values {
			if match(p, v) {
				return true
			}
		}
	}

	return false
}

func match(pattern, value string) bool {
	if !strings.Contains(pattern, "<") {
		return pattern == value
	}

	var b strings.Builder

	b.WriteString("^")

	for rest := pattern; rest != ""; {
		open := strings.Index(rest, "<")
		if open < 0 {
			b.WriteString(regexp.QuoteMeta(rest))
			break
		}

		end := strings.Index(rest[open:], ">")
		if end < 0 {
			b.WriteString(regexp.QuoteMeta(rest))
			break
		}

		b.WriteString(regexp.QuoteMeta(rest[:open]))
		b.WriteString("(?:" + rest[open+1:open+end] + ")")
		rest = rest[open+end+1:]
	}

	b.WriteString("$")

	re, err := regexp.Compile(b.String())

	return err == nil && re.MatchString(value)
}
