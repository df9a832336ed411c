package gh

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// MockServer provides a fake GitHub API for testing.
type MockServer struct {
	*httptest.Server
	mu            sync.RWMutex
	issues        []*Issue // insertion order, may include pull request entries
	comments      map[int][]Comment
	collaborators []Collaborator

	nextErrStatus int
	nextErrBody   string
}

// NewMockServer creates a mock GitHub API server.
func NewMockServer() *MockServer {
	m := &MockServer{
		comments: make(map[int][]Comment),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/repos/", func(w http.ResponseWriter, r *http.Request) {
		if m.failNext(w) {
			return
		}

		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/repos/"), "/")
		if len(parts) < 3 {
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}

		switch {
		// /repos/{owner}/{repo}/issues
		case parts[2] == "issues" && len(parts) == 3 && r.Method == http.MethodGet:
			m.handleListIssues(w, r)
		// /repos/{owner}/{repo}/issues/{number}/comments
		case parts[2] == "issues" && len(parts) == 5 && parts[4] == "comments" && r.Method == http.MethodGet:
			number, err := strconv.Atoi(parts[3])
			if err != nil {
				http.Error(w, "invalid issue number", http.StatusBadRequest)
				return
			}
			m.handleListComments(w, r, number)
		// /repos/{owner}/{repo}/collaborators
		case parts[2] == "collaborators" && len(parts) == 3 && r.Method == http.MethodGet:
			m.handleListCollaborators(w, r)
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	})

	m.Server = httptest.NewServer(mux)
	return m
}

// AddIssue adds an issue (or pull request entry) to the mock server.
func (m *MockServer) AddIssue(issue *Issue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issues = append(m.issues, issue)
}

// AddComment appends a comment to an issue's thread. Comments are assumed to
// be added in chronological order.
func (m *MockServer) AddComment(number int, comment Comment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments[number] = append(m.comments[number], comment)
}

// AddCollaborator adds a collaborator to the mock repository.
func (m *MockServer) AddCollaborator(c Collaborator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collaborators = append(m.collaborators, c)
}

// SetNextError makes the next request fail with the given status and body.
func (m *MockServer) SetNextError(status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextErrStatus = status
	m.nextErrBody = body
}

// Reset clears all issues, comments, and collaborators.
func (m *MockServer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issues = nil
	m.comments = make(map[int][]Comment)
	m.collaborators = nil
	m.nextErrStatus = 0
	m.nextErrBody = ""
}

// failNext writes the configured one-shot error if one is pending.
func (m *MockServer) failNext(w http.ResponseWriter) bool {
	m.mu.Lock()
	status, body := m.nextErrStatus, m.nextErrBody
	m.nextErrStatus = 0
	m.nextErrBody = ""
	m.mu.Unlock()

	if status == 0 {
		return false
	}
	http.Error(w, body, status)
	return true
}

func (m *MockServer) handleListIssues(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state := r.URL.Query().Get("state")
	var filtered []*Issue
	for _, issue := range m.issues {
		if state != "" && state != "all" && issue.State != state {
			continue
		}
		filtered = append(filtered, issue)
	}

	perPage := queryInt(r, "per_page", 30)
	page := queryInt(r, "page", 1)

	start := (page - 1) * perPage
	end := start + perPage
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	// Emit a Link header with rel="next" when more pages remain, mirroring
	// GitHub's pagination contract.
	if end < len(filtered) {
		next := fmt.Sprintf("%s/repos/owner/repo/issues?state=%s&per_page=%d&page=%d", m.URL, state, perPage, page+1)
		w.Header().Set("Link", fmt.Sprintf(`<%s>; rel="next"`, next))
	}

	pageIssues := filtered[start:end]
	if pageIssues == nil {
		pageIssues = []*Issue{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pageIssues)
}

func (m *MockServer) handleListComments(w http.ResponseWriter, r *http.Request, number int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	comments := append([]Comment(nil), m.comments[number]...)

	if r.URL.Query().Get("direction") == "desc" {
		sort.SliceStable(comments, func(i, j int) bool {
			return comments[i].CreatedAt.After(comments[j].CreatedAt)
		})
	}

	perPage := queryInt(r, "per_page", 30)
	if len(comments) > perPage {
		comments = comments[:perPage]
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(comments)
}

func (m *MockServer) handleListCollaborators(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	collaborators := m.collaborators
	if collaborators == nil {
		collaborators = []Collaborator{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(collaborators)
}

// queryInt reads an integer query parameter with a default.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
