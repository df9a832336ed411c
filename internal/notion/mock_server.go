package notion

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// issueNumberPropID is the property identifier the mock assigns to the
// "Issue Number" property on every page.
const issueNumberPropID = "IssNum"

// MockServer provides a fake Notion API for testing.
type MockServer struct {
	*httptest.Server
	mu       sync.RWMutex
	pages    []*mockPage // query order
	byID     map[string]*mockPage
	nextID   int
	pageSize int // cap applied to query page_size, to force pagination in tests

	createdCount int
	updatedCount int

	nextErrStatus int
	nextErrBody   string

	nextWriteErrStatus int
	nextWriteErrBody   string
}

type mockPage struct {
	ID          string
	IssueNumber int
	Props       Properties
}

// NewMockServer creates a mock Notion API server.
func NewMockServer() *MockServer {
	m := &MockServer{
		byID:     make(map[string]*mockPage),
		pageSize: 100,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/v1/databases/", func(w http.ResponseWriter, r *http.Request) {
		if m.failNext(w) {
			return
		}
		if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/query") {
			m.handleQuery(w, r)
			return
		}
		http.Error(w, "not found", http.StatusNotFound)
	})

	mux.HandleFunc("/v1/pages", func(w http.ResponseWriter, r *http.Request) {
		if m.failNext(w) {
			return
		}
		if r.Method == http.MethodPost {
			m.handleCreatePage(w, r)
			return
		}
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	mux.HandleFunc("/v1/pages/", func(w http.ResponseWriter, r *http.Request) {
		if m.failNext(w) {
			return
		}
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/v1/pages/"), "/")
		switch {
		// /v1/pages/{id}/properties/{propertyID}
		case len(parts) == 3 && parts[1] == "properties" && r.Method == http.MethodGet:
			m.handlePageProperty(w, parts[0], parts[2])
		// /v1/pages/{id}
		case len(parts) == 1 && r.Method == http.MethodPatch:
			m.handleUpdatePage(w, r, parts[0])
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	})

	m.Server = httptest.NewServer(mux)
	return m
}

// AddRow seeds a database row holding the given issue number and returns its
// page id.
func (m *MockServer) AddRow(issueNumber int) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	page := &mockPage{
		ID:          fmt.Sprintf("page-%d", m.nextID),
		IssueNumber: issueNumber,
	}
	m.pages = append(m.pages, page)
	m.byID[page.ID] = page
	return page.ID
}

// SetPageSize caps the query page size so tests can force cursor pagination.
func (m *MockServer) SetPageSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageSize = n
}

// SetNextError makes the next request fail with the given status and body.
func (m *MockServer) SetNextError(status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextErrStatus = status
	m.nextErrBody = body
}

// SetNextWriteError makes the next page create or update fail, leaving reads
// untouched.
func (m *MockServer) SetNextWriteError(status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextWriteErrStatus = status
	m.nextWriteErrBody = body
}

// CreatedCount reports how many pages were created.
func (m *MockServer) CreatedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.createdCount
}

// UpdatedCount reports how many page updates were applied.
func (m *MockServer) UpdatedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updatedCount
}

// RowCount reports the number of rows in the database.
func (m *MockServer) RowCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pages)
}

// RowProps returns the last written properties for the row holding the given
// issue number, or nil if no such row exists.
func (m *MockServer) RowProps(issueNumber int) Properties {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, page := range m.pages {
		if page.IssueNumber == issueNumber {
			return page.Props
		}
	}
	return nil
}

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

func (m *MockServer) failNextWrite(w http.ResponseWriter) bool {
	m.mu.Lock()
	status, body := m.nextWriteErrStatus, m.nextWriteErrBody
	m.nextWriteErrStatus = 0
	m.nextWriteErrBody = ""
	m.mu.Unlock()

	if status == 0 {
		return false
	}
	http.Error(w, body, status)
	return true
}

func (m *MockServer) handleQuery(w http.ResponseWriter, r *http.Request) {
	var query struct {
		StartCursor string `json:"start_cursor"`
		PageSize    int    `json:"page_size"`
	}
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	size := query.PageSize
	if size <= 0 || size > m.pageSize {
		size = m.pageSize
	}

	start := 0
	if query.StartCursor != "" {
		n, err := strconv.Atoi(query.StartCursor)
		if err != nil {
			http.Error(w, "invalid cursor", http.StatusBadRequest)
			return
		}
		start = n
	}

	end := start + size
	if start > len(m.pages) {
		start = len(m.pages)
	}
	if end > len(m.pages) {
		end = len(m.pages)
	}

	results := make([]Page, 0, end-start)
	for _, page := range m.pages[start:end] {
		results = append(results, Page{
			ID: page.ID,
			Properties: map[string]PropertyRef{
				"Issue Number": {ID: issueNumberPropID, Type: "number"},
			},
		})
	}

	resp := map[string]interface{}{
		"object":      "list",
		"results":     results,
		"has_more":    end < len(m.pages),
		"next_cursor": nil,
	}
	if end < len(m.pages) {
		resp["next_cursor"] = strconv.Itoa(end)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (m *MockServer) handlePageProperty(w http.ResponseWriter, pageID, propertyID string) {
	m.mu.RLock()
	page, ok := m.byID[pageID]
	m.mu.RUnlock()

	if !ok || propertyID != issueNumberPropID {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"object": "property_item",
		"type":   "number",
		"number": page.IssueNumber,
	})
}

func (m *MockServer) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	if m.failNextWrite(w) {
		return
	}

	var payload struct {
		Parent struct {
			DatabaseID string `json:"database_id"`
		} `json:"parent"`
		Properties Properties `json:"properties"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if payload.Parent.DatabaseID == "" {
		http.Error(w, "missing parent database_id", http.StatusBadRequest)
		return
	}

	number, ok := extractNumber(payload.Properties, "Issue Number")
	if !ok {
		http.Error(w, "missing Issue Number property", http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.nextID++
	page := &mockPage{
		ID:          fmt.Sprintf("page-%d", m.nextID),
		IssueNumber: number,
		Props:       payload.Properties,
	}
	m.pages = append(m.pages, page)
	m.byID[page.ID] = page
	m.createdCount++
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"id": page.ID})
}

func (m *MockServer) handleUpdatePage(w http.ResponseWriter, r *http.Request, pageID string) {
	if m.failNextWrite(w) {
		return
	}

	var payload struct {
		Properties Properties `json:"properties"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	page, ok := m.byID[pageID]
	if ok {
		page.Props = payload.Properties
		m.updatedCount++
	}
	m.mu.Unlock()

	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"id": pageID})
}

// extractNumber pulls a number property value out of a decoded payload.
func extractNumber(props Properties, name string) (int, bool) {
	raw, ok := props[name]
	if !ok {
		return 0, false
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return 0, false
	}
	n, ok := obj["number"].(float64)
	if !ok {
		return 0, false
	}
	return int(n), true
}
