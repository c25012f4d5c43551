// Package testutil provides testing utilities for the DevERP client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Backend paths served by MockBackend.
const (
	ListingPath  = "/inventory/load-more/"
	RequestsPath = "/inventory/api/requests/"
)

// MockResponse defines a canned response for a mock endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockRequest is a workflow request record held by the mock backend.
type MockRequest struct {
	ID            int                 `json:"id"`
	RequesterName string              `json:"requester_name"`
	Department    string              `json:"department,omitempty"`
	ItemName      string              `json:"item_name"`
	Quantity      int                 `json:"quantity"`
	Unit          string              `json:"unit"`
	CreatedAt     string              `json:"created_at"`
	Status        string              `json:"status"`
	Priority      string              `json:"priority"`
	Reason        string              `json:"reason,omitempty"`
	History       []map[string]string `json:"history"`
	CanApprove    bool                `json:"can_approve"`
	CanFulfill    bool                `json:"can_fulfill"`
	CanDelete     bool                `json:"can_delete"`
}

// MockBackend is a configurable stand-in for the DevERP Django backend.
//
// The listing endpoint paginates Products (plain JSON objects) and applies
// the same exact-match filters the backend does. The workflow endpoint keeps
// requests in memory and applies approve/reject/fulfill/delete.
type MockBackend struct {
	server *httptest.Server

	mu        sync.RWMutex
	products  []map[string]any
	requests  map[int]*MockRequest
	overrides map[string]func(w http.ResponseWriter, r *http.Request)
	gate      chan struct{}

	requestCount   int
	listingCount   int
	conditional    int
	lastQuery      map[string]string
	lastHeader     http.Header
	lastActionBody map[string]string
}

// NewMockBackend starts a mock backend.
func NewMockBackend() *MockBackend {
	m := &MockBackend{
		requests:  make(map[int]*MockRequest),
		overrides: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	m.server = httptest.NewServer(http.HandlerFunc(m.serve))
	return m
}

// URL returns the mock server URL.
func (m *MockBackend) URL() string {
	return m.server.URL
}

// Close shuts down the mock server and releases any held requests.
func (m *MockBackend) Close() {
	m.Release()
	m.server.Close()
}

// Reset clears tracking counters.
func (m *MockBackend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.listingCount = 0
	m.conditional = 0
	m.lastQuery = nil
	m.lastHeader = nil
	m.lastActionBody = nil
}

// SetProducts replaces the catalogue served by the listing endpoint.
func (m *MockBackend) SetProducts(products []map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = products
}

// AddRequest stores a workflow request.
func (m *MockBackend) AddRequest(req MockRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := req
	m.requests[req.ID] = &r
}

// Request returns a copy of a stored workflow request.
func (m *MockBackend) Request(id int) (MockRequest, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	if !ok {
		return MockRequest{}, false
	}
	return *r, true
}

// SetHandler overrides the handler for an exact path.
func (m *MockBackend) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[path] = handler
}

// SetResponse overrides an exact path with a canned response.
func (m *MockBackend) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// Hold makes listing requests block until Release is called. It lets tests
// observe a fetch while it is in flight.
func (m *MockBackend) Hold() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate == nil {
		m.gate = make(chan struct{})
	}
}

// Release unblocks listing requests held by Hold.
func (m *MockBackend) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate != nil {
		close(m.gate)
		m.gate = nil
	}
}

// RequestCount returns the number of requests received.
func (m *MockBackend) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// ListingCount returns the number of listing requests received.
func (m *MockBackend) ListingCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listingCount
}

// ConditionalCount returns the number of requests carrying validators.
func (m *MockBackend) ConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conditional
}

// LastQuery returns the query parameters of the most recent request.
func (m *MockBackend) LastQuery() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.lastQuery))
	for k, v := range m.lastQuery {
		out[k] = v
	}
	return out
}

// LastHeader returns the headers of the most recent request.
func (m *MockBackend) LastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader.Clone()
}

// LastActionBody returns the JSON body of the most recent workflow mutation.
func (m *MockBackend) LastActionBody() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastActionBody
}

func (m *MockBackend) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requestCount++
	m.lastHeader = r.Header.Clone()
	m.lastQuery = make(map[string]string)
	for k := range r.URL.Query() {
		m.lastQuery[k] = r.URL.Query().Get(k)
	}
	if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
		m.conditional++
	}
	if r.URL.Path == ListingPath {
		m.listingCount++
	}
	handler, overridden := m.overrides[r.URL.Path]
	gate := m.gate
	m.mu.Unlock()

	if r.URL.Path == ListingPath && gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	if overridden {
		handler(w, r)
		return
	}

	switch {
	case r.URL.Path == ListingPath:
		m.serveListing(w, r)
	case strings.HasPrefix(r.URL.Path, RequestsPath):
		m.serveRequests(w, r)
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "not found"})
	}
}

var filterKeys = []string{"category", "gender", "collection", "subcategory", "producttype"}

func (m *MockBackend) serveListing(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(q.Get("per_page"))
	if err != nil || perPage < 1 {
		perPage = 50
	}

	m.mu.RLock()
	filtered := make([]map[string]any, 0, len(m.products))
	for _, p := range m.products {
		if matchesQuery(p, q.Get("search"), q.Get("status"), q) {
			filtered = append(filtered, p)
		}
	}
	m.mu.RUnlock()

	total := len(filtered)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	resp := map[string]any{
		"success":      true,
		"products":     filtered[start:end],
		"has_more":     end < total,
		"total_count":  total,
		"current_page": page,
	}
	if end < total {
		resp["next_page"] = page + 1
	}
	writeJSON(w, http.StatusOK, resp)
}

func matchesQuery(p map[string]any, search, status string, q map[string][]string) bool {
	for _, key := range filterKeys {
		want := ""
		if vals := q[key]; len(vals) > 0 {
			want = vals[0]
		}
		if want == "" || want == "all" {
			continue
		}
		got, _ := p[key].(string)
		if !strings.EqualFold(got, want) {
			return false
		}
	}

	jobs, _ := p["in_stock_jobs"].([]any)
	switch status {
	case "instock":
		if len(jobs) == 0 {
			return false
		}
	case "notinstock":
		if len(jobs) > 0 {
			return false
		}
	}

	if search != "" {
		design, _ := p["design_no"].(string)
		if !strings.Contains(strings.ToLower(design), strings.ToLower(search)) {
			return false
		}
	}
	return true
}

func (m *MockBackend) serveRequests(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, RequestsPath), "/")

	if rest == "" {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"success": false, "message": "method not allowed"})
			return
		}
		m.createRequest(w, r)
		return
	}

	id, err := strconv.Atoi(rest)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "request not found"})
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "request not found"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "request": req})
	case http.MethodDelete:
		delete(m.requests, id)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Request deleted"})
	case http.MethodPatch:
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid body"})
			return
		}
		m.lastActionBody = body

		next, msg := transition(req.Status, body["action"])
		if next == "" {
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": msg})
			return
		}
		req.Status = next
		req.History = append(req.History, map[string]string{
			"action":  next,
			"user":    "mock",
			"comment": body["comment"],
		})
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": msg})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"success": false, "message": "method not allowed"})
	}
}

func transition(status, action string) (string, string) {
	switch {
	case action == "approve" && status == "pending":
		return "approved", "Request approved"
	case action == "reject" && status == "pending":
		return "rejected", "Request rejected"
	case action == "fulfill" && status == "approved":
		return "fulfilled", "Request fulfilled"
	default:
		return "", fmt.Sprintf("Cannot %s a %s request", action, status)
	}
}

func (m *MockBackend) createRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ItemID   string `json:"item_id"`
		Quantity int    `json:"quantity"`
		Reason   string `json:"reason"`
		Priority string `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid body"})
		return
	}

	m.mu.Lock()
	id := len(m.requests) + 1
	for {
		if _, taken := m.requests[id]; !taken {
			break
		}
		id++
	}
	m.requests[id] = &MockRequest{
		ID:       id,
		ItemName: body.ItemID,
		Quantity: body.Quantity,
		Status:   "pending",
		Priority: body.Priority,
		Reason:   body.Reason,
	}
	m.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Request submitted successfully", "id": id})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Products builds n catalogue entries. Every third product is out of stock
// and categories rotate through rings, necklaces, earrings.
func Products(n int) []map[string]any {
	categories := []string{"Rings", "Necklaces", "Earrings"}
	out := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		jobs := []any{map[string]any{"job_no": fmt.Sprintf("J%05d", i)}}
		status := "In Stock"
		pcs := 1 + i%4
		if i%3 == 2 {
			jobs = []any{}
			status = "Not In Stock"
			pcs = 0
		}
		out = append(out, map[string]any{
			"design_no":     fmt.Sprintf("D%04d", i),
			"category":      categories[i%len(categories)],
			"gender":        "Women",
			"collection":    "Classic",
			"subcategory":   "Solitaire",
			"producttype":   "Fine",
			"status":        status,
			"pcs":           pcs,
			"in_stock_jobs": jobs,
			"memo_jobs":     []any{},
		})
	}
	return out
}

// NewListingResponse builds a listing page body.
func NewListingResponse(products []map[string]any, hasMore bool, nextPage int) MockResponse {
	body := map[string]any{
		"success":  true,
		"products": products,
		"has_more": hasMore,
	}
	if nextPage > 0 {
		body["next_page"] = nextPage
	}
	data, _ := json.Marshal(body)
	return MockResponse{StatusCode: http.StatusOK, Body: string(data)}
}

// NewUnsuccessfulResponse creates a 200 OK response whose envelope reports failure.
func NewUnsuccessfulResponse(message string) MockResponse {
	data, _ := json.Marshal(map[string]any{"success": false, "error": message, "message": message})
	return MockResponse{StatusCode: http.StatusOK, Body: string(data)}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"success": false, "error": "Internal server error"}`,
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"success": false, "message": "Too many requests"}`,
		Headers: map[string]string{
			"Retry-After":           strconv.Itoa(retryAfter),
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     strconv.Itoa(retryAfter),
		},
	}
}

// NewMalformedResponse creates a 200 OK response that is not JSON.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `<html>Server Error</html>`,
		Headers:    map[string]string{"Content-Type": "text/html"},
	}
}

// NewConditionalHandler answers 304 when If-None-Match equals etag.
func NewConditionalHandler(etag string, data string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("If-None-Match") == etag {
			w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(data))
	}
}
