package cache

import (
	"bytes"
	"io"
	"net/http"
	"testing"
	"time"
)

func jsonResponse(header http.Header, body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

func TestResponseToEntry(t *testing.T) {
	lastMod := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	resp := jsonResponse(http.Header{
		"Expires":       []string{time.Now().Add(time.Hour).Format(http.TimeFormat)},
		"Last-Modified": []string{lastMod.Format(http.TimeFormat)},
		"Etag":          []string{`"abc123"`},
	}, `{"success": true}`)

	entry, err := ResponseToEntry(resp, 0)
	if err != nil {
		t.Fatalf("ResponseToEntry() error = %v", err)
	}

	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"success": true}` {
		t.Errorf("body not restored: %q", body)
	}
	if entry.ETag != `"abc123"` {
		t.Errorf("ETag = %q", entry.ETag)
	}
	if !entry.LastModified.Equal(lastMod) {
		t.Errorf("LastModified = %v, want %v", entry.LastModified, lastMod)
	}
	if ttl := entry.TTL(); ttl < 59*time.Minute {
		t.Errorf("TTL() = %v, want about 1h", ttl)
	}
}

func TestResponseToEntry_Nil(t *testing.T) {
	if _, err := ResponseToEntry(nil, 0); err == nil {
		t.Error("expected error for nil response")
	}
}

func TestParseExpires(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		header   http.Header
		fallback time.Duration
		want     time.Duration
	}{
		{"missing uses fallback", http.Header{}, time.Minute, time.Minute},
		{"zero fallback uses default", http.Header{}, 0, DefaultTTL},
		{"invalid uses fallback", http.Header{"Expires": {"soon"}}, time.Minute, time.Minute},
		{"past expires immediately", http.Header{"Expires": {now.Add(-time.Hour).Format(http.TimeFormat)}}, time.Minute, 0},
		{"no-store expires immediately", http.Header{"Cache-Control": {"no-store"}}, time.Minute, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseExpires(tt.header, now, tt.fallback).Sub(now)
			if got != tt.want {
				t.Errorf("parseExpires() = now+%v, want now+%v", got, tt.want)
			}
		})
	}
}

func TestEntryToResponse(t *testing.T) {
	entry := &CacheEntry{
		Data:       []byte(`{"success": true}`),
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": {"application/json"}},
	}

	resp := EntryToResponse(entry)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Cache") != "HIT" {
		t.Error("expected X-Cache: HIT")
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != string(entry.Data) {
		t.Errorf("body = %q", body)
	}
}

func TestConditionalHeaders(t *testing.T) {
	lastMod := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name       string
		entry      *CacheEntry
		wantCond   bool
		wantHeader string
		wantValue  string
	}{
		{"nil entry", nil, false, "", ""},
		{"no validators", &CacheEntry{}, false, "", ""},
		{"etag", &CacheEntry{ETag: `"v1"`, LastModified: lastMod}, true, "If-None-Match", `"v1"`},
		{"last modified", &CacheEntry{LastModified: lastMod}, true, "If-Modified-Since", lastMod.Format(http.TimeFormat)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldMakeConditionalRequest(tt.entry); got != tt.wantCond {
				t.Errorf("ShouldMakeConditionalRequest() = %v, want %v", got, tt.wantCond)
			}

			req, _ := http.NewRequest(http.MethodGet, "http://backend/inventory/load-more/", nil)
			AddConditionalHeaders(req, tt.entry)
			if tt.wantHeader != "" && req.Header.Get(tt.wantHeader) != tt.wantValue {
				t.Errorf("%s = %q, want %q", tt.wantHeader, req.Header.Get(tt.wantHeader), tt.wantValue)
			}
			if tt.wantHeader == "" && (req.Header.Get("If-None-Match") != "" || req.Header.Get("If-Modified-Since") != "") {
				t.Error("unexpected conditional header")
			}
		})
	}
}
