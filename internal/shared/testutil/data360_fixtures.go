package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Obs builds one Data360 observation. Extra dimension pairs are given as
// key, value, key, value...
func Obs(year string, value any, dims ...string) map[string]any {
	rec := map[string]any{
		"TIME_PERIOD":  year,
		"OBS_VALUE":    value,
		"UNIT_MEASURE": "USD",
		"REF_AREA":     "MYS",
	}
	for i := 0; i+1 < len(dims); i += 2 {
		rec[dims[i]] = dims[i+1]
	}
	return rec
}

// Payload wraps records in the Data360 {"count": n, "value": [...]} envelope.
func Payload(records ...map[string]any) []byte {
	if records == nil {
		records = []map[string]any{}
	}
	body, err := json.Marshal(map[string]any{
		"count": len(records),
		"value": records,
	})
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal payload: %v", err))
	}
	return body
}

// FakeData360 serves canned payloads keyed by INDICATOR. Indicators with no
// payload answer 500.
type FakeData360 struct {
	*httptest.Server

	mu       sync.Mutex
	payloads map[string][]byte
	requests []map[string]string
}

// NewFakeData360 starts a fake upstream that is closed with the test.
func NewFakeData360(t *testing.T) *FakeData360 {
	t.Helper()
	f := &FakeData360{payloads: make(map[string][]byte)}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

// Set registers the body returned for an indicator.
func (f *FakeData360) Set(indicator string, body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads[indicator] = body
}

// Requests returns the query parameters of every request served so far.
func (f *FakeData360) Requests() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]string, len(f.requests))
	copy(out, f.requests)
	return out
}

func (f *FakeData360) serve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := make(map[string]string, len(q))
	for k := range q {
		params[k] = q.Get(k)
	}

	f.mu.Lock()
	f.requests = append(f.requests, params)
	body, ok := f.payloads[q.Get("INDICATOR")]
	f.mu.Unlock()

	if !ok {
		http.Error(w, `{"message":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}
