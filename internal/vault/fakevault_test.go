package vault

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakeVault serves the sys key and rekey routes with a minimal rekey state
// machine.
type fakeVault struct {
	t     *testing.T
	token string

	mu        sync.Mutex
	requests  []*recordedRequest
	term      int
	rekey     *rekeyState
	nonceSeed int
}

type recordedRequest struct {
	Method  string
	Path    string
	Header  http.Header
	Body    map[string]interface{}
	RawBody string
}

type rekeyState struct {
	nonce     string
	shares    int
	threshold int
	submitted []string
}

const requiredUnsealShares = 2

func newFakeVault(t *testing.T, token string) (*fakeVault, *httptest.Server) {
	t.Helper()
	fv := &fakeVault{t: t, token: token, term: 1}
	server := httptest.NewServer(fv)
	t.Cleanup(server.Close)
	return fv, server
}

func (fv *fakeVault) Requests() []*recordedRequest {
	fv.mu.Lock()
	defer fv.mu.Unlock()
	return append([]*recordedRequest(nil), fv.requests...)
}

func (fv *fakeVault) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fv.mu.Lock()
	defer fv.mu.Unlock()

	rec := &recordedRequest{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone()}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		fv.t.Errorf("reading request body: %v", err)
	}
	rec.RawBody = string(raw)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &rec.Body)
	}
	fv.requests = append(fv.requests, rec)

	if fv.token != "" && r.Header.Get("X-Vault-Token") != fv.token {
		writeErrors(w, http.StatusForbidden, "permission denied")
		return
	}

	switch r.Method + " " + r.URL.Path {
	case "GET /v1/sys/key-status":
		writeJSON(w, map[string]interface{}{"term": fv.term, "install_time": "2026-10-01T12:00:00Z"})
	case "PUT /v1/sys/rotate":
		fv.term++
		w.WriteHeader(http.StatusNoContent)
	case "GET /v1/sys/rekey/init":
		writeJSON(w, fv.status())
	case "PUT /v1/sys/rekey/init":
		shares, _ := rec.Body["secret_shares"].(float64)
		threshold, _ := rec.Body["secret_threshold"].(float64)
		if threshold > shares || shares < 1 {
			writeErrors(w, http.StatusBadRequest, "invalid seal configuration: threshold cannot be larger than shares")
			return
		}
		if fv.rekey != nil {
			writeErrors(w, http.StatusBadRequest, "rekey already in progress")
			return
		}
		fv.nonceSeed++
		fv.rekey = &rekeyState{
			nonce:     fmt.Sprintf("nonce-%d", fv.nonceSeed),
			shares:    int(shares),
			threshold: int(threshold),
		}
		writeJSON(w, fv.status())
	case "DELETE /v1/sys/rekey/init":
		fv.rekey = nil
		w.WriteHeader(http.StatusNoContent)
	case "PUT /v1/sys/rekey/update":
		fv.update(w, rec.Body)
	default:
		writeErrors(w, http.StatusNotFound, "unsupported path")
	}
}

func (fv *fakeVault) status() map[string]interface{} {
	if fv.rekey == nil {
		return map[string]interface{}{"started": false, "t": 0, "n": 0, "progress": 0, "required": requiredUnsealShares, "nonce": ""}
	}
	return map[string]interface{}{
		"started":  true,
		"nonce":    fv.rekey.nonce,
		"t":        fv.rekey.threshold,
		"n":        fv.rekey.shares,
		"progress": len(fv.rekey.submitted),
		"required": requiredUnsealShares,
	}
}

func (fv *fakeVault) update(w http.ResponseWriter, body map[string]interface{}) {
	if fv.rekey == nil {
		writeErrors(w, http.StatusBadRequest, "no rekey in progress")
		return
	}
	if body["nonce"] != fv.rekey.nonce {
		writeErrors(w, http.StatusBadRequest, "incorrect nonce")
		return
	}
	key, _ := body["key"].(string)
	fv.rekey.submitted = append(fv.rekey.submitted, key)

	if len(fv.rekey.submitted) < requiredUnsealShares {
		writeJSON(w, map[string]interface{}{
			"nonce":    fv.rekey.nonce,
			"complete": false,
			"progress": len(fv.rekey.submitted),
			"required": requiredUnsealShares,
		})
		return
	}

	newKeys := make([]string, fv.rekey.shares)
	for i := range newKeys {
		newKeys[i] = fmt.Sprintf("new-share-%d", i+1)
	}
	nonce := fv.rekey.nonce
	fv.rekey = nil
	writeJSON(w, map[string]interface{}{
		"nonce":    nonce,
		"complete": true,
		"keys":     newKeys,
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrors(w http.ResponseWriter, status int, errs ...string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"errors": errs})
}
