package ultimaker

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeDevice speaks the printer's API surface for tests, including the
// digest challenge in front of protected endpoints. Credential validation is
// shallow on purpose: a request authorizes when its Authorization header
// names the currently issued credential id and the operator approved it.
type fakeDevice struct {
	mu sync.Mutex

	name    string
	guid    string
	status  PrinterStatus
	jobJSON string

	autoApprove bool // operator approves the moment a pair is issued
	denied      bool // operator pressed deny; auth/check answers unauthorized

	verifyAlwaysOK  bool // auth/verify accepts any credential
	statusAlways401 bool // printer/status challenges every request
	statusErrCode   int  // non-zero: printer/status answers this code
	statusErrBody   string
	delay           time.Duration

	issueCount int
	curID      string
	curKey     string
	approved   bool

	statusCalls int
	nameCalls   int
	guidCalls   int

	gotApplication string
	gotUser        string
	gotContentType string
	gotUserAgent   string
	lastMessage    map[string]string
	lastBeep       map[string]float64
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		name:    "U2 Workshop",
		guid:    "9d2c54ba-9e06-4b67-a979-2c1dd6b160ef",
		status:  StatusIdle,
		jobJSON: sampleJobJSON,
	}
}

const sampleJobJSON = `{
	"time_elapsed": 125,
	"time_total": 600,
	"datetime_started": "2018-10-10T00:46:40.776Z",
	"datetime_finished": "",
	"datetime_cleaned": "",
	"source": "WEB_API",
	"source_user": "anna",
	"source_application": "cura",
	"name": "bracket_v2",
	"uuid": "c8ad6aeb-45d9-4cd5-91f5-1e0f27304d84",
	"reprint_original_uuid": "",
	"state": "printing",
	"progress": 0.208,
	"pause_source": "",
	"result": ""
}`

func (d *fakeDevice) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(d)
	t.Cleanup(srv.Close)
	return srv
}

func (d *fakeDevice) approveCurrent() {
	d.mu.Lock()
	d.approved = true
	d.mu.Unlock()
}

func (d *fakeDevice) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.delay > 0 {
		d.mu.Unlock()
		time.Sleep(d.delay)
		d.mu.Lock()
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/v1/auth/request":
		_ = r.ParseForm()
		d.gotApplication = r.PostForm.Get("application")
		d.gotUser = r.PostForm.Get("user")
		d.gotContentType = r.Header.Get("Content-Type")
		d.issueCount++
		d.curID = fmt.Sprintf("dev-id-%d", d.issueCount)
		d.curKey = fmt.Sprintf("dev-key-%d", d.issueCount)
		d.approved = d.autoApprove
		writeJSON(w, Credentials{ID: d.curID, Key: d.curKey})

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/v1/auth/check/"):
		id := strings.TrimPrefix(r.URL.Path, "/api/v1/auth/check/")
		message := "unknown"
		switch {
		case d.denied:
			message = "unauthorized"
		case id == d.curID && d.approved:
			message = "authorized"
		}
		writeJSON(w, map[string]string{"message": message})

	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/auth/verify":
		if d.verifyAlwaysOK {
			if r.Header.Get("Authorization") == "" {
				d.challenge(w)
				return
			}
		} else if !d.authValid(r) {
			d.challenge(w)
			return
		}
		writeJSON(w, map[string]string{"message": "ok"})

	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/printer/status":
		if d.statusAlways401 {
			d.challenge(w)
			return
		}
		if !d.authValid(r) {
			d.challenge(w)
			return
		}
		d.statusCalls++
		if d.statusErrCode != 0 {
			http.Error(w, d.statusErrBody, d.statusErrCode)
			return
		}
		writeJSON(w, d.status)

	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/print_job":
		if !d.authValid(r) {
			d.challenge(w)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(d.jobJSON))

	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/print_job/state":
		if !d.authValid(r) {
			d.challenge(w)
			return
		}
		writeJSON(w, "printing")

	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/print_job/time_elapsed":
		if !d.authValid(r) {
			d.challenge(w)
			return
		}
		writeJSON(w, 125)

	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/print_job/progress":
		if !d.authValid(r) {
			d.challenge(w)
			return
		}
		writeJSON(w, 0.208)

	case r.Method == http.MethodPut && r.URL.Path == "/api/v1/system/display_message":
		if !d.authValid(r) {
			d.challenge(w)
			return
		}
		d.lastMessage = map[string]string{}
		_ = json.NewDecoder(r.Body).Decode(&d.lastMessage)
		writeJSON(w, "ok")

	case r.Method == http.MethodPut && r.URL.Path == "/api/v1/beep":
		if !d.authValid(r) {
			d.challenge(w)
			return
		}
		d.lastBeep = map[string]float64{}
		_ = json.NewDecoder(r.Body).Decode(&d.lastBeep)
		writeJSON(w, "ok")

	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/system/name":
		d.nameCalls++
		d.gotUserAgent = r.Header.Get("User-Agent")
		writeJSON(w, d.name)

	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/system/guid":
		d.guidCalls++
		writeJSON(w, d.guid)

	default:
		http.NotFound(w, r)
	}
}

func (d *fakeDevice) authValid(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return auth != "" && d.curID != "" && d.approved &&
		strings.Contains(auth, `username="`+d.curID+`"`)
}

func (d *fakeDevice) challenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Digest realm="printer", nonce="f8a97b34c1", qop="auth"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// newTestPrinter points a connection at the fake device's server.
func newTestPrinter(t *testing.T, srv *httptest.Server, timeout time.Duration) *Printer {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse server port: %v", err)
	}
	return NewPrinter(PrinterConfig{
		Address:  u.Hostname(),
		Port:     port,
		Identity: testIdentity(),
		Timeout:  timeout,
	})
}

// attachCamera points the connection's camera base at a test server.
func attachCamera(t *testing.T, p *Printer, srv *httptest.Server) {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse camera url: %v", err)
	}
	p.client.camera = u
}
