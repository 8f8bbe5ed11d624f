package cli

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// backend records submitted visits and can be switched into failing.
type backend struct {
	mu       sync.Mutex
	payloads []map[string]any
	photos   []string
	fail     bool
	srv      *httptest.Server
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()

		switch {
		case r.URL.Path == "/api/v1/questionnaires/current":
			if _, err := io.WriteString(w, questionnaireDoc); err != nil {
				t.Errorf("write: %v", err)
			}
		case r.URL.Path == "/api/v1/visits" && r.Method == http.MethodPost:
			if b.fail {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
			}
			var payload map[string]any
			if err := json.Unmarshal([]byte(r.FormValue("visit")), &payload); err != nil {
				t.Errorf("decode visit: %v", err)
			}
			b.payloads = append(b.payloads, payload)
			for _, fh := range r.MultipartForm.File["photos[]"] {
				b.photos = append(b.photos, fh.Filename)
			}
			w.WriteHeader(http.StatusCreated)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backend) setFail(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail = fail
}

const questionnaireDoc = `{"data":{"id":"8","type":"questionnaire","attributes":{
  "name":"Short","initialQuestion":1,"finalQuestion":2,
  "questions":[
    {"id":1,"text":"Start","typeField":"splash","next":2,"options":[]},
    {"id":2,"text":"Any container?","typeField":"list","options":[
      {"id":1,"name":"No","value":"false","next":-1}
    ]}
  ]}}}`

// visitEnv runs commands against one database, one fixture and one backend.
type visitEnv struct {
	t       *testing.T
	db      string
	backend *backend
}

func newVisitEnv(t *testing.T) *visitEnv {
	t.Helper()
	home := isolate(t)
	b := newBackend(t)
	t.Setenv("DV_USER_ID", "4")
	t.Setenv("DV_SERVER_URL", b.srv.URL)
	t.Setenv("DV_API_KEY", "dv_testkey")
	t.Setenv("DV_PHOTO_DIR", filepath.Join(home, "photos"))
	return &visitEnv{t: t, db: filepath.Join(home, "visits.db"), backend: b}
}

func (e *visitEnv) run(args ...string) (string, error) {
	e.t.Helper()
	return executeCommand(append(args, "--db", e.db, "--questionnaire", fixturePath())...)
}

func (e *visitEnv) must(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	if err != nil {
		e.t.Fatalf("dv %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func expectContains(t *testing.T, out string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

// walkNoWater answers one dry container in the house and ends the visit.
func (e *visitEnv) walkNoWater() {
	e.t.Helper()
	expectContains(e.t, e.must("visit", "answer"), "Question 2")
	expectContains(e.t, e.must("visit", "answer", "1"), "Question 3")
	expectContains(e.t, e.must("visit", "answer", "1"), "Question 4")
	expectContains(e.t, e.must("visit", "answer", "2"), "Question 8")
	expectContains(e.t, e.must("visit", "answer", "1=2"), "Question 9", "Yes, in the house", "[3] No")
	expectContains(e.t, e.must("visit", "answer", "3"), "Questionnaire complete")
}

func TestVisitOfflineThenSync(t *testing.T) {
	e := newVisitEnv(t)

	out := e.must("visit", "start", "100", "--permission", "--host", "Owner")
	expectContains(t, out, "Visit 4-100 started.", "Question 1 (splash)")

	e.walkNoWater()

	out = e.must("visit", "show")
	expectContains(t, out, "Visit:       4-100", "Question:    end", "Location:    house", "○ GREEN", "Host:        Owner")

	expectContains(t, e.must("visit", "options"), "Questionnaire complete")
	expectContains(t, e.must("visit", "notes", "nobody", "home"), "Notes saved.")

	out = e.must("visit", "finish", "--offline")
	expectContains(t, out, "Visit 4-100 queued", "1 visit(s) waiting for sync")

	if _, err := e.run("visit", "show"); err == nil || !strings.Contains(err.Error(), "no visit in progress") {
		t.Errorf("show after finish: got %v", err)
	}

	expectContains(t, e.must("visit", "history"), "No visits submitted.")
	expectContains(t, e.must("sync"), "Sent 1 visit(s), 0 remaining.")
	expectContains(t, e.must("sync"), "Nothing to sync.")

	if len(e.backend.payloads) != 1 {
		t.Fatalf("backend got %d visits, want 1", len(e.backend.payloads))
	}
	p := e.backend.payloads[0]
	if p["houseId"] != "100" || p["userAccountId"] != "4" || p["notes"] != "nobody home" || p["visitPermission"] != true {
		t.Errorf("payload = %v", p)
	}
	insp := p["inspections"].([]any)[0].(map[string]any)
	if insp["quantity_founded"] != float64(3) {
		t.Errorf("quantity_founded = %v, want 3", insp["quantity_founded"])
	}
	if insp["breeding_site_type_id"] != float64(1) {
		t.Errorf("breeding_site_type_id = %v, want 1", insp["breeding_site_type_id"])
	}

	out = e.must("visit", "history")
	expectContains(t, out, "4-100", "GREEN", "Total: 1 visits")
}

func TestVisitOnlineWithPhoto(t *testing.T) {
	e := newVisitEnv(t)
	photo := filepath.Join(t.TempDir(), "Tire.JPG")
	if err := os.WriteFile(photo, []byte("jpeg"), 0o644); err != nil {
		t.Fatalf("write photo: %v", err)
	}

	e.must("visit", "start", "101")
	e.must("visit", "answer")
	e.must("visit", "answer", "1")
	e.must("visit", "answer", "1")
	expectContains(t, e.must("visit", "answer", "1"), "Question 5")
	expectContains(t, e.must("visit", "answer", "1", "3"), "Question 6")
	expectContains(t, e.must("visit", "answer", "2", "3=bottle cap"), "Question 7")
	expectContains(t, e.must("visit", "answer", "1"), "dv visit photo", "Question 8")
	expectContains(t, e.must("visit", "photo", photo), "Photo attached:")
	e.must("visit", "answer", "1=0")
	expectContains(t, e.must("visit", "answer", "1"), "Inspection #2 started.", "Question 3")
	e.must("visit", "answer", "2")
	e.must("visit", "answer", "2")
	e.must("visit", "answer", "1=1")
	e.must("visit", "answer", "3")

	e.backend.setFail(true)
	if _, err := e.run("visit", "finish"); err == nil || !strings.Contains(err.Error(), "The visit was kept") {
		t.Fatalf("finish with backend down: got %v", err)
	}
	expectContains(t, e.must("visit", "show"), "Visit:       4-101", "Photos:      1")

	e.backend.setFail(false)
	expectContains(t, e.must("visit", "finish"), "Visit 4-101 submitted (● RED).")

	if len(e.backend.payloads) != 1 {
		t.Fatalf("backend got %d visits, want 1", len(e.backend.payloads))
	}
	if len(e.backend.photos) != 1 || !strings.HasSuffix(e.backend.photos[0], ".jpg") {
		t.Errorf("photos = %v", e.backend.photos)
	}

	inspections := e.backend.payloads[0]["inspections"].([]any)
	if len(inspections) != 2 {
		t.Fatalf("got %d inspections, want 2", len(inspections))
	}
	first := inspections[0].(map[string]any)
	if first["statusColor"] != "RED" || first["other_protection"] != "bottle cap" || first["photo_id"] != e.backend.photos[0] {
		t.Errorf("first inspection = %v", first)
	}
	second := inspections[1].(map[string]any)
	if second["statusColor"] != "GREEN" || second["quantity_founded"] != float64(2) {
		t.Errorf("second inspection = %v", second)
	}

	expectContains(t, e.must("visit", "history"), "4-101", "RED")
}

func TestVisitAnswerEarlierQuestion(t *testing.T) {
	e := newVisitEnv(t)
	e.must("visit", "start", "100")
	e.must("visit", "answer")
	e.must("visit", "answer", "1")
	e.must("visit", "answer", "1")

	expectContains(t, e.must("visit", "answer", "2", "--question", "3"), "Question 4")

	out := e.must("visit", "show", "--format", "json")
	var shown struct {
		Preview struct {
			Inspections []map[string]any `json:"inspections"`
		} `json:"preview"`
	}
	if err := json.Unmarshal([]byte(out), &shown); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if got := shown.Preview.Inspections[0]["breeding_site_type_id"]; got != float64(2) {
		t.Errorf("breeding_site_type_id = %v, want 2", got)
	}
}

func TestVisitErrors(t *testing.T) {
	e := newVisitEnv(t)

	if _, err := e.run("visit", "answer", "1"); err == nil || !strings.Contains(err.Error(), "no visit in progress") {
		t.Errorf("answer without visit: got %v", err)
	}

	e.must("visit", "start", "100")
	if _, err := e.run("visit", "start", "101"); err == nil || !strings.Contains(err.Error(), "another visit is in progress") {
		t.Errorf("second start: got %v", err)
	}
	if _, err := e.run("visit", "answer", "abc"); err == nil || !strings.Contains(err.Error(), "invalid option") {
		t.Errorf("bad option: got %v", err)
	}
	e.must("visit", "answer")
	if _, err := e.run("visit", "answer", "7"); err == nil || !strings.Contains(err.Error(), "unknown option") {
		t.Errorf("unknown option: got %v", err)
	}
	if _, err := e.run("visit", "photo", filepath.Join(t.TempDir(), "missing.jpg")); err == nil {
		t.Error("missing photo: expected error")
	}

	expectContains(t, e.must("visit", "discard"), "Visit 4-100 discarded.")
	expectContains(t, e.must("visit", "start", "101"), "Visit 4-101 started.")
}

func TestVisitStartNeedsUser(t *testing.T) {
	e := newVisitEnv(t)
	t.Setenv("DV_USER_ID", "")

	if _, err := e.run("visit", "start", "100"); err == nil || !strings.Contains(err.Error(), "no user configured") {
		t.Errorf("got %v", err)
	}
	expectContains(t, e.must("visit", "start", "100", "--user", "9"), "Visit 9-100 started.")
}

func TestVisitStartNewHouse(t *testing.T) {
	e := newVisitEnv(t)
	e.must("visit", "start", "H-77", "--new-house", "--address", "Calle 5", "--lat=-25.3", "--lng=-57.6")
	e.must("visit", "answer")
	e.must("visit", "answer", "2")
	e.must("visit", "answer", "2")
	e.must("visit", "answer", "2")
	e.must("visit", "answer", "1")
	e.must("visit", "answer", "3")
	e.must("visit", "finish")

	p := e.backend.payloads[0]
	house, ok := p["house"].(map[string]any)
	if !ok {
		t.Fatalf("house = %v", p["house"])
	}
	if house["reference_code"] != "H-77" || house["address"] != "Calle 5" || house["latitude"] != -25.3 {
		t.Errorf("house = %v", house)
	}
	if _, ok := p["houseId"]; ok {
		t.Errorf("houseId = %v, want absent", p["houseId"])
	}
}

func TestQuestionnaireCommands(t *testing.T) {
	e := newVisitEnv(t)

	expectContains(t, e.must("questionnaire", "validate", fixturePath()), "Questionnaire 3 is valid (9 questions).")
	expectContains(t, e.must("questionnaire", "show"), "Questionnaire 3: Breeding site inspection", "9. [list]", "3) No -> end")

	broken := filepath.Join(t.TempDir(), "broken.yaml")
	def := "id: \"1\"\ninitialQuestion: 1\nquestions:\n  - id: 1\n    typeField: splash\n    next: 4\n"
	if err := os.WriteFile(broken, []byte(def), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := e.run("questionnaire", "validate", broken); err == nil || !strings.Contains(err.Error(), "next references missing question 4") {
		t.Errorf("validate broken: got %v", err)
	}
}

func TestQuestionnaireFetchAndCache(t *testing.T) {
	e := newVisitEnv(t)
	saved := filepath.Join(t.TempDir(), "q.json")

	out, err := executeCommand("questionnaire", "fetch", "--save", saved, "--db", e.db)
	if err != nil {
		t.Fatalf("fetch: %v\n%s", err, out)
	}
	expectContains(t, out, "Fetched questionnaire 8 (es, 2 questions).", "Saved to "+saved)

	if _, err := os.Stat(saved); err != nil {
		t.Errorf("saved file: %v", err)
	}

	// no --questionnaire: the cached definition is used
	out, err = executeCommand("visit", "start", "100", "--db", e.db)
	if err != nil {
		t.Fatalf("start: %v\n%s", err, out)
	}
	expectContains(t, out, "Question 1 (splash)")

	out, err = executeCommand("questionnaire", "show", "--db", e.db, "--format", "json")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	expectContains(t, out, `"id": "8"`)
}

func TestVisitStartWithoutQuestionnaire(t *testing.T) {
	e := newVisitEnv(t)
	out, err := executeCommand("visit", "start", "100", "--db", e.db)
	if err == nil || !strings.Contains(err.Error(), "dv questionnaire fetch") {
		t.Errorf("got %v\n%s", err, out)
	}
}

func TestParseSelections(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantIDs []int
		wantErr bool
	}{
		{"none", nil, []int{}, false},
		{"ids", []string{"1", "3"}, []int{1, 3}, false},
		{"with input", []string{"1=4"}, []int{1}, false},
		{"not a number", []string{"x"}, nil, true},
		{"empty id", []string{"=4"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sels, err := parseSelections(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(sels) != len(tt.wantIDs) {
				t.Fatalf("got %d selections, want %d", len(sels), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if sels[i].OptionID != id {
					t.Errorf("selection %d = %d, want %d", i, sels[i].OptionID, id)
				}
			}
		})
	}

	sels, err := parseSelections([]string{"2=bottle cap", "1=true"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sels[0].Text != "bottle cap" || sels[0].Bool != nil {
		t.Errorf("text selection = %+v", sels[0])
	}
	if sels[1].Bool == nil || !*sels[1].Bool {
		t.Errorf("bool selection = %+v", sels[1])
	}
}
