package records

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/social-security/patient-office/internal/auth"
	"github.com/social-security/patient-office/internal/shared/guard"
)

func testUser(t *testing.T, username string) *auth.User {
	t.Helper()
	u, err := auth.NewDemoDirectory().FindByUsername(context.Background(), username)
	if err != nil {
		t.Fatalf("unknown demo user %s", username)
	}
	return u
}

func serve(t *testing.T, user *auth.User, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewHandler(newTestRepo(t), zerolog.Nop()).Routes()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req = req.WithContext(guard.WithUser(req.Context(), user))
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	return out
}

func TestReadRoutes(t *testing.T) {
	agent := testUser(t, "agent1")

	tests := []struct {
		path   string
		status int
	}{
		{"/", http.StatusOK},
		{"/patients", http.StatusOK},
		{"/patients?search=dupont", http.StatusOK},
		{"/patients/p1", http.StatusOK},
		{"/patients/p99", http.StatusNotFound},
		{"/patients/p1/consultations", http.StatusOK},
		{"/doctors", http.StatusOK},
		{"/doctors?specialty=SPECIALIST", http.StatusOK},
		{"/doctors?specialty=SURGEON", http.StatusBadRequest},
		{"/doctors/available?patient_id=p1&referral=CARDIOLOGY", http.StatusOK},
		{"/doctors/d3", http.StatusOK},
		{"/consultations", http.StatusOK},
		{"/consultations?status=PENDING", http.StatusOK},
		{"/consultations?status=PAID", http.StatusBadRequest},
		{"/consultations/c1", http.StatusOK},
		{"/prescriptions", http.StatusOK},
		{"/prescriptions/rx1", http.StatusOK},
		{"/prescriptions/rx99", http.StatusNotFound},
		{"/medications", http.StatusOK},
		{"/me", http.StatusOK},
		{"/no/such/page", http.StatusSeeOther},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := serve(t, agent, http.MethodGet, tt.path, "")
			if rr.Code != tt.status {
				t.Errorf("Expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestUnknownPathRedirectsToDashboard(t *testing.T) {
	rr := serve(t, testUser(t, "admin"), http.MethodGet, "/nowhere", "")
	if loc := rr.Header().Get("Location"); loc != "/" {
		t.Errorf("Expected redirect to /, got '%s'", loc)
	}
}

func TestListPatientsView(t *testing.T) {
	rr := serve(t, testUser(t, "admin"), http.MethodGet, "/patients?search=roux", "")
	body := decodeBody(t, rr)

	if body["total"] != float64(1) {
		t.Fatalf("Expected 1 result, got %v", body["total"])
	}
	p := body["data"].([]any)[0].(map[string]any)
	if p["primary_doctor_name"] != "Non assigné" {
		t.Errorf("Expected 'Non assigné', got %v", p["primary_doctor_name"])
	}
	if p["birth_date_display"] != "08/07/2015" {
		t.Errorf("Expected '08/07/2015', got %v", p["birth_date_display"])
	}
	if p["first_name"] != "Léa" {
		t.Errorf("Expected flattened person fields, got %v", p)
	}
}

func TestMeIncludesDoctorRecord(t *testing.T) {
	body := decodeBody(t, serve(t, testUser(t, "doctor2"), http.MethodGet, "/me", ""))

	doctor, ok := body["doctor"].(map[string]any)
	if !ok {
		t.Fatalf("Expected doctor record, got %v", body)
	}
	if doctor["display_name"] != "Dr. Pierre Lefebvre" {
		t.Errorf("Expected 'Dr. Pierre Lefebvre', got %v", doctor["display_name"])
	}
	if doctor["specialist_type_label"] != "Cardiologie" {
		t.Errorf("Expected 'Cardiologie', got %v", doctor["specialist_type_label"])
	}
}

func TestFormRoleGates(t *testing.T) {
	patient := `{"first_name":"Nina","last_name":"Blanc","date_of_birth":"1999-09-09","social_security_number":"2 99 09 75 111 222 33"}`
	doctor := `{"first_name":"Paul","last_name":"Renaud","date_of_birth":"1970-02-02","license_number":"1","specialty":"GENERAL"}`
	consultation := `{"patient_id":"p1","doctor_id":"d1","date":"2024-05-02"}`
	reimbursement := `{"status":"APPROVED","amount":25}`
	prescription := `{"consultation_id":"c2","medications":[{"medication_id":"m3"}]}`

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		allowed  []string
		rejected []string
	}{
		{"create patient", http.MethodPost, "/patients", patient, []string{"admin", "doctor1", "agent1"}, nil},
		{"create doctor", http.MethodPost, "/doctors", doctor, []string{"admin"}, []string{"doctor1", "agent1"}},
		{"update doctor", http.MethodPut, "/doctors/d1", doctor, []string{"admin"}, []string{"doctor1", "agent1"}},
		{"create consultation", http.MethodPost, "/consultations", consultation, []string{"admin", "doctor1"}, []string{"agent1"}},
		{"update consultation", http.MethodPut, "/consultations/c2", consultation, []string{"admin", "doctor2"}, []string{"agent1"}},
		{"decide reimbursement", http.MethodPost, "/consultations/c2/reimbursement", reimbursement, []string{"admin", "agent1"}, []string{"doctor1"}},
		{"create prescription", http.MethodPost, "/prescriptions", prescription, []string{"admin", "doctor1"}, []string{"agent1"}},
		{"update prescription", http.MethodPut, "/prescriptions/rx2", prescription, []string{"doctor1"}, []string{"agent1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, name := range tt.allowed {
				rr := serve(t, testUser(t, name), tt.method, tt.path, tt.body)
				if rr.Code != http.StatusAccepted {
					t.Errorf("%s: expected 202, got %d: %s", name, rr.Code, rr.Body.String())
					continue
				}
				if decodeBody(t, rr)["persisted"] != false {
					t.Errorf("%s: drafts must report persisted=false", name)
				}
			}
			for _, name := range tt.rejected {
				rr := serve(t, testUser(t, name), tt.method, tt.path, tt.body)
				if rr.Code != http.StatusForbidden {
					t.Errorf("%s: expected 403, got %d", name, rr.Code)
				}
			}
		})
	}
}

func TestFormErrors(t *testing.T) {
	admin := testUser(t, "admin")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"malformed body", http.MethodPost, "/patients", "{", http.StatusBadRequest},
		{"validation failure", http.MethodPost, "/patients", `{}`, http.StatusUnprocessableEntity},
		{"terminal reimbursement", http.MethodPost, "/consultations/c1/reimbursement", `{"status":"COMPLETED","amount":10}`, http.StatusConflict},
		{"unknown doctor", http.MethodPut, "/doctors/d99", `{}`, http.StatusNotFound},
		{"invalid id", http.MethodGet, "/patients/bad%20id", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(t, admin, tt.method, tt.path, tt.body)
			if rr.Code != tt.status {
				t.Errorf("Expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestFormsWithoutUserAreUnauthorized(t *testing.T) {
	rr := serve(t, nil, http.MethodPost, "/patients", `{}`)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rr.Code)
	}
}
