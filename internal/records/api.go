package records

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/social-security/patient-office/internal/auth"
	"github.com/social-security/patient-office/internal/shared/errors"
	"github.com/social-security/patient-office/internal/shared/guard"
	"github.com/social-security/patient-office/internal/shared/types"
)

const maxBodyBytes = 1 << 20

// Handler provides HTTP handlers for the office records
type Handler struct {
	repo   *Repository
	logger zerolog.Logger
}

// NewHandler creates a new records handler
func NewHandler(repo *Repository, logger zerolog.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// Routes registers the records routes. They expect the guard to have
// placed the session user in the request context.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Dashboard)
	r.Get("/me", h.Me)
	r.Get("/medications", h.ListMedications)

	r.Route("/patients", func(r chi.Router) {
		r.Get("/", h.ListPatients)
		r.With(guard.RequirePermission("patient", auth.PermPatientWrite)).Post("/", h.CreatePatient)

		r.Route("/{patientID}", func(r chi.Router) {
			r.Get("/", h.GetPatient)
			r.Get("/consultations", h.PatientConsultations)
		})
	})

	r.Route("/doctors", func(r chi.Router) {
		r.Get("/", h.ListDoctors)
		r.Get("/available", h.AvailableDoctors)
		r.With(guard.RequirePermission("doctor", auth.PermDoctorWrite)).Post("/", h.CreateDoctor)

		r.Route("/{doctorID}", func(r chi.Router) {
			r.Get("/", h.GetDoctor)
			r.With(guard.RequirePermission("doctor", auth.PermDoctorWrite)).Put("/", h.UpdateDoctor)
		})
	})

	r.Route("/consultations", func(r chi.Router) {
		r.Get("/", h.ListConsultations)
		r.With(guard.RequirePermission("consultation", auth.PermConsultationWrite)).Post("/", h.CreateConsultation)

		r.Route("/{consultationID}", func(r chi.Router) {
			r.Get("/", h.GetConsultation)
			r.With(guard.RequirePermission("consultation", auth.PermConsultationWrite)).Put("/", h.UpdateConsultation)
			r.With(guard.RequirePermission("reimbursement", auth.PermReimbursementDecide)).Post("/reimbursement", h.DecideReimbursement)
		})
	})

	r.Route("/prescriptions", func(r chi.Router) {
		r.Get("/", h.ListPrescriptions)
		r.With(guard.RequirePermission("prescription", auth.PermPrescriptionWrite)).Post("/", h.CreatePrescription)

		r.Route("/{prescriptionID}", func(r chi.Router) {
			r.Get("/", h.GetPrescription)
			r.With(guard.RequirePermission("prescription", auth.PermPrescriptionWrite)).Put("/", h.UpdatePrescription)
		})
	})

	// Unknown pages fall back to the dashboard.
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})

	return r
}

// --- Views ---

// PatientView is a patient with its display fields.
type PatientView struct {
	Patient
	MaskedSSN         string `json:"masked_ssn"`
	PrimaryDoctorName string `json:"primary_doctor_name"`
	BirthDate         string `json:"birth_date_display"`
}

// DoctorView is a doctor with its display labels.
type DoctorView struct {
	Doctor
	FormattedName       string `json:"display_name"`
	SpecialtyLabel      string `json:"specialty_label"`
	SpecialistTypeLabel string `json:"specialist_type_label,omitempty"`
}

// ConsultationView is a consultation with names and status label.
type ConsultationView struct {
	Consultation
	PatientName string `json:"patient_name"`
	DoctorName  string `json:"doctor_name"`
	StatusLabel string `json:"reimbursement_status_label"`
}

func (h *Handler) patientView(r *http.Request, p Patient) PatientView {
	return PatientView{
		Patient:           p,
		MaskedSSN:         p.SocialSecurityNumber.Masked(),
		PrimaryDoctorName: h.repo.PrimaryDoctorName(r.Context(), p),
		BirthDate:         p.DateOfBirth.FrenchFormat(),
	}
}

func doctorView(d Doctor) DoctorView {
	v := DoctorView{
		Doctor:         d,
		FormattedName:  d.DisplayName(),
		SpecialtyLabel: d.Specialty.Label(),
	}
	if d.SpecialistType != nil {
		v.SpecialistTypeLabel = d.SpecialistType.Label()
	}
	return v
}

func (h *Handler) consultationView(r *http.Request, c Consultation) ConsultationView {
	v := ConsultationView{Consultation: c, StatusLabel: c.ReimbursementStatus.Label()}
	if p, err := h.repo.GetPatient(r.Context(), c.PatientID); err == nil {
		v.PatientName = p.FullName()
	}
	if d, err := h.repo.GetDoctor(r.Context(), c.DoctorID); err == nil {
		v.DoctorName = d.DisplayName()
	}
	return v
}

// --- Dashboard & profile ---

// Dashboard returns the office summary
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.repo.Dashboard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Me returns the session user and, for doctors, their doctor record
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user := guard.UserFrom(r.Context())
	if user == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	resp := map[string]any{
		"user":       user,
		"role_label": user.Role.Label(),
	}
	if user.DoctorID != nil {
		if d, err := h.repo.GetDoctor(r.Context(), *user.DoctorID); err == nil {
			resp["doctor"] = doctorView(*d)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Patient Handlers ---

// ListPatients lists patients matching ?search=
func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.repo.ListPatients(r.Context(), PatientFilter{
		Search: r.URL.Query().Get("search"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]PatientView, 0, len(patients))
	for _, p := range patients {
		views = append(views, h.patientView(r, p))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  views,
		"total": len(views),
	})
}

// GetPatient gets a patient by ID
func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "patientID")
	if !ok {
		return
	}
	p, err := h.repo.GetPatient(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.patientView(r, *p))
}

// PatientConsultations lists the consultations of a patient
func (h *Handler) PatientConsultations(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "patientID")
	if !ok {
		return
	}
	consultations, err := h.repo.PatientConsultations(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeConsultations(w, r, consultations)
}

// CreatePatient validates a new patient
func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var req PatientRequest
	if !decode(w, r, &req) {
		return
	}
	draft, err := h.repo.DraftPatient(r.Context(), req)
	h.writeDraft(w, r, "patient", draft, err)
}

// --- Doctor Handlers ---

// ListDoctors lists doctors filtered by ?specialty=, ?specialist_type= and ?search=
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	filter := DoctorFilter{Search: r.URL.Query().Get("search")}

	if s := r.URL.Query().Get("specialty"); s != "" {
		specialty, err := ParseSpecialty(s)
		if err != nil {
			writeError(w, errors.BadRequest(err.Error()))
			return
		}
		filter.Specialty = &specialty
	}
	if s := r.URL.Query().Get("specialist_type"); s != "" {
		st, err := ParseSpecialistType(s)
		if err != nil {
			writeError(w, errors.BadRequest(err.Error()))
			return
		}
		filter.SpecialistType = &st
	}

	doctors, err := h.repo.ListDoctors(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeDoctors(w, doctors)
}

// AvailableDoctors lists the doctors selectable for ?patient_id= and
// repeated ?referral= specialist types
func (h *Handler) AvailableDoctors(w http.ResponseWriter, r *http.Request) {
	var patientID types.ID
	if s := r.URL.Query().Get("patient_id"); s != "" {
		id, err := types.ParseID(s)
		if err != nil {
			writeError(w, errors.BadRequest("invalid patient ID"))
			return
		}
		patientID = id
	}

	var referrals []SpecialistType
	for _, s := range r.URL.Query()["referral"] {
		st, err := ParseSpecialistType(s)
		if err != nil {
			writeError(w, errors.BadRequest(err.Error()))
			return
		}
		referrals = append(referrals, st)
	}

	writeDoctors(w, h.repo.AvailableDoctors(r.Context(), patientID, referrals))
}

// GetDoctor gets a doctor by ID
func (h *Handler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "doctorID")
	if !ok {
		return
	}
	d, err := h.repo.GetDoctor(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doctorView(*d))
}

// CreateDoctor validates a new doctor
func (h *Handler) CreateDoctor(w http.ResponseWriter, r *http.Request) {
	var req DoctorRequest
	if !decode(w, r, &req) {
		return
	}
	draft, err := h.repo.DraftDoctor(r.Context(), "", req)
	h.writeDraft(w, r, "doctor", draft, err)
}

// UpdateDoctor validates changes to a doctor
func (h *Handler) UpdateDoctor(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "doctorID")
	if !ok {
		return
	}
	var req DoctorRequest
	if !decode(w, r, &req) {
		return
	}
	draft, err := h.repo.DraftDoctor(r.Context(), id, req)
	h.writeDraft(w, r, "doctor", draft, err)
}

// --- Consultation Handlers ---

// ListConsultations lists consultations filtered by ?patient_id=, ?doctor_id= and ?status=
func (h *Handler) ListConsultations(w http.ResponseWriter, r *http.Request) {
	var filter ConsultationFilter
	q := r.URL.Query()

	if s := q.Get("patient_id"); s != "" {
		id, err := types.ParseID(s)
		if err != nil {
			writeError(w, errors.BadRequest("invalid patient ID"))
			return
		}
		filter.PatientID = &id
	}
	if s := q.Get("doctor_id"); s != "" {
		id, err := types.ParseID(s)
		if err != nil {
			writeError(w, errors.BadRequest("invalid doctor ID"))
			return
		}
		filter.DoctorID = &id
	}
	if s := q.Get("status"); s != "" {
		status, err := ParseReimbursementStatus(s)
		if err != nil {
			writeError(w, errors.BadRequest(err.Error()))
			return
		}
		filter.Status = &status
	}

	consultations, err := h.repo.ListConsultations(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeConsultations(w, r, consultations)
}

// GetConsultation gets a consultation by ID
func (h *Handler) GetConsultation(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "consultationID")
	if !ok {
		return
	}
	c, err := h.repo.GetConsultation(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.consultationView(r, *c))
}

// CreateConsultation validates a new consultation
func (h *Handler) CreateConsultation(w http.ResponseWriter, r *http.Request) {
	var req ConsultationRequest
	if !decode(w, r, &req) {
		return
	}
	draft, err := h.repo.DraftConsultation(r.Context(), "", req)
	h.writeDraft(w, r, "consultation", draft, err)
}

// UpdateConsultation validates changes to a consultation
func (h *Handler) UpdateConsultation(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "consultationID")
	if !ok {
		return
	}
	var req ConsultationRequest
	if !decode(w, r, &req) {
		return
	}
	draft, err := h.repo.DraftConsultation(r.Context(), id, req)
	h.writeDraft(w, r, "consultation", draft, err)
}

// DecideReimbursement validates a reimbursement decision
func (h *Handler) DecideReimbursement(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "consultationID")
	if !ok {
		return
	}
	var req ReimbursementRequest
	if !decode(w, r, &req) {
		return
	}
	draft, err := h.repo.DraftReimbursement(r.Context(), id, req)
	h.writeDraft(w, r, "reimbursement", draft, err)
}

// --- Prescription Handlers ---

// ListPrescriptions lists prescriptions filtered by ?patient_id= and ?doctor_id=
func (h *Handler) ListPrescriptions(w http.ResponseWriter, r *http.Request) {
	var filter PrescriptionFilter
	if s := r.URL.Query().Get("patient_id"); s != "" {
		id, err := types.ParseID(s)
		if err != nil {
			writeError(w, errors.BadRequest("invalid patient ID"))
			return
		}
		filter.PatientID = &id
	}
	if s := r.URL.Query().Get("doctor_id"); s != "" {
		id, err := types.ParseID(s)
		if err != nil {
			writeError(w, errors.BadRequest("invalid doctor ID"))
			return
		}
		filter.DoctorID = &id
	}

	prescriptions, err := h.repo.ListPrescriptions(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  prescriptions,
		"total": len(prescriptions),
	})
}

// GetPrescription returns the joined prescription detail
func (h *Handler) GetPrescription(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "prescriptionID")
	if !ok {
		return
	}
	detail, err := h.repo.PrescriptionDetail(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// CreatePrescription validates a new prescription
func (h *Handler) CreatePrescription(w http.ResponseWriter, r *http.Request) {
	var req PrescriptionRequest
	if !decode(w, r, &req) {
		return
	}
	draft, err := h.repo.DraftPrescription(r.Context(), "", req)
	h.writeDraft(w, r, "prescription", draft, err)
}

// UpdatePrescription validates changes to a prescription
func (h *Handler) UpdatePrescription(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "prescriptionID")
	if !ok {
		return
	}
	var req PrescriptionRequest
	if !decode(w, r, &req) {
		return
	}
	draft, err := h.repo.DraftPrescription(r.Context(), id, req)
	h.writeDraft(w, r, "prescription", draft, err)
}

// --- Medication Handlers ---

// ListMedications lists the medication catalog
func (h *Handler) ListMedications(w http.ResponseWriter, r *http.Request) {
	meds, err := h.repo.ListMedications(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  meds,
		"total": len(meds),
	})
}

// --- Helpers ---

func (h *Handler) writeConsultations(w http.ResponseWriter, r *http.Request, consultations []Consultation) {
	views := make([]ConsultationView, 0, len(consultations))
	for _, c := range consultations {
		views = append(views, h.consultationView(r, c))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  views,
		"total": len(views),
	})
}

func writeDoctors(w http.ResponseWriter, doctors []Doctor) {
	views := make([]DoctorView, 0, len(doctors))
	for _, d := range doctors {
		views = append(views, doctorView(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  views,
		"total": len(views),
	})
}

// writeDraft answers a form submission. Drafts are accepted, not stored.
func (h *Handler) writeDraft(w http.ResponseWriter, r *http.Request, form string, draft any, err error) {
	user := guard.UserFrom(r.Context())
	logger := h.logger.With().Str("form", form).Logger()
	if user != nil {
		logger = logger.With().Str("username", user.Username).Logger()
	}

	if err != nil {
		logger.Debug().Err(err).Msg("form rejected")
		writeError(w, err)
		return
	}
	logger.Info().Msg("form validated")
	writeJSON(w, http.StatusAccepted, map[string]any{
		"data":      draft,
		"persisted": false,
	})
}

func urlID(w http.ResponseWriter, r *http.Request, param string) (types.ID, bool) {
	id, err := types.ParseID(chi.URLParam(r, param))
	if err != nil {
		writeError(w, errors.BadRequest("invalid "+strings.TrimSuffix(param, "ID")+" ID"))
		return "", false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	errors.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	errors.Write(w, err)
}
