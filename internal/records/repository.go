package records

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	apperrors "github.com/social-security/patient-office/internal/shared/errors"
	"github.com/social-security/patient-office/internal/shared/types"
)

// Repository is the read-only store over a validated fixture set.
type Repository struct {
	patients      []Patient
	doctors       []Doctor
	consultations []Consultation
	prescriptions []Prescription
	medications   []Medication

	patientIdx      map[types.ID]int
	doctorIdx       map[types.ID]int
	consultationIdx map[types.ID]int
	prescriptionIdx map[types.ID]int
	medicationIdx   map[types.ID]int
}

// NewRepository indexes f and checks every invariant and reference.
func NewRepository(f Fixtures) (*Repository, error) {
	r := &Repository{
		patients:      f.Patients,
		doctors:       f.Doctors,
		consultations: f.Consultations,
		prescriptions: f.Prescriptions,
		medications:   f.Medications,
	}

	var errs []error
	r.patientIdx = index(r.patients, func(p Patient) types.ID { return p.ID }, "patient", &errs)
	r.doctorIdx = index(r.doctors, func(d Doctor) types.ID { return d.ID }, "doctor", &errs)
	r.consultationIdx = index(r.consultations, func(c Consultation) types.ID { return c.ID }, "consultation", &errs)
	r.prescriptionIdx = index(r.prescriptions, func(p Prescription) types.ID { return p.ID }, "prescription", &errs)
	r.medicationIdx = index(r.medications, func(m Medication) types.ID { return m.ID }, "medication", &errs)

	for _, d := range r.doctors {
		if err := d.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("doctor %s: %w", d.ID, err))
		}
		if d.PatientID != nil {
			if _, ok := r.patientIdx[*d.PatientID]; !ok {
				errs = append(errs, fmt.Errorf("doctor %s: unknown patient %s", d.ID, *d.PatientID))
			}
		}
	}

	for _, c := range r.consultations {
		if err := c.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("consultation %s: %w", c.ID, err))
		}
		if _, ok := r.patientIdx[c.PatientID]; !ok {
			errs = append(errs, fmt.Errorf("consultation %s: unknown patient %s", c.ID, c.PatientID))
		}
		if _, ok := r.doctorIdx[c.DoctorID]; !ok {
			errs = append(errs, fmt.Errorf("consultation %s: unknown doctor %s", c.ID, c.DoctorID))
		}
		for _, id := range c.PrescriptionIDs {
			i, ok := r.prescriptionIdx[id]
			if !ok {
				errs = append(errs, fmt.Errorf("consultation %s: unknown prescription %s", c.ID, id))
				continue
			}
			if r.prescriptions[i].ConsultationID != c.ID {
				errs = append(errs, fmt.Errorf("consultation %s: prescription %s belongs to %s", c.ID, id, r.prescriptions[i].ConsultationID))
			}
		}
		for _, ref := range c.SpecialistReferrals {
			if ref.SpecialistID == nil {
				continue
			}
			i, ok := r.doctorIdx[*ref.SpecialistID]
			if !ok {
				errs = append(errs, fmt.Errorf("referral %s: unknown specialist %s", ref.ID, *ref.SpecialistID))
				continue
			}
			if st := r.doctors[i].SpecialistType; st == nil || *st != ref.SpecialistType {
				errs = append(errs, fmt.Errorf("referral %s: doctor %s is not a %s specialist", ref.ID, *ref.SpecialistID, ref.SpecialistType))
			}
		}
	}

	for _, p := range r.prescriptions {
		i, ok := r.consultationIdx[p.ConsultationID]
		if !ok {
			errs = append(errs, fmt.Errorf("prescription %s: unknown consultation %s", p.ID, p.ConsultationID))
			continue
		}
		c := r.consultations[i]
		if c.PatientID != p.PatientID || c.DoctorID != p.DoctorID {
			errs = append(errs, fmt.Errorf("prescription %s: patient or doctor differs from consultation %s", p.ID, c.ID))
		}
		if !slices.Contains(c.PrescriptionIDs, p.ID) {
			errs = append(errs, fmt.Errorf("prescription %s: not listed on consultation %s", p.ID, c.ID))
		}
		if len(p.Medications) == 0 {
			errs = append(errs, fmt.Errorf("prescription %s: no medication", p.ID))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid fixtures: %w", err)
	}
	return r, nil
}

func index[T any](items []T, key func(T) types.ID, kind string, errs *[]error) map[types.ID]int {
	idx := make(map[types.ID]int, len(items))
	for i, item := range items {
		id := key(item)
		if id.IsZero() {
			*errs = append(*errs, fmt.Errorf("%s #%d has no id", kind, i))
			continue
		}
		if _, dup := idx[id]; dup {
			*errs = append(*errs, fmt.Errorf("duplicate %s id %s", kind, id))
			continue
		}
		idx[id] = i
	}
	return idx
}

// --- Patients ---

// ListPatients returns patients whose full name or social-security number
// contains the search term, ignoring case.
func (r *Repository) ListPatients(ctx context.Context, filter PatientFilter) ([]Patient, error) {
	term := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []Patient
	for _, p := range r.patients {
		if term == "" ||
			strings.Contains(strings.ToLower(p.FullName()), term) ||
			p.SocialSecurityNumber.Contains(term) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *Repository) GetPatient(ctx context.Context, id types.ID) (*Patient, error) {
	i, ok := r.patientIdx[id]
	if !ok {
		return nil, apperrors.NotFound("patient", id.String())
	}
	p := r.patients[i]
	return &p, nil
}

// PrimaryDoctorName renders the patient's primary doctor for display.
func (r *Repository) PrimaryDoctorName(ctx context.Context, p Patient) string {
	if p.PrimaryDoctorID == nil {
		return "Non assigné"
	}
	i, ok := r.doctorIdx[*p.PrimaryDoctorID]
	if !ok {
		return "Médecin inconnu"
	}
	return r.doctors[i].DisplayName()
}

// PatientConsultations returns the patient's consultations, newest first.
func (r *Repository) PatientConsultations(ctx context.Context, patientID types.ID) ([]Consultation, error) {
	if _, ok := r.patientIdx[patientID]; !ok {
		return nil, apperrors.NotFound("patient", patientID.String())
	}
	return r.ListConsultations(ctx, ConsultationFilter{PatientID: &patientID})
}

// --- Doctors ---

func (r *Repository) ListDoctors(ctx context.Context, filter DoctorFilter) ([]Doctor, error) {
	term := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []Doctor
	for _, d := range r.doctors {
		if filter.Specialty != nil && d.Specialty != *filter.Specialty {
			continue
		}
		if filter.SpecialistType != nil && (d.SpecialistType == nil || *d.SpecialistType != *filter.SpecialistType) {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(d.FullName()), term) &&
			!strings.Contains(strings.ToLower(d.LicenseNumber), term) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *Repository) GetDoctor(ctx context.Context, id types.ID) (*Doctor, error) {
	i, ok := r.doctorIdx[id]
	if !ok {
		return nil, apperrors.NotFound("doctor", id.String())
	}
	d := r.doctors[i]
	return &d, nil
}

// AvailableDoctors returns the doctors selectable for a consultation.
// Without a patient every doctor is offered; with one, general
// practitioners plus the specialists matching a requested referral.
func (r *Repository) AvailableDoctors(ctx context.Context, patientID types.ID, referrals []SpecialistType) []Doctor {
	if patientID.IsZero() {
		return slices.Clone(r.doctors)
	}
	var out []Doctor
	for _, d := range r.doctors {
		switch d.Specialty {
		case SpecialtyGeneral:
			out = append(out, d)
		case SpecialtySpecialist:
			if d.SpecialistType != nil && slices.Contains(referrals, *d.SpecialistType) {
				out = append(out, d)
			}
		}
	}
	return out
}

// --- Consultations ---

// ListConsultations returns matching consultations, newest first.
func (r *Repository) ListConsultations(ctx context.Context, filter ConsultationFilter) ([]Consultation, error) {
	var out []Consultation
	for _, c := range r.consultations {
		if filter.PatientID != nil && c.PatientID != *filter.PatientID {
			continue
		}
		if filter.DoctorID != nil && c.DoctorID != *filter.DoctorID {
			continue
		}
		if filter.Status != nil && c.ReimbursementStatus != *filter.Status {
			continue
		}
		out = append(out, c)
	}
	slices.SortStableFunc(out, func(a, b Consultation) int {
		switch {
		case b.Date.Before(a.Date):
			return -1
		case a.Date.Before(b.Date):
			return 1
		default:
			return 0
		}
	})
	return out, nil
}

func (r *Repository) GetConsultation(ctx context.Context, id types.ID) (*Consultation, error) {
	i, ok := r.consultationIdx[id]
	if !ok {
		return nil, apperrors.NotFound("consultation", id.String())
	}
	c := r.consultations[i]
	return &c, nil
}

// --- Prescriptions ---

func (r *Repository) ListPrescriptions(ctx context.Context, filter PrescriptionFilter) ([]Prescription, error) {
	var out []Prescription
	for _, p := range r.prescriptions {
		if filter.PatientID != nil && p.PatientID != *filter.PatientID {
			continue
		}
		if filter.DoctorID != nil && p.DoctorID != *filter.DoctorID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *Repository) GetPrescription(ctx context.Context, id types.ID) (*Prescription, error) {
	i, ok := r.prescriptionIdx[id]
	if !ok {
		return nil, apperrors.NotFound("prescription", id.String())
	}
	p := r.prescriptions[i]
	return &p, nil
}

// PrescriptionDetail joins a prescription with its patient and doctor and
// fills the denormalized name fields.
func (r *Repository) PrescriptionDetail(ctx context.Context, id types.ID) (*PrescriptionDetail, error) {
	p, err := r.GetPrescription(ctx, id)
	if err != nil {
		return nil, err
	}
	patient := r.patients[r.patientIdx[p.PatientID]]
	doctor := r.doctors[r.doctorIdx[p.DoctorID]]

	created := p.Date.Time()
	p.PatientName = patient.FullName()
	p.DoctorName = doctor.DisplayName()
	p.CreatedAt = &created
	p.UpdatedAt = &created

	return &PrescriptionDetail{Prescription: *p, Patient: patient, Doctor: doctor}, nil
}

// --- Medications ---

// ListMedications returns catalog entries whose name contains search.
func (r *Repository) ListMedications(ctx context.Context, search string) ([]Medication, error) {
	term := strings.ToLower(strings.TrimSpace(search))
	var out []Medication
	for _, m := range r.medications {
		if term == "" || strings.Contains(strings.ToLower(m.Name), term) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *Repository) GetMedication(ctx context.Context, id types.ID) (*Medication, error) {
	i, ok := r.medicationIdx[id]
	if !ok {
		return nil, apperrors.NotFound("medication", id.String())
	}
	m := r.medications[i]
	return &m, nil
}

// --- Dashboard ---

func (r *Repository) Dashboard(ctx context.Context) (*Dashboard, error) {
	pending := ReimbursementPending
	waiting, err := r.ListConsultations(ctx, ConsultationFilter{Status: &pending})
	if err != nil {
		return nil, err
	}

	var total float64
	for _, c := range r.consultations {
		if c.ReimbursementAmount != nil {
			total += *c.ReimbursementAmount
		}
	}

	return &Dashboard{
		Patients:              len(r.patients),
		Doctors:               len(r.doctors),
		Consultations:         len(r.consultations),
		Prescriptions:         len(r.prescriptions),
		PendingReimbursements: waiting,
		ReimbursedTotal:       total,
	}, nil
}
