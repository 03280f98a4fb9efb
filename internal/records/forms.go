package records

import (
	"context"
	"strings"

	apperrors "github.com/social-security/patient-office/internal/shared/errors"
	"github.com/social-security/patient-office/internal/shared/types"
)

// Form submissions are validated against the fixtures and returned as
// drafts. Nothing is ever written back.

const msgRequired = "Ce champ est requis"

// PersonRequest holds the identity fields of patient and doctor forms.
type PersonRequest struct {
	FirstName   string        `json:"first_name"`
	LastName    string        `json:"last_name"`
	DateOfBirth types.Date    `json:"date_of_birth"`
	Phone       string        `json:"phone"`
	Email       string        `json:"email"`
	Address     types.Address `json:"address"`
}

func (p PersonRequest) check(details map[string]string) {
	if strings.TrimSpace(p.FirstName) == "" {
		details["first_name"] = msgRequired
	}
	if strings.TrimSpace(p.LastName) == "" {
		details["last_name"] = msgRequired
	}
	switch {
	case p.DateOfBirth.IsZero():
		details["date_of_birth"] = msgRequired
	case types.Today().Before(p.DateOfBirth):
		details["date_of_birth"] = "La date de naissance ne peut pas être dans le futur"
	}
	if p.Email != "" && !strings.Contains(p.Email, "@") {
		details["email"] = "Adresse e-mail invalide"
	}
}

func (p PersonRequest) person(id types.ID) Person {
	return Person{
		ID:          id,
		FirstName:   strings.TrimSpace(p.FirstName),
		LastName:    strings.TrimSpace(p.LastName),
		DateOfBirth: p.DateOfBirth,
		Phone:       p.Phone,
		Email:       p.Email,
		Address:     p.Address,
	}
}

// PatientRequest is the body of the new-patient form.
type PatientRequest struct {
	PersonRequest
	SocialSecurityNumber types.SSN `json:"social_security_number"`
	PrimaryDoctorID      *types.ID `json:"primary_doctor_id"`
}

// DraftPatient validates a new patient.
func (r *Repository) DraftPatient(ctx context.Context, req PatientRequest) (*Patient, error) {
	details := map[string]string{}
	req.check(details)
	if strings.TrimSpace(req.SocialSecurityNumber.String()) == "" {
		details["social_security_number"] = msgRequired
	}
	if req.PrimaryDoctorID != nil {
		if _, ok := r.doctorIdx[*req.PrimaryDoctorID]; !ok {
			details["primary_doctor_id"] = "Médecin inconnu"
		}
	}
	if len(details) > 0 {
		return nil, apperrors.Validation("validation failed", details)
	}
	return &Patient{
		Person:               req.person(types.NewID()),
		SocialSecurityNumber: req.SocialSecurityNumber,
		PrimaryDoctorID:      req.PrimaryDoctorID,
	}, nil
}

// DoctorRequest is the body of the doctor form.
type DoctorRequest struct {
	PersonRequest
	LicenseNumber  string          `json:"license_number"`
	Specialty      Specialty       `json:"specialty"`
	SpecialistType *SpecialistType `json:"specialist_type"`
	IsAlsoPatient  bool            `json:"is_also_patient"`
	PatientID      *types.ID       `json:"patient_id"`
}

// DraftDoctor validates a doctor. An empty id creates, otherwise the
// doctor must exist.
func (r *Repository) DraftDoctor(ctx context.Context, id types.ID, req DoctorRequest) (*Doctor, error) {
	if id.IsZero() {
		id = types.NewID()
	} else if _, err := r.GetDoctor(ctx, id); err != nil {
		return nil, err
	}

	details := map[string]string{}
	req.check(details)
	if strings.TrimSpace(req.LicenseNumber) == "" {
		details["license_number"] = msgRequired
	}
	if !req.Specialty.Valid() {
		details["specialty"] = "Spécialité invalide"
	}
	switch {
	case req.Specialty == SpecialtySpecialist && req.SpecialistType == nil:
		details["specialist_type"] = "Le type de spécialiste est requis"
	case req.Specialty != SpecialtySpecialist && req.SpecialistType != nil:
		details["specialist_type"] = "Réservé aux spécialistes"
	case req.SpecialistType != nil && !req.SpecialistType.Valid():
		details["specialist_type"] = "Type de spécialiste invalide"
	}
	if req.PatientID != nil {
		if !req.IsAlsoPatient {
			details["patient_id"] = "Le médecin n'est pas déclaré comme patient"
		} else if _, ok := r.patientIdx[*req.PatientID]; !ok {
			details["patient_id"] = "Patient inconnu"
		}
	}
	if len(details) > 0 {
		return nil, apperrors.Validation("validation failed", details)
	}

	d := &Doctor{
		Person:         req.person(id),
		LicenseNumber:  strings.TrimSpace(req.LicenseNumber),
		Specialty:      req.Specialty,
		SpecialistType: req.SpecialistType,
		IsAlsoPatient:  req.IsAlsoPatient,
		PatientID:      req.PatientID,
	}
	if err := d.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error(), nil)
	}
	return d, nil
}

// ReferralRequest asks for a specialist referral.
type ReferralRequest struct {
	SpecialistType SpecialistType `json:"specialist_type"`
	Reason         string         `json:"reason"`
}

// ConsultationRequest is the body of the consultation form.
type ConsultationRequest struct {
	PatientID           types.ID          `json:"patient_id"`
	DoctorID            types.ID          `json:"doctor_id"`
	Date                types.Date        `json:"date"`
	Notes               string            `json:"notes"`
	MedicationIDs       []types.ID        `json:"medication_ids"`
	SpecialistReferrals []ReferralRequest `json:"specialist_referrals"`
}

// DraftConsultation validates a consultation. The doctor must be one of
// AvailableDoctors for the patient and requested referrals. An empty id
// creates, otherwise the consultation must exist and keeps its
// reimbursement and prescriptions.
func (r *Repository) DraftConsultation(ctx context.Context, id types.ID, req ConsultationRequest) (*Consultation, error) {
	c := &Consultation{ReimbursementStatus: ReimbursementPending}
	if id.IsZero() {
		c.ID = types.NewID()
	} else {
		existing, err := r.GetConsultation(ctx, id)
		if err != nil {
			return nil, err
		}
		c = existing
	}

	details := map[string]string{}
	if req.PatientID.IsZero() {
		details["patient_id"] = msgRequired
	} else if _, ok := r.patientIdx[req.PatientID]; !ok {
		details["patient_id"] = "Patient inconnu"
	}

	var referralTypes []SpecialistType
	for _, ref := range req.SpecialistReferrals {
		if !ref.SpecialistType.Valid() {
			details["specialist_referrals"] = "Type de spécialiste invalide"
			continue
		}
		if strings.TrimSpace(ref.Reason) == "" {
			details["specialist_referrals"] = "Le motif de l'orientation est requis"
		}
		referralTypes = append(referralTypes, ref.SpecialistType)
	}

	switch {
	case req.DoctorID.IsZero():
		details["doctor_id"] = msgRequired
	case !containsDoctor(r.AvailableDoctors(ctx, req.PatientID, referralTypes), req.DoctorID):
		details["doctor_id"] = "Médecin non disponible pour cette consultation"
	}
	if req.Date.IsZero() {
		details["date"] = msgRequired
	}
	for _, mid := range req.MedicationIDs {
		if _, ok := r.medicationIdx[mid]; !ok {
			details["medication_ids"] = "Médicament inconnu"
		}
	}
	if len(details) > 0 {
		return nil, apperrors.Validation("validation failed", details)
	}

	c.PatientID = req.PatientID
	c.DoctorID = req.DoctorID
	c.Date = req.Date
	c.Notes = req.Notes
	c.SpecialistReferrals = make([]SpecialistReferral, 0, len(req.SpecialistReferrals))
	for _, ref := range req.SpecialistReferrals {
		c.SpecialistReferrals = append(c.SpecialistReferrals, SpecialistReferral{
			ID:             types.NewID(),
			ConsultationID: c.ID,
			SpecialistType: ref.SpecialistType,
			Reason:         strings.TrimSpace(ref.Reason),
		})
	}
	if err := c.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error(), nil)
	}
	return c, nil
}

func containsDoctor(doctors []Doctor, id types.ID) bool {
	for _, d := range doctors {
		if d.ID == id {
			return true
		}
	}
	return false
}

// ReimbursementRequest decides a pending reimbursement.
type ReimbursementRequest struct {
	Status ReimbursementStatus `json:"status"`
	Amount *float64            `json:"amount"`
	Date   *types.Date         `json:"date"`
}

// DraftReimbursement applies a reimbursement decision to a copy of the
// consultation.
func (r *Repository) DraftReimbursement(ctx context.Context, consultationID types.ID, req ReimbursementRequest) (*Consultation, error) {
	c, err := r.GetConsultation(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	if c.ReimbursementStatus.IsTerminal() {
		return nil, apperrors.Conflict("Le remboursement a déjà été traité (" + c.ReimbursementStatus.Label() + ")")
	}

	details := map[string]string{}
	if !req.Status.Valid() {
		details["status"] = "Statut invalide"
	} else if !c.ReimbursementStatus.CanTransitionTo(req.Status) {
		details["status"] = "Transition de statut non autorisée"
	}
	if req.Status.RequiresAmount() && (req.Amount == nil || *req.Amount <= 0) {
		details["amount"] = "Un montant positif est requis"
	}
	if req.Amount != nil && *req.Amount < 0 {
		details["amount"] = "Le montant ne peut pas être négatif"
	}
	if req.Date != nil && req.Date.Before(c.Date) {
		details["date"] = "La date de remboursement précède la consultation"
	}
	if len(details) > 0 {
		return nil, apperrors.Validation("validation failed", details)
	}

	date := types.Today()
	if req.Date != nil {
		date = *req.Date
	}
	c.ReimbursementStatus = req.Status
	c.ReimbursementAmount = req.Amount
	c.ReimbursementDate = &date
	return c, nil
}

// PrescribedMedication is one line of a prescription form.
type PrescribedMedication struct {
	MedicationID types.ID `json:"medication_id"`
	Dosage       string   `json:"dosage"`
	Frequency    string   `json:"frequency"`
	Duration     string   `json:"duration"`
	Instructions string   `json:"instructions"`
}

// PrescriptionRequest is the body of the prescription form.
type PrescriptionRequest struct {
	ConsultationID types.ID               `json:"consultation_id"`
	Date           types.Date             `json:"date"`
	Notes          string                 `json:"notes"`
	Medications    []PrescribedMedication `json:"medications"`
}

// DraftPrescription validates a prescription. Patient and doctor come from
// the consultation. Catalog values fill any line left blank.
func (r *Repository) DraftPrescription(ctx context.Context, id types.ID, req PrescriptionRequest) (*Prescription, error) {
	if id.IsZero() {
		id = types.NewID()
	} else if _, err := r.GetPrescription(ctx, id); err != nil {
		return nil, err
	}

	details := map[string]string{}
	var consultation *Consultation
	if req.ConsultationID.IsZero() {
		details["consultation_id"] = msgRequired
	} else if c, err := r.GetConsultation(ctx, req.ConsultationID); err != nil {
		details["consultation_id"] = "Consultation inconnue"
	} else {
		consultation = c
	}
	if len(req.Medications) == 0 {
		details["medications"] = "Au moins un médicament est requis"
	}

	meds := make([]Medication, 0, len(req.Medications))
	for _, line := range req.Medications {
		i, ok := r.medicationIdx[line.MedicationID]
		if !ok {
			details["medications"] = "Médicament inconnu"
			continue
		}
		m := r.medications[i]
		m.Dosage = orDefault(line.Dosage, m.Dosage)
		m.Frequency = orDefault(line.Frequency, m.Frequency)
		m.Duration = orDefault(line.Duration, m.Duration)
		m.Instructions = orDefault(line.Instructions, m.Instructions)
		meds = append(meds, m)
	}
	if len(details) > 0 {
		return nil, apperrors.Validation("validation failed", details)
	}

	date := req.Date
	if date.IsZero() {
		date = consultation.Date
	}
	return &Prescription{
		ID:             id,
		ConsultationID: consultation.ID,
		PatientID:      consultation.PatientID,
		DoctorID:       consultation.DoctorID,
		Date:           date,
		Notes:          strings.TrimSpace(req.Notes),
		Medications:    meds,
	}, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
