package records

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/social-security/patient-office/internal/shared/types"
)

// Specialty distinguishes general practitioners from specialists.
type Specialty string

const (
	SpecialtyGeneral    Specialty = "GENERAL"
	SpecialtySpecialist Specialty = "SPECIALIST"
)

func (s Specialty) Valid() bool {
	switch s {
	case SpecialtyGeneral, SpecialtySpecialist:
		return true
	default:
		return false
	}
}

func (s Specialty) Label() string {
	switch s {
	case SpecialtyGeneral:
		return "Généraliste"
	case SpecialtySpecialist:
		return "Spécialiste"
	default:
		return string(s)
	}
}

// ParseSpecialty parses a specialty name.
func ParseSpecialty(s string) (Specialty, error) {
	v := Specialty(s)
	if !v.Valid() {
		return "", fmt.Errorf("unknown specialty %q", s)
	}
	return v, nil
}

// SpecialistType is the field of a specialist doctor.
type SpecialistType string

const (
	SpecialistCardiology    SpecialistType = "CARDIOLOGY"
	SpecialistDermatology   SpecialistType = "DERMATOLOGY"
	SpecialistNeurology     SpecialistType = "NEUROLOGY"
	SpecialistOrthopedics   SpecialistType = "ORTHOPEDICS"
	SpecialistOphthalmology SpecialistType = "OPHTHALMOLOGY"
	SpecialistGynecology    SpecialistType = "GYNECOLOGY"
	SpecialistPediatrics    SpecialistType = "PEDIATRICS"
	SpecialistPsychiatry    SpecialistType = "PSYCHIATRY"
	SpecialistOther         SpecialistType = "OTHER"
)

var specialistLabels = map[SpecialistType]string{
	SpecialistCardiology:    "Cardiologie",
	SpecialistDermatology:   "Dermatologie",
	SpecialistNeurology:     "Neurologie",
	SpecialistOrthopedics:   "Orthopédie",
	SpecialistOphthalmology: "Ophtalmologie",
	SpecialistGynecology:    "Gynécologie",
	SpecialistPediatrics:    "Pédiatrie",
	SpecialistPsychiatry:    "Psychiatrie",
	SpecialistOther:         "Autre",
}

func (t SpecialistType) Valid() bool {
	_, ok := specialistLabels[t]
	return ok
}

func (t SpecialistType) Label() string {
	if l, ok := specialistLabels[t]; ok {
		return l
	}
	return string(t)
}

// ParseSpecialistType parses a specialist type name.
func ParseSpecialistType(s string) (SpecialistType, error) {
	v := SpecialistType(s)
	if !v.Valid() {
		return "", fmt.Errorf("unknown specialist type %q", s)
	}
	return v, nil
}

// ReimbursementStatus tracks a consultation's reimbursement.
type ReimbursementStatus string

const (
	ReimbursementPending   ReimbursementStatus = "PENDING"
	ReimbursementApproved  ReimbursementStatus = "APPROVED"
	ReimbursementRejected  ReimbursementStatus = "REJECTED"
	ReimbursementPartial   ReimbursementStatus = "PARTIAL"
	ReimbursementCompleted ReimbursementStatus = "COMPLETED"
)

func (s ReimbursementStatus) Valid() bool {
	switch s {
	case ReimbursementPending, ReimbursementApproved, ReimbursementRejected,
		ReimbursementPartial, ReimbursementCompleted:
		return true
	default:
		return false
	}
}

func (s ReimbursementStatus) Label() string {
	switch s {
	case ReimbursementPending:
		return "En attente"
	case ReimbursementApproved:
		return "Approuvé"
	case ReimbursementRejected:
		return "Rejeté"
	case ReimbursementPartial:
		return "Partiellement remboursé"
	case ReimbursementCompleted:
		return "Remboursé"
	default:
		return string(s)
	}
}

// IsTerminal reports whether the status can no longer change.
func (s ReimbursementStatus) IsTerminal() bool {
	switch s {
	case ReimbursementPending:
		return false
	case ReimbursementApproved, ReimbursementRejected, ReimbursementPartial, ReimbursementCompleted:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether s may move to next. Only a pending
// reimbursement can be decided.
func (s ReimbursementStatus) CanTransitionTo(next ReimbursementStatus) bool {
	switch s {
	case ReimbursementPending:
		return next.Valid() && next != ReimbursementPending
	default:
		return false
	}
}

// RequiresAmount reports whether a decision to s must carry an amount.
func (s ReimbursementStatus) RequiresAmount() bool {
	switch s {
	case ReimbursementApproved, ReimbursementPartial, ReimbursementCompleted:
		return true
	default:
		return false
	}
}

// ParseReimbursementStatus parses a status name.
func ParseReimbursementStatus(s string) (ReimbursementStatus, error) {
	v := ReimbursementStatus(s)
	if !v.Valid() {
		return "", fmt.Errorf("unknown reimbursement status %q", s)
	}
	return v, nil
}

// Person holds the identity attributes shared by patients and doctors.
type Person struct {
	ID          types.ID      `json:"id"`
	FirstName   string        `json:"first_name"`
	LastName    string        `json:"last_name"`
	DateOfBirth types.Date    `json:"date_of_birth"`
	Phone       string        `json:"phone"`
	Email       string        `json:"email"`
	Address     types.Address `json:"address"`
}

// FullName returns "First Last".
func (p Person) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Patient is an insured person.
type Patient struct {
	Person
	SocialSecurityNumber types.SSN `json:"social_security_number"`
	PrimaryDoctorID      *types.ID `json:"primary_doctor_id"`
}

// Doctor is a practitioner. A doctor may also be registered as a patient.
type Doctor struct {
	Person
	LicenseNumber  string          `json:"license_number"`
	Specialty      Specialty       `json:"specialty"`
	SpecialistType *SpecialistType `json:"specialist_type,omitempty"`
	IsAlsoPatient  bool            `json:"is_also_patient"`
	PatientID      *types.ID       `json:"patient_id,omitempty"`
}

// DisplayName returns "Dr. First Last".
func (d Doctor) DisplayName() string {
	return "Dr. " + d.FullName()
}

// Validate enforces the specialty and patient-link invariants.
func (d Doctor) Validate() error {
	var errs []error
	if !d.Specialty.Valid() {
		errs = append(errs, fmt.Errorf("unknown specialty %q", d.Specialty))
	}
	switch {
	case d.Specialty == SpecialtySpecialist && d.SpecialistType == nil:
		errs = append(errs, errors.New("a specialist needs a specialist type"))
	case d.Specialty != SpecialtySpecialist && d.SpecialistType != nil:
		errs = append(errs, errors.New("only specialists have a specialist type"))
	case d.SpecialistType != nil && !d.SpecialistType.Valid():
		errs = append(errs, fmt.Errorf("unknown specialist type %q", *d.SpecialistType))
	}
	if d.PatientID != nil && !d.IsAlsoPatient {
		errs = append(errs, errors.New("patient link set on a doctor who is not a patient"))
	}
	return errors.Join(errs...)
}

// SpecialistReferral sends the patient of a consultation to a specialist.
type SpecialistReferral struct {
	ID             types.ID       `json:"id"`
	ConsultationID types.ID       `json:"consultation_id"`
	SpecialistType SpecialistType `json:"specialist_type"`
	SpecialistID   *types.ID      `json:"specialist_id,omitempty"`
	Reason         string         `json:"reason"`
	IsCompleted    bool           `json:"is_completed"`
	CompletionDate *types.Date    `json:"completion_date,omitempty"`
}

// Validate checks that a completion date is only set on completed referrals.
func (r SpecialistReferral) Validate() error {
	if !r.SpecialistType.Valid() {
		return fmt.Errorf("unknown specialist type %q", r.SpecialistType)
	}
	if r.CompletionDate != nil && !r.IsCompleted {
		return errors.New("completion date set on an open referral")
	}
	return nil
}

// Consultation is a visit of a patient to a doctor.
type Consultation struct {
	ID                  types.ID             `json:"id"`
	PatientID           types.ID             `json:"patient_id"`
	DoctorID            types.ID             `json:"doctor_id"`
	Date                types.Date           `json:"date"`
	Notes               string               `json:"notes"`
	PrescriptionIDs     []types.ID           `json:"prescription_ids"`
	SpecialistReferrals []SpecialistReferral `json:"specialist_referrals"`
	ReimbursementStatus ReimbursementStatus  `json:"reimbursement_status"`
	ReimbursementAmount *float64             `json:"reimbursement_amount"`
	ReimbursementDate   *types.Date          `json:"reimbursement_date"`
}

// Validate enforces the reimbursement invariant and checks referrals.
func (c Consultation) Validate() error {
	var errs []error
	if !c.ReimbursementStatus.Valid() {
		errs = append(errs, fmt.Errorf("unknown reimbursement status %q", c.ReimbursementStatus))
	}
	if c.ReimbursementStatus == ReimbursementPending &&
		(c.ReimbursementAmount != nil || c.ReimbursementDate != nil) {
		errs = append(errs, errors.New("pending reimbursement carries an amount or date"))
	}
	if c.ReimbursementAmount != nil && *c.ReimbursementAmount < 0 {
		errs = append(errs, errors.New("negative reimbursement amount"))
	}
	for _, ref := range c.SpecialistReferrals {
		if ref.ConsultationID != c.ID {
			errs = append(errs, fmt.Errorf("referral %s belongs to consultation %s", ref.ID, ref.ConsultationID))
		}
		if err := ref.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("referral %s: %w", ref.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Medication is a drug entry, either from the catalog or as prescribed.
type Medication struct {
	ID           types.ID `json:"id"`
	Name         string   `json:"name"`
	Dosage       string   `json:"dosage"`
	Frequency    string   `json:"frequency"`
	Duration     string   `json:"duration"`
	Instructions string   `json:"instructions"`
}

// Prescription lists the medications issued during a consultation.
type Prescription struct {
	ID             types.ID     `json:"id"`
	ConsultationID types.ID     `json:"consultation_id"`
	PatientID      types.ID     `json:"patient_id"`
	DoctorID       types.ID     `json:"doctor_id"`
	Date           types.Date   `json:"date"`
	Notes          string       `json:"notes,omitempty"`
	Medications    []Medication `json:"medications"`

	// Filled by joined reads only.
	PatientName string     `json:"patient_name,omitempty"`
	DoctorName  string     `json:"doctor_name,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// PrescriptionDetail is a prescription with its patient and doctor.
type PrescriptionDetail struct {
	Prescription
	Patient Patient `json:"patient"`
	Doctor  Doctor  `json:"doctor"`
}

// Dashboard summarizes the office.
type Dashboard struct {
	Patients              int            `json:"patients"`
	Doctors               int            `json:"doctors"`
	Consultations         int            `json:"consultations"`
	Prescriptions         int            `json:"prescriptions"`
	PendingReimbursements []Consultation `json:"pending_reimbursements"`
	ReimbursedTotal       float64        `json:"reimbursed_total"`
}

// PatientFilter narrows ListPatients.
type PatientFilter struct {
	Search string
}

// DoctorFilter narrows ListDoctors.
type DoctorFilter struct {
	Specialty      *Specialty
	SpecialistType *SpecialistType
	Search         string
}

// ConsultationFilter narrows ListConsultations.
type ConsultationFilter struct {
	PatientID *types.ID
	DoctorID  *types.ID
	Status    *ReimbursementStatus
}

// PrescriptionFilter narrows ListPrescriptions.
type PrescriptionFilter struct {
	PatientID *types.ID
	DoctorID  *types.ID
}

func specialistPtr(t SpecialistType) *SpecialistType { return &t }

func amountPtr(v float64) *float64 { return &v }

func datePtr(s string) *types.Date {
	d := types.MustParseDate(s)
	return &d
}
