package records

import (
	"github.com/social-security/patient-office/internal/shared/types"
)

// Fixtures is the complete static data set of the office.
type Fixtures struct {
	Patients      []Patient
	Doctors       []Doctor
	Consultations []Consultation
	Prescriptions []Prescription
	Medications   []Medication
}

// DefaultFixtures returns the demonstration data set. Every call returns
// fresh slices.
func DefaultFixtures() Fixtures {
	medications := []Medication{
		{ID: "m1", Name: "Doliprane 1000 mg", Dosage: "1 comprimé", Frequency: "3 fois par jour", Duration: "5 jours", Instructions: "Espacer les prises d'au moins 6 heures"},
		{ID: "m2", Name: "Kardégic 75 mg", Dosage: "1 sachet", Frequency: "1 fois par jour", Duration: "3 mois", Instructions: "À prendre au cours du repas"},
		{ID: "m3", Name: "Amoxicilline 500 mg", Dosage: "2 gélules", Frequency: "2 fois par jour", Duration: "7 jours", Instructions: "Terminer le traitement"},
		{ID: "m4", Name: "Ventoline 100 µg", Dosage: "2 bouffées", Frequency: "En cas de crise", Duration: "1 mois", Instructions: "Agiter avant emploi"},
		{ID: "m5", Name: "Levothyrox 50 µg", Dosage: "1 comprimé", Frequency: "1 fois par jour", Duration: "6 mois", Instructions: "À jeun, 30 minutes avant le petit-déjeuner"},
		{ID: "m6", Name: "Spasfon 80 mg", Dosage: "2 comprimés", Frequency: "En cas de douleur", Duration: "10 jours", Instructions: "Maximum 6 comprimés par jour"},
	}

	doctors := []Doctor{
		{
			Person: Person{
				ID: "d1", FirstName: "Marie", LastName: "Durand",
				DateOfBirth: types.MustParseDate("1975-04-12"),
				Phone:       "01 42 33 44 55", Email: "m.durand@cabinet-medical.fr",
				Address: types.NewAddress("12 rue de la Paix", "75002", "Paris"),
			},
			LicenseNumber: "10001234567",
			Specialty:     SpecialtyGeneral,
		},
		{
			Person: Person{
				ID: "d2", FirstName: "Sophie", LastName: "Bernard",
				DateOfBirth: types.MustParseDate("1980-04-02"),
				Phone:       "04 72 10 20 30", Email: "s.bernard@medecins-lyon.fr",
				Address: types.NewAddress("5 place Bellecour", "69002", "Lyon"),
			},
			LicenseNumber: "10002345678",
			Specialty:     SpecialtyGeneral,
			IsAlsoPatient: true,
			PatientID:     types.ID("p5").Ptr(),
		},
		{
			Person: Person{
				ID: "d3", FirstName: "Pierre", LastName: "Lefebvre",
				DateOfBirth: types.MustParseDate("1968-09-23"),
				Phone:       "01 45 67 89 10", Email: "p.lefebvre@clinique-coeur.fr",
				Address: types.NewAddress("48 boulevard Haussmann", "75009", "Paris"),
			},
			LicenseNumber:  "10003456789",
			Specialty:      SpecialtySpecialist,
			SpecialistType: specialistPtr(SpecialistCardiology),
		},
		{
			Person: Person{
				ID: "d4", FirstName: "Luc", LastName: "Moreau",
				DateOfBirth: types.MustParseDate("1983-01-30"),
				Phone:       "05 56 11 22 33", Email: "l.moreau@dermato-bordeaux.fr",
				Address: types.NewAddress("7 cours de l'Intendance", "33000", "Bordeaux"),
			},
			LicenseNumber:  "10004567890",
			Specialty:      SpecialtySpecialist,
			SpecialistType: specialistPtr(SpecialistDermatology),
		},
		{
			Person: Person{
				ID: "d5", FirstName: "Claire", LastName: "Petit",
				DateOfBirth: types.MustParseDate("1987-06-18"),
				Phone:       "03 20 44 55 66", Email: "c.petit@pediatrie-lille.fr",
				Address: types.NewAddress("22 rue Nationale", "59000", "Lille"),
			},
			LicenseNumber:  "10005678901",
			Specialty:      SpecialtySpecialist,
			SpecialistType: specialistPtr(SpecialistPediatrics),
		},
	}

	patients := []Patient{
		{
			Person: Person{
				ID: "p1", FirstName: "Jean", LastName: "Dupont",
				DateOfBirth: types.MustParseDate("1985-05-14"),
				Phone:       "06 12 34 56 78", Email: "jean.dupont@email.fr",
				Address: types.NewAddress("3 rue des Lilas", "75011", "Paris"),
			},
			SocialSecurityNumber: "1 85 05 75 123 456 78",
			PrimaryDoctorID:      types.ID("d1").Ptr(),
		},
		{
			Person: Person{
				ID: "p2", FirstName: "Camille", LastName: "Leroy",
				DateOfBirth: types.MustParseDate("1990-11-02"),
				Phone:       "06 23 45 67 89", Email: "camille.leroy@email.fr",
				Address: types.NewAddress("18 avenue Jean Jaurès", "69007", "Lyon"),
			},
			SocialSecurityNumber: "2 90 11 69 234 567 89",
			PrimaryDoctorID:      types.ID("d1").Ptr(),
		},
		{
			Person: Person{
				ID: "p3", FirstName: "Antoine", LastName: "Girard",
				DateOfBirth: types.MustParseDate("1978-03-27"),
				Phone:       "06 34 56 78 90", Email: "antoine.girard@email.fr",
				Address: types.NewAddress("9 quai du Port", "13002", "Marseille"),
			},
			SocialSecurityNumber: "1 78 03 13 345 678 90",
			PrimaryDoctorID:      types.ID("d2").Ptr(),
		},
		{
			Person: Person{
				ID: "p4", FirstName: "Léa", LastName: "Roux",
				DateOfBirth: types.MustParseDate("2015-07-08"),
				Phone:       "06 45 67 89 01", Email: "famille.roux@email.fr",
				Address: types.NewAddress("2 allée des Chênes", "33000", "Bordeaux"),
			},
			SocialSecurityNumber: "2 15 07 33 456 789 01",
		},
		{
			Person: Person{
				ID: "p5", FirstName: "Sophie", LastName: "Bernard",
				DateOfBirth: types.MustParseDate("1980-04-02"),
				Phone:       "04 72 10 20 30", Email: "s.bernard@medecins-lyon.fr",
				Address: types.NewAddress("5 place Bellecour", "69002", "Lyon"),
			},
			SocialSecurityNumber: "2 80 04 69 567 890 12",
			PrimaryDoctorID:      types.ID("d1").Ptr(),
		},
		{
			Person: Person{
				ID: "p6", FirstName: "Hugo", LastName: "Fontaine",
				DateOfBirth: types.MustParseDate("1995-12-19"),
				Phone:       "06 56 78 90 12", Email: "hugo.fontaine@email.fr",
				Address: types.NewAddress("41 rue Nationale", "59000", "Lille"),
			},
			SocialSecurityNumber: "1 95 12 59 678 901 23",
			PrimaryDoctorID:      types.ID("d2").Ptr(),
		},
	}

	consultations := []Consultation{
		{
			ID: "c1", PatientID: "p1", DoctorID: "d1",
			Date:            types.MustParseDate("2024-01-15"),
			Notes:           "Douleurs thoraciques à l'effort. Orientation vers un cardiologue.",
			PrescriptionIDs: []types.ID{"rx1"},
			SpecialistReferrals: []SpecialistReferral{{
				ID: "r1", ConsultationID: "c1",
				SpecialistType: SpecialistCardiology,
				SpecialistID:   types.ID("d3").Ptr(),
				Reason:         "Bilan cardiaque",
				IsCompleted:    true,
				CompletionDate: datePtr("2024-02-10"),
			}},
			ReimbursementStatus: ReimbursementApproved,
			ReimbursementAmount: amountPtr(25),
			ReimbursementDate:   datePtr("2024-01-30"),
		},
		{
			ID: "c2", PatientID: "p2", DoctorID: "d1",
			Date:                types.MustParseDate("2024-02-03"),
			Notes:               "Angine bactérienne.",
			PrescriptionIDs:     []types.ID{"rx2"},
			ReimbursementStatus: ReimbursementPending,
		},
		{
			ID: "c3", PatientID: "p1", DoctorID: "d3",
			Date:                types.MustParseDate("2024-02-10"),
			Notes:               "Échographie cardiaque normale. Pas de suivi nécessaire.",
			ReimbursementStatus: ReimbursementCompleted,
			ReimbursementAmount: amountPtr(50),
			ReimbursementDate:   datePtr("2024-02-25"),
		},
		{
			ID: "c4", PatientID: "p3", DoctorID: "d2",
			Date:                types.MustParseDate("2024-03-05"),
			Notes:               "Consultation de contrôle hors parcours de soins.",
			ReimbursementStatus: ReimbursementRejected,
			ReimbursementDate:   datePtr("2024-03-20"),
		},
		{
			ID: "c5", PatientID: "p4", DoctorID: "d5",
			Date:            types.MustParseDate("2024-03-12"),
			Notes:           "Crises d'asthme nocturnes. Eczéma sur les avant-bras.",
			PrescriptionIDs: []types.ID{"rx3"},
			SpecialistReferrals: []SpecialistReferral{{
				ID: "r2", ConsultationID: "c5",
				SpecialistType: SpecialistDermatology,
				Reason:         "Eczéma persistant",
			}},
			ReimbursementStatus: ReimbursementPending,
		},
		{
			ID: "c6", PatientID: "p5", DoctorID: "d1",
			Date:                types.MustParseDate("2024-03-18"),
			Notes:               "Fatigue chronique. Bilan thyroïdien demandé.",
			ReimbursementStatus: ReimbursementPartial,
			ReimbursementAmount: amountPtr(17.5),
			ReimbursementDate:   datePtr("2024-04-01"),
		},
	}

	prescriptions := []Prescription{
		{
			ID: "rx1", ConsultationID: "c1", PatientID: "p1", DoctorID: "d1",
			Date:  types.MustParseDate("2024-01-15"),
			Notes: "En attendant le bilan cardiaque.",
			Medications: []Medication{
				medications[1],
				medications[0],
			},
		},
		{
			ID: "rx2", ConsultationID: "c2", PatientID: "p2", DoctorID: "d1",
			Date:        types.MustParseDate("2024-02-03"),
			Medications: []Medication{medications[2], medications[0]},
		},
		{
			ID: "rx3", ConsultationID: "c5", PatientID: "p4", DoctorID: "d5",
			Date:  types.MustParseDate("2024-03-12"),
			Notes: "Posologie pédiatrique.",
			Medications: []Medication{{
				ID: "m4", Name: "Ventoline 100 µg", Dosage: "1 bouffée",
				Frequency: "En cas de crise", Duration: "1 mois",
				Instructions: "Utiliser avec une chambre d'inhalation",
			}},
		},
	}

	return Fixtures{
		Patients:      patients,
		Doctors:       doctors,
		Consultations: consultations,
		Prescriptions: prescriptions,
		Medications:   medications,
	}
}
