package models

// All returns every table the service migrates, parents first.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Equipment{},
		&Intervention{},
		&Diagnostic{},
		&DiagnosticTravailRequis{},
		&DiagnosticBesoinPDR{},
		&DiagnosticChargeRealisee{},
		&Planification{},
		&ControleQualite{},
		&Rapport{},
	}
}
