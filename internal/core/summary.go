package core

// PeriodAmount is an amount aggregated over a day (YYYY-MM-DD) or month (YYYY-MM).
type PeriodAmount struct {
	Period string `json:"period"`
	Amount Money  `json:"amount"`
	Count  int    `json:"count"`
}

// PatientBalance is what a patient still owes on accepted quotes.
type PatientBalance struct {
	PatientID   string `json:"patientId"`
	PatientName string `json:"patientName"`
	Amount      Money  `json:"amount"`
}
