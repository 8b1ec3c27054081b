package amqp

import (
	"encoding/json"
	"time"

	"studio/internal/core"
)

// ReminderMessage announces an appointment due on the next day.
// It carries the denormalized patient name so consumers need no store access.
type ReminderMessage struct {
	AppointmentID string    `json:"appointmentId"`
	PatientID     string    `json:"patientId"`
	PatientName   string    `json:"patientName"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewReminderMessage(a core.Appointment) *ReminderMessage {
	return &ReminderMessage{
		AppointmentID: a.ID,
		PatientID:     a.PatientID,
		PatientName:   a.PatientName,
		Date:          a.Date,
		Time:          a.Time,
		Timestamp:     time.Now(),
	}
}

func (m *ReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReminderMessageFromJSON(data []byte) (*ReminderMessage, error) {
	var msg ReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
