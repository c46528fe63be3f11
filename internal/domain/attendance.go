package domain

// AttendanceStatus enumerates the daily attendance states.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
)

// Valid reports whether the status is known.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate:
		return true
	}
	return false
}

// AttendanceRecord is one user's attendance for one day.
type AttendanceRecord struct {
	ID       string           `json:"id"`
	UserID   string           `json:"userId"`
	Date     string           `json:"date"`
	Status   AttendanceStatus `json:"status"`
	CheckIn  string           `json:"checkIn,omitempty"`
	CheckOut string           `json:"checkOut,omitempty"`
	MarkedBy string           `json:"markedBy,omitempty"`
	Notes    string           `json:"notes,omitempty"`
}
