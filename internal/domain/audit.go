package domain

// SyncLogEntry records one collection write through the sync manager.
type SyncLogEntry struct {
	Timestamp   string `json:"timestamp"`
	DataType    string `json:"dataType"`
	RecordCount int    `json:"recordCount"`
	UserID      string `json:"userId,omitempty"`
}

// LoginLogEntry records a login attempt.
type LoginLogEntry struct {
	Timestamp  string `json:"timestamp"`
	EmployeeID string `json:"employeeId"`
	UserID     string `json:"userId,omitempty"`
	Success    bool   `json:"success"`
	Action     string `json:"action"`
}

// SalesLogEntry records a change to a sales record.
type SalesLogEntry struct {
	Timestamp string  `json:"timestamp"`
	Action    string  `json:"action"`
	SaleID    string  `json:"saleId"`
	UserID    string  `json:"userId"`
	ActorID   string  `json:"actorId"`
	Amount    float64 `json:"amount"`
}

// AttendanceLogEntry records a check-in, check-out or status mark.
type AttendanceLogEntry struct {
	Timestamp string           `json:"timestamp"`
	Action    string           `json:"action"`
	UserID    string           `json:"userId"`
	ActorID   string           `json:"actorId"`
	Date      string           `json:"date"`
	Status    AttendanceStatus `json:"status,omitempty"`
}

// ProfileUpdateLogEntry records a profile patch.
type ProfileUpdateLogEntry struct {
	Timestamp string   `json:"timestamp"`
	UserID    string   `json:"userId"`
	ActorID   string   `json:"actorId"`
	Fields    []string `json:"fields"`
}

// ExportLogEntry records a report export.
type ExportLogEntry struct {
	Timestamp   string `json:"timestamp"`
	UserID      string `json:"userId,omitempty"`
	Kind        string `json:"kind"`
	Format      string `json:"format"`
	Filename    string `json:"filename"`
	RecordCount int    `json:"recordCount"`
}
