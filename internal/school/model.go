package school

import "time"

// Table is a row collection with its fixed write order; id is always first
// for tables that carry a surrogate id.
type Table struct {
	Sheet   string
	Columns []string
}

var (
	Students = Table{
		Sheet:   "Students",
		Columns: []string{"id", "username", "name", "grade", "class", "guardianName", "guardianPhone", "status", "password"},
	}
	Teachers = Table{
		Sheet:   "Teachers",
		Columns: []string{"id", "name", "subject", "email", "phone", "status"},
	}
	Subjects = Table{
		Sheet:   "Subjects",
		Columns: []string{"id", "name", "code", "teacherId"},
	}
	Announcements = Table{
		Sheet:   "Announcements",
		Columns: []string{"id", "title", "content", "category", "date"},
	}
	Grades = Table{
		Sheet:   "Grades",
		Columns: []string{"studentId", "subject", "score"},
	}
	Attendance = Table{
		Sheet:   "Attendance",
		Columns: []string{"studentId", "date", "status"},
	}
	ReadReceipts = Table{
		Sheet:   "ReadReceipts",
		Columns: []string{"studentId", "announcementId", "timestamp"},
	}
	AuditLog = Table{
		Sheet:   "AuditLog",
		Columns: []string{"id", "action", "requestId", "at", "summary"},
	}
)

// Tables lists every row collection created by Bootstrap.
var Tables = []Table{Students, Teachers, Subjects, Announcements, Grades, Attendance, ReadReceipts, AuditLog}

// Student account states.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusPending  = "pending"
)

// Attendance states.
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "late"
)

// Score bounds for a grade.
const (
	MinScore = 0
	MaxScore = 100
)

// Lock waits. Grade saves get longer because deletions shift row positions.
const (
	WriteWait  = 15 * time.Second
	GradesWait = 20 * time.Second
)

// DefaultAdminSheet holds the admin username in A1 and password in A2.
const DefaultAdminSheet = "Settings"

// Admin is the singleton administrator identity.
type Admin struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// AttendanceRecord is one saved (student, date) status.
type AttendanceRecord struct {
	StudentID float64 `json:"studentId"`
	Date      string  `json:"date"`
	Status    string  `json:"status"`
}

// GradeEntry is one incoming score; a nil Score clears the grade.
type GradeEntry struct {
	StudentID any      `json:"studentId" validate:"required"`
	Score     *float64 `json:"score" validate:"omitempty,min=0,max=100"`
}
