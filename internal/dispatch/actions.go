package dispatch

import "sort"

// Action names accepted by the dispatch endpoint.
const (
	GetAdminCredentials           = "GET_ADMIN_CREDENTIALS"
	GetAllStudents                = "GET_ALL_STUDENTS"
	LoginAdmin                    = "LOGIN_ADMIN"
	LoginStudent                  = "LOGIN_STUDENT"
	RegisterStudent               = "REGISTER_STUDENT"
	GetReadAnnouncementsByStudent = "GET_READ_ANNOUNCEMENTS_BY_STUDENT"
	AddStudent                    = "ADD_STUDENT"
	AddTeacher                    = "ADD_TEACHER"
	AddSubject                    = "ADD_SUBJECT"
	AddAnnouncement               = "ADD_ANNOUNCEMENT"
	UpdateStudent                 = "UPDATE_STUDENT"
	UpdateTeacher                 = "UPDATE_TEACHER"
	UpdateSubject                 = "UPDATE_SUBJECT"
	UpdateAnnouncement            = "UPDATE_ANNOUNCEMENT"
	ApproveStudent                = "APPROVE_STUDENT"
	DeleteStudent                 = "DELETE_STUDENT"
	DeleteTeacher                 = "DELETE_TEACHER"
	DeleteSubject                 = "DELETE_SUBJECT"
	DeleteAnnouncement            = "DELETE_ANNOUNCEMENT"
	SaveAttendance                = "SAVE_ATTENDANCE"
	SaveGrades                    = "SAVE_GRADES"
	MarkAnnouncementsAsRead       = "MARK_ANNOUNCEMENTS_AS_READ"
)

// Info classifies an action.
type Info struct {
	// Write actions mutate the store and are published on the change feed.
	Write bool
	// Public actions are callable without a session.
	Public bool
	// Login actions return an identity or null.
	Login bool
}

var catalog = map[string]Info{
	GetAdminCredentials:           {},
	GetAllStudents:                {},
	LoginAdmin:                    {Public: true, Login: true},
	LoginStudent:                  {Public: true, Login: true},
	RegisterStudent:               {Write: true, Public: true},
	GetReadAnnouncementsByStudent: {},
	AddStudent:                    {Write: true},
	AddTeacher:                    {Write: true},
	AddSubject:                    {Write: true},
	AddAnnouncement:               {Write: true},
	UpdateStudent:                 {Write: true},
	UpdateTeacher:                 {Write: true},
	UpdateSubject:                 {Write: true},
	UpdateAnnouncement:            {Write: true},
	ApproveStudent:                {Write: true},
	DeleteStudent:                 {Write: true},
	DeleteTeacher:                 {Write: true},
	DeleteSubject:                 {Write: true},
	DeleteAnnouncement:            {Write: true},
	SaveAttendance:                {Write: true},
	SaveGrades:                    {Write: true},
	MarkAnnouncementsAsRead:       {Write: true},
}

// Lookup reports how action is classified and whether it exists.
func Lookup(action string) (Info, bool) {
	info, ok := catalog[action]
	return info, ok
}

// Actions lists every known action in lexical order.
func Actions() []string {
	out := make([]string, 0, len(catalog))
	for a := range catalog {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
