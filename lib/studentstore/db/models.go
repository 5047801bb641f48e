package db

type Student struct {
	UserKey          string
	WinhaID          string
	WinhaPassword    string
	TritoniaID       string
	TritoniaLastName string
	TritoniaPin      string
	StudentData      string
	CoursesCalendar  string
	AutoWinha        int64
	AutoTritonia     int64
	UpdatedAt        int64
}
