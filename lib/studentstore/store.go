// Package studentstore persists one record per end user: sealed portal
// credentials, automation flags and the last crawled data.
package studentstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"vamkhelp-backend/lib/studentstore/db"
	"vamkhelp-backend/lib/timezone"
)

var ErrNotFound = errors.New("studentstore: student not found")

type Store struct {
	db  *sql.DB
	qry *db.Queries
}

func NewStore(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

// Student is a stored user. Passwords and PINs are stored exactly as given,
// callers seal them before Put. StudentData and CoursesCalendar are opaque
// JSON documents, nil when never saved.
type Student struct {
	UserKey string

	WinhaId       string
	WinhaPassword string

	TritoniaId       string
	TritoniaLastName string
	TritoniaPin      string

	StudentData     json.RawMessage
	CoursesCalendar json.RawMessage

	AutoWinha    bool
	AutoTritonia bool

	UpdatedAt time.Time
}

func boolInt(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func rawOrNil(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	return json.RawMessage(s)
}

func fromRow(row db.Student) Student {
	return Student{
		UserKey:          row.UserKey,
		WinhaId:          row.WinhaID,
		WinhaPassword:    row.WinhaPassword,
		TritoniaId:       row.TritoniaID,
		TritoniaLastName: row.TritoniaLastName,
		TritoniaPin:      row.TritoniaPin,
		StudentData:      rawOrNil(row.StudentData),
		CoursesCalendar:  rawOrNil(row.CoursesCalendar),
		AutoWinha:        row.AutoWinha != 0,
		AutoTritonia:     row.AutoTritonia != 0,
		UpdatedAt:        time.Unix(row.UpdatedAt, 0).In(timezone.Location),
	}
}

func (s Store) Get(ctx context.Context, userKey string) (Student, error) {
	row, err := s.qry.GetStudent(ctx, userKey)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, ErrNotFound
	}
	if err != nil {
		return Student{}, err
	}
	return fromRow(row), nil
}

// Put creates or replaces a student's credentials and flags, previously
// saved data and calendar are kept.
func (s Store) Put(ctx context.Context, student Student) error {
	if student.UserKey == "" {
		return fmt.Errorf("studentstore: empty user key")
	}
	return s.qry.UpsertStudent(ctx, db.UpsertStudentParams{
		UserKey:          student.UserKey,
		WinhaID:          student.WinhaId,
		WinhaPassword:    student.WinhaPassword,
		TritoniaID:       student.TritoniaId,
		TritoniaLastName: student.TritoniaLastName,
		TritoniaPin:      student.TritoniaPin,
		AutoWinha:        boolInt(student.AutoWinha),
		AutoTritonia:     boolInt(student.AutoTritonia),
		UpdatedAt:        timezone.Now().Unix(),
	})
}

func affectedOne(affected int64, err error) error {
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s Store) SaveStudentData(ctx context.Context, userKey string, data json.RawMessage) error {
	return affectedOne(s.qry.SetStudentData(ctx, db.SetStudentDataParams{
		StudentData: string(data),
		UpdatedAt:   timezone.Now().Unix(),
		UserKey:     userKey,
	}))
}

func (s Store) SaveCalendar(ctx context.Context, userKey string, events json.RawMessage) error {
	return affectedOne(s.qry.SetCoursesCalendar(ctx, db.SetCoursesCalendarParams{
		CoursesCalendar: string(events),
		UpdatedAt:       timezone.Now().Unix(),
		UserKey:         userKey,
	}))
}

func fromRows(rows []db.Student) []Student {
	out := make([]Student, len(rows))
	for i, r := range rows {
		out[i] = fromRow(r)
	}
	return out
}

func (s Store) ListAutoWinha(ctx context.Context) ([]Student, error) {
	rows, err := s.qry.ListAutoWinha(ctx)
	if err != nil {
		return nil, err
	}
	return fromRows(rows), nil
}

func (s Store) ListAutoTritonia(ctx context.Context) ([]Student, error) {
	rows, err := s.qry.ListAutoTritonia(ctx)
	if err != nil {
		return nil, err
	}
	return fromRows(rows), nil
}

func (s Store) Delete(ctx context.Context, userKey string) error {
	return s.qry.DeleteStudent(ctx, userKey)
}
