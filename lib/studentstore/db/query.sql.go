// source: query.sql

package db

import (
	"context"
)

const studentColumns = `user_key, winha_id, winha_password, tritonia_id, tritonia_last_name, tritonia_pin, student_data, courses_calendar, auto_winha, auto_tritonia, updated_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanStudent(row scanner) (Student, error) {
	var i Student
	err := row.Scan(
		&i.UserKey,
		&i.WinhaID,
		&i.WinhaPassword,
		&i.TritoniaID,
		&i.TritoniaLastName,
		&i.TritoniaPin,
		&i.StudentData,
		&i.CoursesCalendar,
		&i.AutoWinha,
		&i.AutoTritonia,
		&i.UpdatedAt,
	)
	return i, err
}

const getStudent = `-- name: GetStudent :one
select ` + studentColumns + ` from Student where user_key = ?
`

func (q *Queries) GetStudent(ctx context.Context, userKey string) (Student, error) {
	row := q.db.QueryRowContext(ctx, getStudent, userKey)
	return scanStudent(row)
}

const upsertStudent = `-- name: UpsertStudent :exec
insert into Student(
    user_key, winha_id, winha_password,
    tritonia_id, tritonia_last_name, tritonia_pin,
    auto_winha, auto_tritonia, updated_at
) values (?, ?, ?, ?, ?, ?, ?, ?, ?)
on conflict (user_key) do update set
    winha_id = excluded.winha_id,
    winha_password = excluded.winha_password,
    tritonia_id = excluded.tritonia_id,
    tritonia_last_name = excluded.tritonia_last_name,
    tritonia_pin = excluded.tritonia_pin,
    auto_winha = excluded.auto_winha,
    auto_tritonia = excluded.auto_tritonia,
    updated_at = excluded.updated_at
`

type UpsertStudentParams struct {
	UserKey          string
	WinhaID          string
	WinhaPassword    string
	TritoniaID       string
	TritoniaLastName string
	TritoniaPin      string
	AutoWinha        int64
	AutoTritonia     int64
	UpdatedAt        int64
}

func (q *Queries) UpsertStudent(ctx context.Context, arg UpsertStudentParams) error {
	_, err := q.db.ExecContext(ctx, upsertStudent,
		arg.UserKey,
		arg.WinhaID,
		arg.WinhaPassword,
		arg.TritoniaID,
		arg.TritoniaLastName,
		arg.TritoniaPin,
		arg.AutoWinha,
		arg.AutoTritonia,
		arg.UpdatedAt,
	)
	return err
}

const setStudentData = `-- name: SetStudentData :execrows
update Student set student_data = ?, updated_at = ? where user_key = ?
`

type SetStudentDataParams struct {
	StudentData string
	UpdatedAt   int64
	UserKey     string
}

func (q *Queries) SetStudentData(ctx context.Context, arg SetStudentDataParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, setStudentData, arg.StudentData, arg.UpdatedAt, arg.UserKey)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const setCoursesCalendar = `-- name: SetCoursesCalendar :execrows
update Student set courses_calendar = ?, updated_at = ? where user_key = ?
`

type SetCoursesCalendarParams struct {
	CoursesCalendar string
	UpdatedAt       int64
	UserKey         string
}

func (q *Queries) SetCoursesCalendar(ctx context.Context, arg SetCoursesCalendarParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, setCoursesCalendar, arg.CoursesCalendar, arg.UpdatedAt, arg.UserKey)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (q *Queries) listStudents(ctx context.Context, query string) ([]Student, error) {
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Student
	for rows.Next() {
		i, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listAutoWinha = `-- name: ListAutoWinha :many
select ` + studentColumns + ` from Student where auto_winha = 1 order by user_key
`

func (q *Queries) ListAutoWinha(ctx context.Context) ([]Student, error) {
	return q.listStudents(ctx, listAutoWinha)
}

const listAutoTritonia = `-- name: ListAutoTritonia :many
select ` + studentColumns + ` from Student where auto_tritonia = 1 order by user_key
`

func (q *Queries) ListAutoTritonia(ctx context.Context) ([]Student, error) {
	return q.listStudents(ctx, listAutoTritonia)
}

const deleteStudent = `-- name: DeleteStudent :exec
delete from Student where user_key = ?
`

func (q *Queries) DeleteStudent(ctx context.Context, userKey string) error {
	_, err := q.db.ExecContext(ctx, deleteStudent, userKey)
	return err
}
