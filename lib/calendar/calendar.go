// Package calendar serves course events out of the pre-generated calendar
// table (course name -> group code -> events).
package calendar

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
	devenv "vamkhelp-backend/dev/env"
)

// TimeLayout is the minute precision UTC form the table stores, eg.
// "2016-04-04T11:30Z".
const TimeLayout = "2006-01-02T15:04Z07:00"

type Event struct {
	Title string
	Start time.Time
	End   time.Time
}

type eventJson struct {
	Title string `json:"title"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventJson{
		Title: e.Title,
		Start: e.Start.UTC().Format(TimeLayout),
		End:   e.End.UTC().Format(TimeLayout),
	})
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var raw eventJson
	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}
	start, err := time.Parse(TimeLayout, raw.Start)
	if err != nil {
		return fmt.Errorf("event %q: start: %w", raw.Title, err)
	}
	end, err := time.Parse(TimeLayout, raw.End)
	if err != nil {
		return fmt.Errorf("event %q: end: %w", raw.Title, err)
	}
	*e = Event{Title: raw.Title, Start: start, End: end}
	return nil
}

// Table is the read-only calendar table, it is safe for concurrent reads.
type Table map[string]map[string][]Event

func Parse(data []byte) (Table, error) {
	var table Table
	err := json.Unmarshal(data, &table)
	if err != nil {
		return nil, fmt.Errorf("parse calendar table: %w", err)
	}
	if table == nil {
		table = Table{}
	}
	return table, nil
}

func Load(path string) (Table, error) {
	resolved, err := devenv.ResolvePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("read calendar table: %w", err)
	}
	return Parse(data)
}

// LookupEvents returns the events of one course group, an unknown course
// or group yields an empty list.
func (t Table) LookupEvents(course, group string) []Event {
	events := t[course][group]
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// Courses lists every course name in the table, sorted.
func (t Table) Courses() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GroupCodes returns the sorted group codes of each given course that the
// table knows, courses missing from the table are left out.
func (t Table) GroupCodes(courses []string) map[string][]string {
	out := make(map[string][]string)
	for _, course := range courses {
		groups, ok := t[course]
		if !ok {
			continue
		}
		codes := make([]string, 0, len(groups))
		for code := range groups {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		out[course] = codes
	}
	return out
}

// Selection is one course group a student attends.
type Selection struct {
	Course string `json:"course_name"`
	Group  string `json:"group_code"`
}

// Merge concatenates the events of every selection in selection order.
func (t Table) Merge(selections []Selection) []Event {
	events := []Event{}
	for _, s := range selections {
		events = append(events, t[s.Course][s.Group]...)
	}
	return events
}
