package calendar

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const fixtureTable = `{
	"Basics of Mathematical Software": {
		"I-EM-3N": [
			{"title": "Basics of Mathematical Software, I-EM-3N, A3006", "start": "2016-04-04T11:30Z", "end": "2016-04-04T14:15Z"},
			{"title": "Basics of Mathematical Software, I-EM-3N, A3006", "start": "2016-04-11T11:30Z", "end": "2016-04-11T14:15Z"}
		],
		"I-IT-3N": [
			{"title": "Basics of Mathematical Software, I-IT-3N, B2011", "start": "2016-04-05T08:15Z", "end": "2016-04-05T10:00Z"}
		]
	},
	"Operating Systems": {
		"I-IT-4N": [
			{"title": "Operating Systems, I-IT-4N, A2050", "start": "2016-04-06T06:15Z", "end": "2016-04-06T09:00Z"}
		]
	}
}`

func mustParse(t testing.TB) Table {
	table, err := Parse([]byte(fixtureTable))
	require.NoError(t, err)
	return table
}

func TestLookupEvents(t *testing.T) {
	table := mustParse(t)

	events := table.LookupEvents("Operating Systems", "I-IT-4N")
	require.Len(t, events, 1)
	require.Equal(t, "Operating Systems, I-IT-4N, A2050", events[0].Title)
	require.True(t, events[0].Start.Equal(time.Date(2016, 4, 6, 6, 15, 0, 0, time.UTC)))
	require.True(t, events[0].End.Equal(time.Date(2016, 4, 6, 9, 0, 0, 0, time.UTC)))

	unknownCourse := table.LookupEvents("Underwater Basket Weaving", "I-IT-4N")
	require.NotNil(t, unknownCourse)
	require.Empty(t, unknownCourse)
	require.Empty(t, table.LookupEvents("Operating Systems", "I-EM-3N"))
}

func TestLookupEventsReturnsCopy(t *testing.T) {
	table := mustParse(t)
	events := table.LookupEvents("Operating Systems", "I-IT-4N")
	events[0].Title = "changed"
	require.Equal(t, "Operating Systems, I-IT-4N, A2050", table.LookupEvents("Operating Systems", "I-IT-4N")[0].Title)
}

func TestGroupCodes(t *testing.T) {
	table := mustParse(t)
	codes := table.GroupCodes([]string{"Basics of Mathematical Software", "Operating Systems", "Swedish"})
	expected := map[string][]string{
		"Basics of Mathematical Software": {"I-EM-3N", "I-IT-3N"},
		"Operating Systems":               {"I-IT-4N"},
	}
	diff := cmp.Diff(expected, codes)
	if diff != "" {
		t.Fatal("unexpected group codes", diff)
	}
}

func TestMerge(t *testing.T) {
	table := mustParse(t)
	events := table.Merge([]Selection{
		{Course: "Operating Systems", Group: "I-IT-4N"},
		{Course: "Swedish", Group: "I-IT-4N"},
		{Course: "Basics of Mathematical Software", Group: "I-EM-3N"},
	})
	require.Len(t, events, 3)
	require.Equal(t, "Operating Systems, I-IT-4N, A2050", events[0].Title)
	require.True(t, events[2].Start.Equal(time.Date(2016, 4, 11, 11, 30, 0, 0, time.UTC)))

	require.NotNil(t, table.Merge(nil))
	require.Empty(t, table.Merge(nil))
}

func TestEventJson(t *testing.T) {
	helsinki, err := time.LoadLocation("Europe/Helsinki")
	require.NoError(t, err)

	event := Event{
		Title: "Operating Systems, I-IT-4N, A2050",
		Start: time.Date(2016, 4, 6, 9, 15, 0, 0, helsinki),
		End:   time.Date(2016, 4, 6, 12, 0, 0, 0, helsinki),
	}
	data, err := json.Marshal(event)
	require.NoError(t, err)
	require.JSONEq(t, `{"title": "Operating Systems, I-IT-4N, A2050", "start": "2016-04-06T06:15Z", "end": "2016-04-06T09:00Z"}`, string(data))

	var decoded Event
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.True(t, decoded.Start.Equal(event.Start))

	require.Error(t, json.Unmarshal([]byte(`{"title": "x", "start": "tomorrow", "end": "2016-04-06T09:00Z"}`), &decoded))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "courses.json")
	require.NoError(t, os.WriteFile(path, []byte(fixtureTable), 0644))

	table, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"Basics of Mathematical Software", "Operating Systems"}, table.Courses())

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	empty, err := Parse([]byte("null"))
	require.NoError(t, err)
	require.Empty(t, empty.LookupEvents("Operating Systems", "I-IT-4N"))
}

func TestSuggest(t *testing.T) {
	table := mustParse(t)

	suggestions := table.Suggest("operating system", 5)
	require.Len(t, suggestions, 2)
	require.Equal(t, "Operating Systems", suggestions[0].Course)
	require.Greater(t, suggestions[0].Similarity, suggestions[1].Similarity)

	require.Len(t, table.Suggest("operating system", 1), 1)
}

func TestLinkCourses(t *testing.T) {
	table := mustParse(t)

	links := table.LinkCourses([]string{
		"operating  systems",
		"Basics of Mathematical Softwar",
		"Underwater Basket Weaving",
	}, 0.9)
	require.Len(t, links, 2)
	require.Equal(t, Link{Course: "operating  systems", Calendar: "Operating Systems", Correlation: 1}, links[0])
	require.Equal(t, "Basics of Mathematical Softwar", links[1].Course)
	require.Equal(t, "Basics of Mathematical Software", links[1].Calendar)
	require.GreaterOrEqual(t, links[1].Correlation, 0.9)

	require.Empty(t, table.LinkCourses([]string{"Underwater Basket Weaving"}, 0.99))
}
