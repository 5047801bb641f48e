package winha

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"vamkhelp-backend/lib/scraper"
	"vamkhelp-backend/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const profileHtml = `<html><body><table>
<tr><td colspan="3">Personal details</td></tr>
<tr>
	<th>Code</th>
	<td>:</td>
	<td>1234567</td>
</tr>
<tr><th>Sex</th><td>:</td><td>Female</td></tr>
<tr><th>Name</th><td>:</td><td>Virtanen Aino</td></tr>
<tr><th>Telephones</th><td>:</td><td>040 1234567</td></tr>
<tr><th>Telephones</th><td>:</td><td></td></tr>
<tr><th>Degree Programme</th><td>:</td><td>Information Technology</td></tr>
<tr><th>Estimated study time</th><td>:</td><td>4 years</td></tr>
<tr><th>Entering group</th><td>:</td><td>I-IT-4N</td></tr>
<tr><th>Group</th><td>:</td><td>I-IT-4N</td></tr>
<tr><th>Group</th><td>:</td><td>IT-ENG</td></tr>
<tr><th>Own e-mail</th><td>:</td><td>aino@example.com</td></tr>
<tr><th>Current address</th><td>:</td><td>Wolffintie 30, Vaasa</td></tr>
<tr><th>Hobbies</th><td>:</td><td>ignored</td></tr>
</table></body></html>`

type courseLayout int

const (
	plainLayout courseLayout = iota
	// the portal's layout, the name sits in a nobr nested in the course's nobr
	nestedNobrLayout
	spanLabelLayout
)

func courseNobr(name, details string, layout courseLayout) string {
	switch layout {
	case nestedNobrLayout:
		return fmt.Sprintf(`<nobr><nobr>%s</nobr> <a href="#">IT00AB12</a> <a href="#">%s</a></nobr>`, name, details)
	case spanLabelLayout:
		return fmt.Sprintf(`<nobr><a href="#">IT00AB12</a> <span>%s</span> <a href="#">%s</a></nobr>`, name, details)
	}
	return fmt.Sprintf(`<nobr><a href="#">%s</a> <a href="#">%s</a></nobr>`, name, details)
}

func coursesHtml(items ...string) string {
	return `<html><body><nobr>Legend</nobr>` + strings.Join(items, "<br>") + `</body></html>`
}

var fixtureCourses = coursesHtml(
	courseNobr("Programming Basics", "(5,0 op / S / 5)", plainLayout),
	courseNobr("Databases", "(3,0 op / S / 3)", nestedNobrLayout),
	courseNobr("Swedish", "(1,5 op / S / H)", spanLabelLayout),
	courseNobr("Physics", "(2,0 op / S / 0)", plainLayout),
	courseNobr("Operating Systems", "(5,0 op / I / -)", nestedNobrLayout),
	courseNobr("Networks", "(4,0 op / H / -)", plainLayout),
)

func mustDocument(t testing.TB, page string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	return doc
}

func TestExtractProfile(t *testing.T) {
	profile, err := ExtractProfile(mustDocument(t, profileHtml))
	require.NoError(t, err)

	expected := Profile{
		Id:                 "e1234567",
		Sex:                "Female",
		Name:               "Virtanen Aino",
		Telephones:         []string{"040 1234567"},
		DegreeProgramme:    "Information Technology",
		EstimatedStudyTime: "4 years",
		EnteringGroup:      "I-IT-4N",
		Groups:             []string{"I-IT-4N", "IT-ENG"},
		Email:              "aino@example.com",
		Address:            "Wolffintie 30, Vaasa",
	}
	diff := cmp.Diff(expected, profile)
	if diff != "" {
		t.Fatal("unexpected profile", diff)
	}
}

func TestExtractProfileMissingValue(t *testing.T) {
	_, err := ExtractProfile(mustDocument(t, `<table><tr><th>Name</th><td>:</td></tr></table>`))
	require.True(t, scraper.IsExtractionError(err))
}

func TestExtractCourses(t *testing.T) {
	courses, err := ExtractCourses(mustDocument(t, fixtureCourses))
	require.NoError(t, err)

	expected := []Course{
		{Name: "Programming Basics", Credit: 5, Status: Completed, Grade: "5"},
		{Name: "Databases", Credit: 3, Status: Completed, Grade: "3"},
		{Name: "Swedish", Credit: 1.5, Status: Completed, Grade: "H"},
		{Name: "Physics", Credit: 2, Status: Completed, Grade: "0"},
		{Name: "Operating Systems", Credit: 5, Status: Enrolled, Grade: "-"},
		{Name: "Networks", Credit: 4, Status: EnrollmentAccepted, Grade: "-"},
	}
	diff := cmp.Diff(expected, courses)
	if diff != "" {
		t.Fatal("unexpected courses", diff)
	}
}

func TestExtractCoursesNestedNobr(t *testing.T) {
	page := `<html><body><nobr><nobr>Databases</nobr> <a href="#">IT00AB12</a> <a href="#">(3,0 op / S / 3)</a></nobr></body></html>`
	courses, err := ExtractCourses(mustDocument(t, page))
	require.NoError(t, err)
	require.Equal(t, []Course{{Name: "Databases", Credit: 3, Status: Completed, Grade: "3"}}, courses)
}

func TestExtractCoursesMalformed(t *testing.T) {
	table := []string{
		coursesHtml(courseNobr("Programming Basics", "5 op, passed", plainLayout)),
		coursesHtml(`<nobr><a href="#">Lonely anchor</a></nobr>`),
		coursesHtml(courseNobr("Databases", "(3,0 op / S / 3)", plainLayout), `<p><a href="#">(5,0 op / S / 4)</a></p>`),
		`<html><body><a href="#">IT00AB12</a> <a href="#">(3,0 op / S / 3)</a></body></html>`,
	}
	for _, page := range table {
		_, err := ExtractCourses(mustDocument(t, page))
		require.True(t, scraper.IsExtractionError(err), page)
	}
}

func TestParseCourseDetails(t *testing.T) {
	credit, status, grade, err := ParseCourseDetails("(5,0 op / S / 5)")
	require.NoError(t, err)
	require.Equal(t, 5.0, credit)
	require.Equal(t, Completed, status)
	require.Equal(t, "5", grade)

	credit, status, grade, err = ParseCourseDetails("(12,5op/I/-)")
	require.NoError(t, err)
	require.Equal(t, 12.5, credit)
	require.Equal(t, Enrolled, status)
	require.Equal(t, "-", grade)
}

func TestComputeGpa(t *testing.T) {
	courses, err := ExtractCourses(mustDocument(t, fixtureCourses))
	require.NoError(t, err)

	summary, err := ComputeGpa(courses)
	require.NoError(t, err)
	// (5*5 + 3*3) / 8
	require.Equal(t, 4.25, summary.Gpa)
	require.Equal(t, GradeDistribution{1, 0, 0, 1, 0, 1}, summary.GradeDistribution)
	require.GreaterOrEqual(t, summary.Gpa, 0.0)
	require.LessOrEqual(t, summary.Gpa, 5.0)
}

func TestComputeGpaWithinGradeRange(t *testing.T) {
	table := [][]Course{
		{{Name: "a", Credit: 5, Grade: "1"}},
		{{Name: "a", Credit: 5, Grade: "5"}},
		{{Name: "a", Credit: 0.5, Grade: "1"}, {Name: "b", Credit: 30, Grade: "5"}},
		{{Name: "a", Credit: 30, Grade: "1"}, {Name: "b", Credit: 0.5, Grade: "5"}},
		{{Name: "a", Credit: 1.5, Grade: "2"}, {Name: "b", Credit: 2, Grade: "3"}, {Name: "c", Credit: 3, Grade: "4"}},
	}

	random := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		var courses []Course
		for j := random.Intn(20) + 1; j > 0; j-- {
			courses = append(courses, Course{
				Name:   fmt.Sprint("course ", j),
				Credit: float64(random.Intn(30)+1) / 2,
				Grade:  strconv.Itoa(random.Intn(5) + 1),
			})
		}
		table = append(table, courses)
	}

	for _, courses := range table {
		lowest, highest := 5, 1
		for _, c := range courses {
			grade, err := strconv.Atoi(c.Grade)
			require.NoError(t, err)
			lowest = min(lowest, grade)
			highest = max(highest, grade)
		}

		summary, err := ComputeGpa(courses)
		require.NoError(t, err)
		require.GreaterOrEqual(t, summary.Gpa, float64(lowest), courses)
		require.LessOrEqual(t, summary.Gpa, float64(highest), courses)
		require.GreaterOrEqual(t, summary.Gpa, 1.0)
		require.LessOrEqual(t, summary.Gpa, 5.0)
	}
}

func TestComputeGpaRounding(t *testing.T) {
	summary, err := ComputeGpa([]Course{
		{Name: "a", Credit: 1, Grade: "5"},
		{Name: "b", Credit: 2, Grade: "4"},
	})
	require.NoError(t, err)
	require.Equal(t, 4.333, summary.Gpa)
}

func TestComputeGpaOnlyFailed(t *testing.T) {
	summary, err := ComputeGpa([]Course{
		{Name: "a", Credit: 5, Grade: "0"},
		{Name: "b", Credit: 5, Grade: "H"},
	})
	require.NoError(t, err)
	require.Equal(t, 0.0, summary.Gpa)
	require.Equal(t, GradeDistribution{1, 0, 0, 0, 0, 0}, summary.GradeDistribution)

	summary, err = ComputeGpa(nil)
	require.NoError(t, err)
	require.Equal(t, AcademicSummary{}, summary)
}

func TestComputeGpaOutOfRange(t *testing.T) {
	_, err := ComputeGpa([]Course{{Name: "a", Credit: 5, Grade: "7"}})
	require.Error(t, err)
}

func TestCurrentCourses(t *testing.T) {
	courses, err := ExtractCourses(mustDocument(t, fixtureCourses))
	require.NoError(t, err)
	require.Equal(t, []string{"Operating Systems", "Networks"}, CurrentCourses(courses))
	require.Empty(t, CurrentCourses(nil))
}

func TestHistogramChanged(t *testing.T) {
	require.False(t, HistogramChanged(GradeDistribution{1, 2}, GradeDistribution{1, 2}))
	require.True(t, HistogramChanged(GradeDistribution{1, 2}, GradeDistribution{1, 2, 1}))
}

func serveWinha(t testing.TB, password string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/wille/elogon.asp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if err := r.ParseForm(); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if r.PostForm.Get("dfPasswordHidden") == password {
				http.SetCookie(w, &http.Cookie{Name: "ASPSESSION", Value: r.PostForm.Get("dfUsernameHidden"), Path: "/"})
			}
			return
		}
		fmt.Fprint(w, "<html>logon</html>")
	})
	authorized := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if _, err := r.Cookie("ASPSESSION"); err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			next(w, r)
		}
	}
	var touched atomic.Bool
	mux.HandleFunc("/wille/emainval.asp", authorized(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>ok</html>")
	}))
	mux.HandleFunc("/wille/ehopssis.asp", authorized(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("Opinto") != "Kaikki" {
			touched.Store(true)
			fmt.Fprint(w, "<html>study plan</html>")
			return
		}
		if !touched.Load() {
			fmt.Fprint(w, coursesHtml())
			return
		}
		fmt.Fprint(w, fixtureCourses)
	}))
	mux.HandleFunc("/wille/eHenkilo.asp", authorized(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, profileHtml)
	}))
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testUrls(base string) Urls {
	return Urls{
		Logon:        base + "/wille/elogon.asp",
		LoginSubmit:  base + "/wille/elogon.asp?dfUsername?dfPassword?dfUsernameHuoltaja",
		Validate:     base + "/wille/emainval.asp",
		CoursesTouch: base + "/wille/ehopssis.asp",
		CoursesAll:   base + "/wille/ehopssis.asp?Opinto=Kaikki&ID=0",
		Profile:      base + "/wille/eHenkilo.asp",
	}
}

func TestLoginWrongPassword(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:winha")
	defer cleanup()

	server := serveWinha(t, "secret")
	session, err := NewSession(Credentials{StudentId: "e1234567", Password: "wrong"}, Options{
		Urls: testUrls(server.URL),
	})
	require.NoError(t, err)

	ok, err := session.Login(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, scraper.LoginFailed, session.State())

	_, err = session.FetchAll(context.Background())
	require.ErrorIs(t, err, scraper.ErrNotAuthenticated)
}

func TestFetchAll(t *testing.T) {
	server := serveWinha(t, "secret")
	session, err := NewSession(Credentials{StudentId: "e1234567", Password: "secret"}, Options{
		Urls: testUrls(server.URL),
	})
	require.NoError(t, err)

	ok, err := session.Login(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	summary, err := session.FetchAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, "e1234567", summary.Id)
	require.Equal(t, "Virtanen Aino", summary.Name)
	require.Len(t, summary.Courses, 6)
	require.Equal(t, 4.25, summary.Gpa)
	require.Equal(t, []string{"Operating Systems", "Networks"}, summary.CurrentCourses)
}

func TestDefaultUrls(t *testing.T) {
	session, err := NewSession(Credentials{}, Options{})
	require.NoError(t, err)
	require.Equal(t, DefaultUrls(), session.urls)
}
