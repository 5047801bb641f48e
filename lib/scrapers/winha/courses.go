package winha

import (
	"regexp"
	"strconv"
	"strings"
	"vamkhelp-backend/lib/htmlutil"
	"vamkhelp-backend/lib/scraper"

	"github.com/PuerkitoBio/goquery"
)

const (
	coursesPage = "winha courses"
	courseLabel = "span, b"
)

type Status string

const (
	Enrolled           Status = "I"
	EnrollmentAccepted Status = "H"
	Completed          Status = "S"
	Failed             Status = "F"
	Interrupted        Status = "K"
)

func (s Status) String() string {
	switch s {
	case Enrolled:
		return "enrolled"
	case EnrollmentAccepted:
		return "enrollment accepted"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Interrupted:
		return "interrupted"
	}
	return string(s)
}

// Current reports courses the student is taking but has no grade for yet.
func (s Status) Current() bool {
	return s == Enrolled || s == EnrollmentAccepted
}

type Course struct {
	Name   string  `json:"name"`
	Credit float64 `json:"credit"`
	Status Status  `json:"status"`
	Grade  string  `json:"grade"`
}

// (credit unit / status / grade), eg. "(5,0 op / S / 4)"
var courseDetails = regexp.MustCompile(`^\(([\d,]+)\s*\S+\s*/\s*(\S+)\s*/\s*(\S+)\s*\)`)

// ParseCourseDetails splits the parenthesized details anchor of a course.
func ParseCourseDetails(details string) (credit float64, status Status, grade string, err error) {
	match := courseDetails.FindStringSubmatch(strings.TrimSpace(details))
	if match == nil {
		return 0, "", "", scraper.Extraction(coursesPage, "unrecognized course details %q", details)
	}
	credit, err = strconv.ParseFloat(strings.ReplaceAll(match[1], ",", "."), 64)
	if err != nil {
		return 0, "", "", scraper.Extraction(coursesPage, "malformed credit %q", match[1])
	}
	return credit, Status(match[2]), match[3], nil
}

// ExtractCourses reads every course of the "all courses" page, a course is
// a nobr holding a name and a details anchor.
//
// The portal nests the name in a second nobr. An html5 parser closes the
// outer nobr when the inner one opens, so that layout arrives as a label-only
// nobr followed by the course anchors as its siblings.
func ExtractCourses(doc *goquery.Document) ([]Course, error) {
	courses := []Course{}

	var extractErr error
	doc.Find("nobr").EachWithBreak(func(i int, nobr *goquery.Selection) bool {
		var name string
		anchors := nobr.Find("a")
		if anchors.Length() > 0 {
			label := nobr.ChildrenFiltered(courseLabel).First()
			if label.Length() > 0 {
				name = htmlutil.Text(label)
			} else {
				name = htmlutil.Text(anchors.First())
			}
		} else {
			name = htmlutil.Text(nobr)
			anchors = nobr.NextUntil("nobr").Filter("a")
			if name == "" || anchors.Length() == 0 {
				return true
			}
		}
		if name == "" {
			extractErr = scraper.Extraction(coursesPage, "course %d has no name", len(courses))
			return false
		}
		if anchors.Length() < 2 {
			extractErr = scraper.Extraction(coursesPage, "course %q has no details", name)
			return false
		}

		credit, status, grade, err := ParseCourseDetails(htmlutil.Text(anchors.Eq(1)))
		if err != nil {
			extractErr = err
			return false
		}
		courses = append(courses, Course{
			Name:   name,
			Credit: credit,
			Status: status,
			Grade:  grade,
		})
		return true
	})
	if extractErr != nil {
		return nil, extractErr
	}

	details := doc.Find("a").FilterFunction(func(_ int, a *goquery.Selection) bool {
		return courseDetails.MatchString(htmlutil.Text(a))
	}).Length()
	if details > len(courses) {
		return nil, scraper.Extraction(coursesPage, "page lists %d course details but %d courses were read", details, len(courses))
	}
	return courses, nil
}
