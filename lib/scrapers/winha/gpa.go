package winha

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// GradeDistribution counts numerically graded courses per grade 0-5.
type GradeDistribution [6]int

type AcademicSummary struct {
	Gpa               float64           `json:"gpa"`
	GradeDistribution GradeDistribution `json:"grade_distribution"`
}

var numericGrade = regexp.MustCompile(`^\d+$`)

// ComputeGpa averages numeric grades weighted by credit. Failed courses
// (grade 0) show up in the distribution but not in the average, pass/fail
// grades are ignored. A student with no graded credit has a gpa of 0.
func ComputeGpa(courses []Course) (AcademicSummary, error) {
	var summary AcademicSummary
	var weighted, credits float64

	for _, c := range courses {
		if !numericGrade.MatchString(c.Grade) {
			continue
		}
		grade, err := strconv.Atoi(c.Grade)
		if err != nil || grade < 0 || grade >= len(summary.GradeDistribution) {
			return AcademicSummary{}, fmt.Errorf("course %q has grade %q outside 0-5", c.Name, c.Grade)
		}
		summary.GradeDistribution[grade]++
		if grade == 0 {
			continue
		}
		credits += c.Credit
		weighted += c.Credit * float64(grade)
	}

	if credits > 0 {
		summary.Gpa = math.Round(weighted/credits*1000) / 1000
	}
	return summary, nil
}

func CurrentCourses(courses []Course) []string {
	current := []string{}
	for _, c := range courses {
		if c.Status.Current() {
			current = append(current, c.Name)
		}
	}
	return current
}

// HistogramChanged reports whether any grade count differs, which is how
// new grades are noticed between crawls.
func HistogramChanged(previous, current GradeDistribution) bool {
	return previous != current
}
