package calendar

import (
	"sort"
	"vamkhelp-backend/lib/textutil"

	"github.com/antzucaro/matchr"
)

// Suggestion is a table course name ranked by similarity to a query.
type Suggestion struct {
	Course     string
	Similarity float64
}

// Suggest ranks the table's course names by Jaro-Winkler similarity to
// `course`, at most `limit` suggestions are returned.
func (t Table) Suggest(course string, limit int) []Suggestion {
	query := textutil.NormalizeName(course)

	var out []Suggestion
	for name := range t {
		similarity := matchr.JaroWinkler(query, textutil.NormalizeName(name), false)
		if similarity <= 0 {
			continue
		}
		out = append(out, Suggestion{Course: name, Similarity: similarity})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity == out[j].Similarity {
			return out[i].Course < out[j].Course
		}
		return out[i].Similarity > out[j].Similarity
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Link pairs a course name as the records portal spells it with the
// table's name for the same course.
type Link struct {
	Course      string
	Calendar    string
	Correlation float64
}

// LinkCourses matches course names to table course names. Names equal after
// normalization link first with a correlation of 1, every remaining name is
// then linked to the most similar unclaimed table name if that similarity
// reaches `threshold`. Each table name is claimed at most once.
func (t Table) LinkCourses(courses []string, threshold float64) []Link {
	var result []Link
	claimed := make(map[string]struct{})
	linked := make(map[string]struct{})

	names := t.Courses()

	for _, course := range courses {
		for _, name := range names {
			if _, ok := claimed[name]; ok {
				continue
			}
			if textutil.SameName(course, name) {
				result = append(result, Link{Course: course, Calendar: name, Correlation: 1})
				claimed[name] = struct{}{}
				linked[course] = struct{}{}
				break
			}
		}
	}

	for _, course := range courses {
		if _, ok := linked[course]; ok {
			continue
		}

		var mostSimilarity float64
		var mostSimilarName string
		for _, name := range names {
			if _, ok := claimed[name]; ok {
				continue
			}
			similarity := matchr.JaroWinkler(textutil.NormalizeName(course), textutil.NormalizeName(name), false)
			if similarity > mostSimilarity {
				mostSimilarity = similarity
				mostSimilarName = name
			}
		}

		if mostSimilarity > 0 && mostSimilarity >= threshold {
			result = append(result, Link{Course: course, Calendar: mostSimilarName, Correlation: mostSimilarity})
			claimed[mostSimilarName] = struct{}{}
			linked[course] = struct{}{}
		}
	}

	return result
}
