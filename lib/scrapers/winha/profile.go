package winha

import (
	"vamkhelp-backend/lib/htmlutil"
	"vamkhelp-backend/lib/scraper"

	"github.com/PuerkitoBio/goquery"
)

const profilePage = "winha profile"

type Profile struct {
	Id                 string   `json:"student_id"`
	Sex                string   `json:"sex"`
	Name               string   `json:"name"`
	Telephones         []string `json:"telephone"`
	DegreeProgramme    string   `json:"degree_programme"`
	EstimatedStudyTime string   `json:"estimated_study_time"`
	EnteringGroup      string   `json:"entering_group"`
	Groups             []string `json:"group"`
	Email              string   `json:"email"`
	Address            string   `json:"address"`
}

// profileFields maps row labels of the personal details page to the field
// they fill. Labels not listed here are ignored.
var profileFields = map[string]func(p *Profile, value string){
	// the portal shows the number without the "e" every login id starts with
	"Code":                 func(p *Profile, v string) { p.Id = "e" + v },
	"Sex":                  func(p *Profile, v string) { p.Sex = v },
	"Name":                 func(p *Profile, v string) { p.Name = v },
	"Degree Programme":     func(p *Profile, v string) { p.DegreeProgramme = v },
	"Estimated study time": func(p *Profile, v string) { p.EstimatedStudyTime = v },
	"Entering group":       func(p *Profile, v string) { p.EnteringGroup = v },
	"Group":                func(p *Profile, v string) { p.Groups = append(p.Groups, v) },
	"Own e-mail":           func(p *Profile, v string) { p.Email = v },
	"Current address":      func(p *Profile, v string) { p.Address = v },
	"Telephones": func(p *Profile, v string) {
		if v != "" {
			p.Telephones = append(p.Telephones, v)
		}
	},
}

// ExtractProfile reads the label/value rows of the personal details page.
// A row is labeled by its th, its value is the cell after its first td.
func ExtractProfile(doc *goquery.Document) (Profile, error) {
	profile := Profile{
		Telephones: []string{},
		Groups:     []string{},
	}

	var extractErr error
	doc.Find("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		th := row.Find("th").First()
		if th.Length() == 0 {
			return true
		}
		label, ok := htmlutil.SoleString(th.Get(0))
		if !ok {
			return true
		}
		assign, known := profileFields[htmlutil.Clean(label)]
		if !known {
			return true
		}

		cell := row.Find("td").First().Next()
		if cell.Length() == 0 {
			extractErr = scraper.Extraction(profilePage, "row %q has no value cell", htmlutil.Clean(label))
			return false
		}
		value, _ := htmlutil.SoleString(cell.Get(0))
		assign(&profile, htmlutil.Clean(value))
		return true
	})
	if extractErr != nil {
		return Profile{}, extractErr
	}
	return profile, nil
}
