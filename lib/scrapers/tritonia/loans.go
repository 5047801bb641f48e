package tritonia

import (
	"bytes"
	"regexp"
	"strconv"
	"time"
	"vamkhelp-backend/lib/htmlutil"
	"vamkhelp-backend/lib/scraper"
	"vamkhelp-backend/lib/timezone"

	"github.com/PuerkitoBio/goquery"
)

// DueDateLayout is how the account page renders due dates, always in
// Finnish local time.
const DueDateLayout = "02.01.2006 15:04:05"

// DueSoonWindow is how close to its due date a loan must be before an
// only-if-due renewal picks it up.
const DueSoonWindow = 48 * time.Hour

const accountPage = "tritonia account"

type Loan struct {
	// Token is the opaque value the renewal form expects for this loan,
	// it is only meaningful within the session that harvested it.
	Token    string    `json:"token"`
	Title    string    `json:"title"`
	Due      time.Time `json:"due"`
	Renewals int       `json:"renewals"`
}

func IsLoanDueSoon(loan Loan, now time.Time) bool {
	return loan.Due.Sub(now) < DueSoonWindow
}

var (
	loanRowClass = regexp.MustCompile(`resultListRow.*`)
	leadingCount = regexp.MustCompile(`\d+`)
)

func cellText(row *goquery.Selection, header string, index int) (string, error) {
	cell := row.Find("td[headers=" + header + "]").First()
	if cell.Length() == 0 {
		return "", scraper.Extraction(accountPage, "loan row %d has no %s cell", index, header)
	}
	text := htmlutil.Text(cell)
	if text == "" {
		return "", scraper.Extraction(accountPage, "loan row %d has an empty %s cell", index, header)
	}
	return text, nil
}

// ExtractLoans reads every loan row of an account page. A page with no loan
// rows yields an empty list, a row missing any of its fields fails the
// whole extraction.
func ExtractLoans(body []byte) ([]Loan, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, scraper.Extraction(accountPage, "parse html: %v", err)
	}

	var loans []Loan
	var extractErr error
	doc.Find("tr[class]").EachWithBreak(func(i int, row *goquery.Selection) bool {
		class, _ := row.Attr("class")
		if !loanRowClass.MatchString(class) {
			return true
		}

		index := len(loans)
		token, ok := row.Find("input").First().Attr("value")
		if !ok || token == "" {
			extractErr = scraper.Extraction(accountPage, "loan row %d has no renewal token", index)
			return false
		}
		title, err := cellText(row, "cellChargedItem", index)
		if err != nil {
			extractErr = err
			return false
		}
		dueText, err := cellText(row, "cellChargedDueDate", index)
		if err != nil {
			extractErr = err
			return false
		}
		due, err := timezone.Parse(DueDateLayout, dueText)
		if err != nil {
			extractErr = scraper.Extraction(accountPage, "loan row %d has malformed due date %q", index, dueText)
			return false
		}
		renewalsText, err := cellText(row, "cellChargedRenewals", index)
		if err != nil {
			extractErr = err
			return false
		}
		renewals, err := strconv.Atoi(leadingCount.FindString(renewalsText))
		if err != nil {
			extractErr = scraper.Extraction(accountPage, "loan row %d has malformed renewal count %q", index, renewalsText)
			return false
		}

		loans = append(loans, Loan{
			Token:    token,
			Title:    title,
			Due:      due,
			Renewals: renewals,
		})
		return true
	})
	if extractErr != nil {
		return nil, extractErr
	}
	if loans == nil {
		loans = []Loan{}
	}
	return loans, nil
}

// RenewalOutcome compares the submitted loans to the loans read back after
// the renewal. A loan counts as renewed when its renewal count went up or
// its due date moved later, the portal gives no other confirmation.
func RenewalOutcome(submitted, after []Loan) (renewed, unchanged []Loan) {
	byToken := make(map[string]Loan, len(after))
	for _, loan := range after {
		byToken[loan.Token] = loan
	}
	for _, loan := range submitted {
		current, ok := byToken[loan.Token]
		if ok && (current.Renewals > loan.Renewals || current.Due.After(loan.Due)) {
			renewed = append(renewed, current)
			continue
		}
		unchanged = append(unchanged, loan)
	}
	return renewed, unchanged
}
