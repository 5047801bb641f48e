package portaltest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type WinhaCourse struct {
	Name string
	// Credit is written the way the portal does, eg. "5,0".
	Credit string
	Status string
	Grade  string
	// NestedLabel renders the name in a nobr nested in the course's nobr,
	// the way the portal marks up courses with a separate course code.
	NestedLabel bool
}

type WinhaAccount struct {
	// StudentId is the login id, eg. "e1234567".
	StudentId string
	Password  string
	Name      string
	Group     string
	Courses   []WinhaCourse
}

type WinhaPortal struct {
	URL string

	mutex    sync.Mutex
	accounts map[string]*WinhaAccount
}

func NewWinhaPortal(t testing.TB, accounts ...WinhaAccount) *WinhaPortal {
	p := &WinhaPortal{accounts: make(map[string]*WinhaAccount)}
	for i := range accounts {
		account := accounts[i]
		p.accounts[account.StudentId] = &account
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/wille/elogon.asp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			fmt.Fprint(w, "<html>logon</html>")
			return
		}
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		p.mutex.Lock()
		defer p.mutex.Unlock()
		account, ok := p.accounts[r.PostForm.Get("dfUsernameHidden")]
		if ok && account.Password == r.PostForm.Get("dfPasswordHidden") {
			http.SetCookie(w, &http.Cookie{Name: "WINHA", Value: account.StudentId, Path: "/"})
		}
	})
	mux.HandleFunc("/wille/emainval.asp", p.authorized(func(w http.ResponseWriter, r *http.Request, account *WinhaAccount) {
		fmt.Fprint(w, "<html>ok</html>")
	}))
	mux.HandleFunc("/wille/ehopssis.asp", p.authorized(p.handleCourses))
	mux.HandleFunc("/wille/eHenkilo.asp", p.authorized(p.handleProfile))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	p.URL = server.URL
	return p
}

func (p *WinhaPortal) authorized(next func(http.ResponseWriter, *http.Request, *WinhaAccount)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p.mutex.Lock()
		defer p.mutex.Unlock()
		cookie, err := r.Cookie("WINHA")
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		account, ok := p.accounts[cookie.Value]
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		next(w, r, account)
	}
}

func (p *WinhaPortal) handleCourses(w http.ResponseWriter, r *http.Request, account *WinhaAccount) {
	if r.URL.Query().Get("Opinto") != "Kaikki" {
		fmt.Fprint(w, "<html>study plan</html>")
		return
	}
	var items []string
	for i, c := range account.Courses {
		details := fmt.Sprintf(`<a href="#">(%s op / %s / %s)</a>`, c.Credit, c.Status, c.Grade)
		if c.NestedLabel {
			items = append(items, fmt.Sprintf(
				`<nobr><nobr>%s</nobr> <a href="#">C%03d</a> %s</nobr>`,
				c.Name, i+1, details,
			))
			continue
		}
		items = append(items, fmt.Sprintf(`<nobr><a href="#">%s</a> %s</nobr>`, c.Name, details))
	}
	fmt.Fprintf(w, "<html><body>%s</body></html>", strings.Join(items, "<br>"))
}

func (p *WinhaPortal) handleProfile(w http.ResponseWriter, r *http.Request, account *WinhaAccount) {
	fmt.Fprintf(w, `<html><body><table>
<tr><th>Code</th><td>:</td><td>%s</td></tr>
<tr><th>Name</th><td>:</td><td>%s</td></tr>
<tr><th>Group</th><td>:</td><td>%s</td></tr>
</table></body></html>`, strings.TrimPrefix(account.StudentId, "e"), account.Name, account.Group)
}

// SetCourses replaces an account's course list, eg. to publish a grade.
func (p *WinhaPortal) SetCourses(studentId string, courses []WinhaCourse) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.accounts[studentId].Courses = courses
}
