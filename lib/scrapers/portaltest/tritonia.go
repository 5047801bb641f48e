// Package portaltest serves fake Tritonia and Winha portals over httptest
// for tests of code that crawls them.
package portaltest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"vamkhelp-backend/lib/timezone"
)

const TritoniaLoginPage = `<html><head><title>Kirjaudu sis&auml;&auml;n</title></head><body></body></html>`

type TritoniaLoan struct {
	Token    string
	Title    string
	Due      time.Time
	Renewals int
}

type TritoniaAccount struct {
	LoginId  string
	LastName string
	Pin      string
	Loans    []TritoniaLoan
}

// TritoniaPortal keeps one session per cookie value, the cookie is the
// login id of the account it was issued for.
type TritoniaPortal struct {
	URL string

	mutex    sync.Mutex
	accounts map[string]*TritoniaAccount
	renewals map[string][][]string
}

func NewTritoniaPortal(t testing.TB, accounts ...TritoniaAccount) *TritoniaPortal {
	p := &TritoniaPortal{
		accounts: make(map[string]*TritoniaAccount),
		renewals: make(map[string][][]string),
	}
	for i := range accounts {
		account := accounts[i]
		p.accounts[account.LoginId] = &account
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/vwebv/login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, TritoniaLoginPage)
	})
	mux.HandleFunc("/vwebv/login.do", p.handleLogin)
	mux.HandleFunc("/vwebv/myAccount", p.handleAccount)
	mux.HandleFunc("/vwebv/myAccountUpd", p.handleRenewal)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	p.URL = server.URL
	return p
}

func (p *TritoniaPortal) session(r *http.Request) *TritoniaAccount {
	cookie, err := r.Cookie("TRITONIA")
	if err != nil {
		return nil
	}
	return p.accounts[cookie.Value]
}

func (p *TritoniaPortal) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	account, ok := p.accounts[r.PostForm.Get("loginId")]
	if ok && account.LastName == r.PostForm.Get("lastName") && account.Pin == r.PostForm.Get("pin") {
		http.SetCookie(w, &http.Cookie{Name: "TRITONIA", Value: account.LoginId, Path: "/"})
	}
	fmt.Fprint(w, "<html></html>")
}

func (p *TritoniaPortal) handleAccount(w http.ResponseWriter, r *http.Request) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	account := p.session(r)
	if account == nil {
		fmt.Fprint(w, TritoniaLoginPage)
		return
	}
	var rows strings.Builder
	for _, loan := range account.Loans {
		fmt.Fprintf(&rows, `<tr class="resultListRow">
	<td><input type="checkbox" name="selectCharged" value="%s"></td>
	<td headers="cellChargedItem">%s</td>
	<td headers="cellChargedDueDate">%s</td>
	<td headers="cellChargedRenewals">%d</td>
</tr>`, loan.Token, loan.Title, loan.Due.In(timezone.Location).Format("02.01.2006 15:04:05"), loan.Renewals)
	}
	fmt.Fprintf(w, `<html><head><title>Oma tili</title></head><body><table>%s</table></body></html>`, rows.String())
}

func (p *TritoniaPortal) handleRenewal(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	account := p.session(r)
	if account == nil {
		fmt.Fprint(w, TritoniaLoginPage)
		return
	}
	tokens := r.PostForm["selectCharged"]
	p.renewals[account.LoginId] = append(p.renewals[account.LoginId], tokens)
	for _, token := range tokens {
		for i := range account.Loans {
			if account.Loans[i].Token == token {
				account.Loans[i].Renewals++
				account.Loans[i].Due = account.Loans[i].Due.AddDate(0, 0, 14)
			}
		}
	}
	fmt.Fprint(w, "<html></html>")
}

// Renewals returns the tokens of every renewal request an account made.
func (p *TritoniaPortal) Renewals(loginId string) [][]string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.renewals[loginId]
}
