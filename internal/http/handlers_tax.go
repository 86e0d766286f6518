package http

import (
	"net/http"

	"maks/internal/tax"
)

type breakdownView struct {
	Gross       string `json:"gross"`
	SocialTax   string `json:"socialTax"`
	NonTaxable  string `json:"nonTaxable"`
	Relief      string `json:"relief"`
	TaxableBase string `json:"taxableBase"`
	IncomeTax   string `json:"incomeTax"`
	Net         string `json:"net"`
}

func newBreakdownView(b tax.Breakdown) breakdownView {
	return breakdownView{
		Gross:       euros(b.Gross),
		SocialTax:   euros(b.SocialTax),
		NonTaxable:  euros(b.NonTaxable),
		Relief:      euros(b.Relief),
		TaxableBase: euros(b.TaxableBase),
		IncomeTax:   euros(b.IncomeTax),
		Net:         euros(b.Net),
	}
}

// handleTaxNet converts ?gross= to net with the full breakdown.
// The tax endpoints need no session; they never touch the ledger.
func (s *Server) handleTaxNet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text := numberText(q.Get("gross"))
	gross, err := decimalField("gross", &text)
	if err != nil {
		s.writeError(w, r, "tax net", err)
		return
	}
	dependents, err := queryDependents(q)
	if err != nil {
		s.writeError(w, r, "tax net", err)
		return
	}
	writeJSON(w, http.StatusOK, newBreakdownView(tax.Compute(*gross, dependents, queryBool(q, "hasTaxBook"))))
}

// handleTaxGross solves ?net= back to the gross that yields it.
func (s *Server) handleTaxGross(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text := numberText(q.Get("net"))
	net, err := decimalField("net", &text)
	if err != nil {
		s.writeError(w, r, "tax gross", err)
		return
	}
	dependents, err := queryDependents(q)
	if err != nil {
		s.writeError(w, r, "tax gross", err)
		return
	}
	hasTaxBook := queryBool(q, "hasTaxBook")
	gross := tax.GrossFromNet(*net, dependents, hasTaxBook)
	writeJSON(w, http.StatusOK, map[string]any{
		"net":       euros(*net),
		"gross":     euros(gross),
		"breakdown": newBreakdownView(tax.Compute(gross, dependents, hasTaxBook)),
	})
}
