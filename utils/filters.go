package utils

import (
	"strings"
	"time"

	"github.com/HSouheill/leadbridge_admin/models"
)

// LeadStatusFilters are the accepted values of the lead status filter.
var LeadStatusFilters = []string{"all", "new", "pending", "approved", "decline", "processing", "noAnswering", "expired"}

func ValidLeadStatusFilter(s string) bool {
	if s == "" {
		return true
	}
	for _, v := range LeadStatusFilters {
		if v == s {
			return true
		}
	}
	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

// FilterLeads keeps the leads matching f, preserving order. Status is matched against the
// derived view status, so "pending" excludes expired leads.
func FilterLeads(leads []models.Lead, f models.LeadFilter, now time.Time) []models.Lead {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]models.Lead, 0, len(leads))
	for _, l := range leads {
		if f.Status != "" && f.Status != "all" && l.ViewStatus(now) != f.Status {
			continue
		}
		if f.From != nil && l.SubmissionDate.Before(*f.From) {
			continue
		}
		if f.To != nil && l.SubmissionDate.After(*f.To) {
			continue
		}
		if q != "" &&
			!containsFold(l.ID, q) &&
			!containsFold(l.CustomerDetails.FullName, q) &&
			!containsFold(l.CustomerDetails.Mobile, q) &&
			!containsFold(l.CustomerDetails.Email, q) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// FilterAgents keeps agents whose name, mobile, email or uniqueID contains q.
func FilterAgents(agents []models.User, q string) []models.User {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return agents
	}
	out := make([]models.User, 0, len(agents))
	for _, a := range agents {
		if containsFold(a.FullName, q) || containsFold(a.Mobile, q) ||
			containsFold(a.Email, q) || containsFold(a.UniqueID, q) {
			out = append(out, a)
		}
	}
	return out
}

// FilterWithdrawals keeps requests matching status ("all" or empty matches everything) and q.
func FilterWithdrawals(requests []models.WithdrawRequestView, status, q string) []models.WithdrawRequestView {
	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]models.WithdrawRequestView, 0, len(requests))
	for _, r := range requests {
		if status != "" && status != "all" && string(r.Status) != status {
			continue
		}
		if q != "" && !containsFold(r.UserName, q) && !containsFold(r.UserEmail, q) &&
			!containsFold(r.UserMobile, q) && !containsFold(string(r.Status), q) {
			continue
		}
		out = append(out, r)
	}
	return out
}
