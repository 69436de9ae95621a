package utils

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/HSouheill/leadbridge_admin/models"
)

var (
	LeadCSVHeader     = []string{"Lead ID", "User ID", "Customer Name", "Mobile", "Email", "Bank ID", "Service ID", "Status", "Submission Date", "Earning Amount"}
	AgentCSVHeader    = []string{"UserID", "UniqueID", "FullName", "Mobile", "Email", "CreatedAt"}
	WithdrawCSVHeader = []string{"WithdrawRequestID", "UserID", "UserName", "UserEmail", "UserMobile", "Amount", "Status", "Date"}
)

// isoTime matches the millisecond UTC form browsers produce, e.g. 2024-03-01T10:00:00.000Z.
func isoTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func quoteField(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

// WriteLeadsCSV writes the lead export. Every data field is quoted with embedded quotes doubled.
func WriteLeadsCSV(w io.Writer, leads []models.Lead) error {
	var b strings.Builder
	b.WriteString(strings.Join(LeadCSVHeader, ","))
	for _, l := range leads {
		row := []string{
			l.ID,
			l.UserID,
			l.CustomerDetails.FullName,
			l.CustomerDetails.Mobile,
			l.CustomerDetails.Email,
			l.BankID,
			l.ServiceID,
			string(l.Status),
			isoTime(l.SubmissionDate),
			formatAmount(l.EarningAmount),
		}
		for i := range row {
			row[i] = quoteField(row[i])
		}
		b.WriteString("\n")
		b.WriteString(strings.Join(row, ","))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteAgentsCSV writes the agent export.
func WriteAgentsCSV(w io.Writer, agents []models.User) error {
	rows := make([][]string, 0, len(agents))
	for _, a := range agents {
		rows = append(rows, []string{a.ID, a.UniqueID, a.FullName, a.Mobile, a.Email, isoTime(a.CreatedAt)})
	}
	return writeCSV(w, AgentCSVHeader, rows)
}

// WriteWithdrawalsCSV writes the withdraw request export.
func WriteWithdrawalsCSV(w io.Writer, requests []models.WithdrawRequestView) error {
	rows := make([][]string, 0, len(requests))
	for _, r := range requests {
		rows = append(rows, []string{
			r.ID,
			r.UserID,
			r.UserName,
			r.UserEmail,
			r.UserMobile,
			formatAmount(r.Amount),
			string(r.Status),
			isoTime(r.Date),
		})
	}
	return writeCSV(w, WithdrawCSVHeader, rows)
}

// writeCSV quotes only fields that need it, so plain values come out comma-joined.
func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}
