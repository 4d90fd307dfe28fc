// Package tariff holds the fixed schedule of monthly dues per role for one
// event edition.
package tariff

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/wsjrdp/dues/internal/models"
)

// Row is the payment plan of one role.
type Row struct {
	// Total is the published total due. Zero means "not published"; the
	// row is then only checked for non-negative amounts.
	Total int64 `json:"total"`

	// Months holds the installment due in each month, in cents, indexed by
	// month offset from the program start. Roles with a shorter payment
	// horizon carry zeros at the end instead of a shorter slice.
	Months []int64 `json:"months"`
}

// Schedule maps each role to its payment plan.
type Schedule struct {
	// Start is the program start; month offset 0 is Start's month.
	Start time.Time
	Rows  map[models.Role]Row
}

// MonthlyDues returns a copy of the installments for role.
func (s *Schedule) MonthlyDues(role models.Role) ([]int64, error) {
	row, ok := s.Rows[role]
	if !ok {
		return nil, &models.ConfigurationError{
			Key:    "tariff." + role.String(),
			Reason: "no tariff row for role",
		}
	}
	out := make([]int64, len(row.Months))
	copy(out, row.Months)
	return out, nil
}

// TotalDue returns the sum of all installments for role.
func (s *Schedule) TotalDue(role models.Role) (int64, error) {
	months, err := s.MonthlyDues(role)
	if err != nil {
		return 0, err
	}
	return sum(months), nil
}

// DueThrough returns the cumulative dues for role from month 0 up to and
// including month. Negative months owe nothing; months past the end of the
// schedule owe the full total.
func (s *Schedule) DueThrough(role models.Role, month int) (int64, error) {
	return s.AgreedDueThrough(role, month, models.DuesAgreement{})
}

// AgreedDueThrough is DueThrough for a participant with a special agreement.
func (s *Schedule) AgreedDueThrough(role models.Role, month int, agreement models.DuesAgreement) (int64, error) {
	months, err := s.Installments(role, agreement)
	if err != nil {
		return 0, err
	}
	if month < 0 || len(months) == 0 {
		return 0, nil
	}
	if month >= len(months) {
		month = len(months) - 1
	}
	return sum(months[:month+1]), nil
}

// Installments returns the installments role owes under agreement. A fee
// reduction empties installments from the last one backwards. Early payers
// owe the reduced total at once, in the month of the first regular
// installment. The total never drops below zero.
func (s *Schedule) Installments(role models.Role, agreement models.DuesAgreement) ([]int64, error) {
	months, err := s.MonthlyDues(role)
	if err != nil {
		return nil, err
	}
	if agreement.FeeReductionCents < 0 {
		return nil, fmt.Errorf("negative fee reduction %d", agreement.FeeReductionCents)
	}

	if agreement.EarlyPayer {
		total := max(sum(months)-agreement.FeeReductionCents, 0)
		first := 0
		for i, amount := range months {
			if amount > 0 {
				first = i
				break
			}
		}
		single := make([]int64, len(months))
		if len(single) > 0 {
			single[first] = total
		}
		return single, nil
	}

	reduction := agreement.FeeReductionCents
	for i := len(months) - 1; i >= 0 && reduction > 0; i-- {
		cut := min(months[i], reduction)
		months[i] -= cut
		reduction -= cut
	}
	return months, nil
}

// Len returns the number of months in the schedule.
func (s *Schedule) Len() int {
	for _, row := range s.Rows {
		return len(row.Months)
	}
	return 0
}

// MonthOffset returns the month offset of at relative to the schedule start.
func (s *Schedule) MonthOffset(at time.Time) int {
	return MonthOffset(s.Start, at)
}

// Validate checks the schedule's invariants: every row has the same length,
// amounts are non-negative, and published totals match the installments.
func (s *Schedule) Validate() error {
	if len(s.Rows) == 0 {
		return &models.ConfigurationError{Key: "tariff", Reason: "schedule has no rows"}
	}
	if s.Start.IsZero() {
		return &models.ConfigurationError{Key: "tariff.start", Reason: "program start date missing"}
	}
	length := -1
	for role, row := range s.Rows {
		key := "tariff." + role.String()
		if !role.Valid() {
			return &models.ConfigurationError{Key: key, Reason: "unknown role"}
		}
		if length == -1 {
			length = len(row.Months)
		}
		if len(row.Months) != length {
			return &models.ConfigurationError{
				Key:    key,
				Reason: fmt.Sprintf("has %d months, expected %d", len(row.Months), length),
			}
		}
		for i, amount := range row.Months {
			if amount < 0 {
				return &models.ConfigurationError{
					Key:    key,
					Reason: fmt.Sprintf("negative installment in month %d", i),
				}
			}
		}
		if row.Total != 0 && sum(row.Months) != row.Total {
			return &models.ConfigurationError{
				Key:    key,
				Reason: fmt.Sprintf("installments sum to %d, published total is %d", sum(row.Months), row.Total),
			}
		}
	}
	return nil
}

// MonthOffset counts calendar months from start to at, ignoring days.
func MonthOffset(start, at time.Time) int {
	return (at.Year()*12 + int(at.Month())) - (start.Year()*12 + int(start.Month()))
}

type fileSchedule struct {
	Start string         `json:"start"`
	Roles map[string]Row `json:"roles"`
}

// Load reads an edition's schedule from a JSON file of the form
//
//	{"start": "2021-12-04", "roles": {"Participant": {"total": 410000, "months": [15000, ...]}}}
//
// Role keys may be short codes or database names.
func Load(path string) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.ConfigurationError{Key: "TARIFF_FILE", Reason: err.Error()}
	}

	var raw fileSchedule
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &models.ConfigurationError{Key: "TARIFF_FILE", Reason: fmt.Sprintf("failed to parse: %v", err)}
	}

	start, err := time.Parse("2006-01-02", raw.Start)
	if err != nil {
		return nil, &models.ConfigurationError{Key: "tariff.start", Reason: fmt.Sprintf("invalid date %q", raw.Start)}
	}

	s := &Schedule{Start: start, Rows: make(map[models.Role]Row, len(raw.Roles))}
	for name, row := range raw.Roles {
		role, err := models.ParseRole(name)
		if err != nil {
			return nil, &models.ConfigurationError{Key: "tariff." + name, Reason: err.Error()}
		}
		s.Rows[role] = row
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func sum(amounts []int64) int64 {
	var total int64
	for _, a := range amounts {
		total += a
	}
	return total
}
