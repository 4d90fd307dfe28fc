package tariff

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wsjrdp/dues/internal/models"
)

func TestDefaultScheduleIsValid(t *testing.T) {
	s := Default()
	require.NoError(t, s.Validate())
	assert.Equal(t, 18, s.Len())

	totals := map[models.Role]int64{
		models.RoleParticipant:    410000,
		models.RoleUnitLead:       325000,
		models.RoleStaff:          165000,
		models.RoleContingentTeam: 130000,
	}
	for role, want := range totals {
		got, err := s.TotalDue(role)
		require.NoError(t, err)
		assert.Equal(t, want, got, role.String())
	}
}

func TestTotalDueEqualsSumOfMonthlyDues(t *testing.T) {
	s := Default()
	for _, role := range models.AllRoles() {
		months, err := s.MonthlyDues(role)
		require.NoError(t, err)

		var sum int64
		for _, m := range months {
			sum += m
		}
		total, err := s.TotalDue(role)
		require.NoError(t, err)
		assert.Equal(t, sum, total, role.String())
	}
}

func TestDueThrough(t *testing.T) {
	s := Default()

	tests := []struct {
		name  string
		role  models.Role
		month int
		want  int64
	}{
		{name: "before start owes nothing", role: models.RoleParticipant, month: -1, want: 0},
		{name: "first month", role: models.RoleParticipant, month: 0, want: 15000},
		{name: "first fourteen installments", role: models.RoleParticipant, month: 13, want: 7*15000 + 5*25000 + 2*30000},
		{name: "past the end is capped at total", role: models.RoleParticipant, month: 40, want: 410000},
		{name: "contingent team stops after thirteen months", role: models.RoleContingentTeam, month: 17, want: 130000},
		{name: "staff horizon", role: models.RoleStaff, month: 16, want: 165000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.DueThrough(tt.role, tt.month)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDueThroughIsMonotonic(t *testing.T) {
	s := Default()
	for _, role := range models.AllRoles() {
		var prev int64
		for month := -2; month < s.Len()+2; month++ {
			due, err := s.DueThrough(role, month)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, due, prev, "%s month %d", role, month)
			prev = due
		}
	}
}

func TestMonthlyDuesReturnsCopy(t *testing.T) {
	s := Default()
	months, err := s.MonthlyDues(models.RoleStaff)
	require.NoError(t, err)
	months[0] = 999999

	again, err := s.MonthlyDues(models.RoleStaff)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), again[0])
}

func TestUnknownRoleIsConfigurationError(t *testing.T) {
	s := Default()
	delete(s.Rows, models.RoleStaff)

	_, err := s.TotalDue(models.RoleStaff)
	var cfgErr *models.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "tariff.Staff", cfgErr.Key)
}

func TestValidate(t *testing.T) {
	start := time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		rows    map[models.Role]Row
		wantKey string
	}{
		{
			name:    "empty",
			rows:    map[models.Role]Row{},
			wantKey: "tariff",
		},
		{
			name: "uneven lengths",
			rows: map[models.Role]Row{
				models.RoleParticipant: {Months: []int64{100, 100}},
				models.RoleUnitLead:    {Months: []int64{100}},
			},
			wantKey: "tariff.",
		},
		{
			name: "negative installment",
			rows: map[models.Role]Row{
				models.RoleParticipant: {Months: []int64{100, -1}},
			},
			wantKey: "tariff.Participant",
		},
		{
			name: "total mismatch",
			rows: map[models.Role]Row{
				models.RoleParticipant: {Total: 300, Months: []int64{100, 100}},
			},
			wantKey: "tariff.Participant",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Schedule{Start: start, Rows: tt.rows}
			err := s.Validate()
			var cfgErr *models.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Contains(t, cfgErr.Key, tt.wantKey)
		})
	}
}

func TestMonthOffset(t *testing.T) {
	start := time.Date(2021, time.December, 4, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, MonthOffset(start, time.Date(2021, time.December, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 13, MonthOffset(start, time.Date(2023, time.January, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, -1, MonthOffset(start, time.Date(2021, time.November, 30, 0, 0, 0, 0, time.UTC)))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tariff.json")
	content := `{
		"start": "2025-12-01",
		"roles": {
			"Participant": {"total": 80000, "months": [30000, 50000]},
			"Unit Leitung": {"total": 50000, "months": [15000, 35000]}
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 2025, s.Start.Year())

	total, err := s.TotalDue(models.RoleUnitLead)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), total)
}

func TestLoadRejectsBadFile(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	var cfgErr *models.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "TARIFF_FILE", cfgErr.Key)

	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"start":"2025-12-01","roles":{"Pilot":{"months":[1]}}}`), 0644))
	_, err = Load(path)
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "tariff.Pilot", cfgErr.Key)
}

// eightInstallments mirrors a plan of eight installments from Dec to May,
// amounts in cents.
func eightInstallments() *Schedule {
	return &Schedule{
		Start: time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC),
		Rows: map[models.Role]Row{
			models.RoleStaff:          {Total: 260000, Months: []int64{20000, 40000, 40000, 40000, 30000, 30000, 30000, 30000}},
			models.RoleParticipant:    {Total: 340000, Months: []int64{30000, 50000, 50000, 50000, 40000, 40000, 40000, 40000}},
			models.RoleContingentTeam: {Total: 160000, Months: []int64{0, 0, 25000, 25000, 20000, 30000, 30000, 30000}},
		},
	}
}

func TestInstallmentsWithAgreement(t *testing.T) {
	s := eightInstallments()

	tests := []struct {
		name      string
		role      models.Role
		agreement models.DuesAgreement
		want      []int64
	}{
		{
			name: "no agreement keeps the plan",
			role: models.RoleStaff,
			want: []int64{20000, 40000, 40000, 40000, 30000, 30000, 30000, 30000},
		},
		{
			name:      "reduction empties installments from the end",
			role:      models.RoleStaff,
			agreement: models.DuesAgreement{FeeReductionCents: 125000},
			want:      []int64{20000, 40000, 40000, 35000, 0, 0, 0, 0},
		},
		{
			name:      "reduction within the last installment",
			role:      models.RoleStaff,
			agreement: models.DuesAgreement{FeeReductionCents: 5050},
			want:      []int64{20000, 40000, 40000, 40000, 30000, 30000, 30000, 24950},
		},
		{
			name:      "reduction above the total owes nothing",
			role:      models.RoleStaff,
			agreement: models.DuesAgreement{FeeReductionCents: 999999},
			want:      []int64{0, 0, 0, 0, 0, 0, 0, 0},
		},
		{
			name:      "early payer owes the total at once",
			role:      models.RoleParticipant,
			agreement: models.DuesAgreement{EarlyPayer: true},
			want:      []int64{340000, 0, 0, 0, 0, 0, 0, 0},
		},
		{
			name:      "early payer with reduction",
			role:      models.RoleParticipant,
			agreement: models.DuesAgreement{EarlyPayer: true, FeeReductionCents: 170000},
			want:      []int64{170000, 0, 0, 0, 0, 0, 0, 0},
		},
		{
			name:      "early payer pays in the month of the first regular installment",
			role:      models.RoleContingentTeam,
			agreement: models.DuesAgreement{EarlyPayer: true},
			want:      []int64{0, 0, 160000, 0, 0, 0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Installments(tt.role, tt.agreement)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAgreedDueThrough(t *testing.T) {
	s := eightInstallments()
	reduced := models.DuesAgreement{FeeReductionCents: 125000}

	tests := []struct {
		month int
		want  int64
	}{
		{-1, 0},
		{0, 20000},
		{3, 135000},
		{4, 135000},
		{20, 135000},
	}
	for _, tt := range tests {
		got, err := s.AgreedDueThrough(models.RoleStaff, tt.month, reduced)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "month %d", tt.month)
	}

	early, err := s.AgreedDueThrough(models.RoleParticipant, 0, models.DuesAgreement{EarlyPayer: true})
	require.NoError(t, err)
	assert.Equal(t, int64(340000), early)

	plain, err := s.DueThrough(models.RoleStaff, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(260000), plain)

	months, err := s.MonthlyDues(models.RoleStaff)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), months[7], "agreements must not change the schedule")
}

func TestNegativeFeeReductionIsRejected(t *testing.T) {
	_, err := eightInstallments().Installments(models.RoleStaff, models.DuesAgreement{FeeReductionCents: -1})
	assert.Error(t, err)
}
