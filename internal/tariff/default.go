package tariff

import (
	"time"

	"github.com/wsjrdp/dues/internal/models"
)

// Default returns the WSJ 2023 schedule: 18 monthly installments from
// December 2021 to May 2023.
func Default() *Schedule {
	return &Schedule{
		Start: time.Date(2021, time.December, 4, 0, 0, 0, 0, time.UTC),
		Rows: map[models.Role]Row{
			models.RoleParticipant: {
				Total:  410000,
				Months: euros(150, 150, 150, 150, 150, 150, 150, 250, 250, 250, 250, 250, 300, 300, 300, 300, 300, 300),
			},
			models.RoleUnitLead: {
				Total:  325000,
				Months: euros(150, 150, 150, 150, 150, 150, 150, 200, 200, 200, 200, 200, 200, 250, 250, 250, 250, 0),
			},
			models.RoleStaff: {
				Total:  165000,
				Months: euros(100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 50, 0),
			},
			models.RoleContingentTeam: {
				Total:  130000,
				Months: euros(100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 0, 0, 0, 0, 0),
			},
		},
	}
}

func euros(amounts ...int64) []int64 {
	out := make([]int64, len(amounts))
	for i, a := range amounts {
		out[i] = a * 100
	}
	return out
}
