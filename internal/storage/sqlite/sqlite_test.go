package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wsjrdp/dues/internal/models"
	"github.com/wsjrdp/dues/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := New(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seed(t *testing.T, store *SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	signed := time.Date(2021, time.November, 20, 0, 0, 0, 0, time.UTC)

	people := []struct {
		p          models.Participant
		sepaStatus string
	}{
		{models.Participant{
			ID: 1, Role: models.RoleParticipant, FirstName: "Erika", LastName: "Mustermann",
			Status:  "vollständig",
			Mandate: models.Mandate{AccountHolder: "Max Mustermann", IBAN: "DE89 3704 0044 0532 0130 00", SignedAt: signed},
		}, ""},
		{models.Participant{
			ID: 2, Role: models.RoleUnitLead, FirstName: "Jürgen", LastName: "Groß",
			Status:         "vollständig",
			Mandate:        models.Mandate{IBAN: "DE02120300000000202051", SignedAt: signed},
			MandateHistory: models.HistoryUsed,
			Agreement:      models.DuesAgreement{FeeReductionCents: 125000, EarlyPayer: true},
		}, storage.StatusCollected},
		{models.Participant{
			ID: 3, Role: models.RoleStaff, FirstName: "Paula", LastName: "Storno",
			Status: "abgemeldet",
		}, ""},
		{models.Participant{
			ID: 4, Role: models.RoleParticipant, FirstName: "Rita", LastName: "Rueckbuchung",
			Status: "vollständig",
		}, "Rückbuchung"},
		{models.Participant{
			ID: 5, RawRole: "Pilot", FirstName: "Otto", LastName: "Unbekannt",
			Status: "in Überprüfung",
		}, ""},
	}
	for _, tt := range people {
		require.NoError(t, store.CreateParticipant(ctx, tt.p, tt.sepaStatus), "participant %d", tt.p.ID)
	}
}

func ids(roster []models.Participant) []int64 {
	var out []int64
	for _, p := range roster {
		out = append(out, p.ID)
	}
	return out
}

func TestFetchRoster(t *testing.T) {
	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()

	t.Run("filters by status and sepa status", func(t *testing.T) {
		roster, err := store.FetchRoster(ctx, storage.RosterFilter{Statuses: []string{"vollständig", "in Überprüfung"}})
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2, 5}, ids(roster))
	})

	t.Run("empty filter returns all collectable people", func(t *testing.T) {
		roster, err := store.FetchRoster(ctx, storage.RosterFilter{})
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2, 3, 5}, ids(roster))
	})

	t.Run("maps columns", func(t *testing.T) {
		roster, err := store.FetchRoster(ctx, storage.RosterFilter{})
		require.NoError(t, err)
		require.Len(t, roster, 4)

		erika := roster[0]
		assert.Equal(t, models.RoleParticipant, erika.Role)
		assert.Equal(t, "Max Mustermann", erika.Mandate.AccountHolder)
		assert.Equal(t, "DE89 3704 0044 0532 0130 00", erika.Mandate.IBAN, "IBAN is returned as stored")
		assert.True(t, erika.Mandate.SignedAt.Equal(time.Date(2021, time.November, 20, 0, 0, 0, 0, time.UTC)))
		assert.Equal(t, models.HistoryUnknown, erika.MandateHistory)
		assert.True(t, erika.Agreement.IsZero())

		juergen := roster[1]
		assert.Equal(t, models.HistoryUsed, juergen.MandateHistory)
		assert.Equal(t, models.RoleUnitLead, juergen.Role)
		assert.Equal(t, models.DuesAgreement{FeeReductionCents: 125000, EarlyPayer: true}, juergen.Agreement)

		otto := roster[3]
		assert.Equal(t, int64(5), otto.ID)
		assert.Equal(t, models.RoleUnknown, otto.Role)
		assert.Equal(t, "Pilot", otto.RawRole)
		assert.True(t, otto.Mandate.SignedAt.IsZero())
	})
}

func TestLedger(t *testing.T) {
	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()

	entries := []*models.LedgerEntry{
		{ParticipantID: 1, AmountCents: -30000, Memo: "Erste Rate"},
		{ParticipantID: 2, AmountCents: -15000, Memo: "Erste Rate", CreatedAt: 1640995200},
		{ParticipantID: 1, AmountCents: 500, Memo: "Korrektur"},
	}
	for _, e := range entries {
		require.NoError(t, store.CreateLedgerEntry(ctx, e))
		assert.NotZero(t, e.ID)
	}

	ledger, err := store.FetchLedger(ctx)
	require.NoError(t, err)
	require.Len(t, ledger, 3)
	assert.Equal(t, int64(1640995200), ledger[1].CreatedAt)

	own, err := store.ListLedgerByParticipant(ctx, 1)
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, int64(-30000), own[0].AmountCents)
	assert.Equal(t, "Korrektur", own[1].Memo)
}

func TestRecordCollection(t *testing.T) {
	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()

	entry := models.LedgerEntry{
		ParticipantID: 1,
		AmountCents:   -30000,
		Memo:          "Vierzehnte Rate WSJ 2023 SEPA",
		Reference:     "wsjrdp1-0-0a1b2c3d4e",
	}

	t.Run("books entry and sets status", func(t *testing.T) {
		require.NoError(t, store.RecordCollection(ctx, 1, storage.StatusCollected, entry))

		status, err := store.GetSEPAStatus(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, storage.StatusCollected, status)

		own, err := store.ListLedgerByParticipant(ctx, 1)
		require.NoError(t, err)
		require.Len(t, own, 1)
		assert.Equal(t, entry.Reference, own[0].Reference)
		assert.NotZero(t, own[0].CreatedAt)

		roster, err := store.FetchRoster(ctx, storage.RosterFilter{})
		require.NoError(t, err)
		assert.Equal(t, models.HistoryUsed, roster[0].MandateHistory)
	})

	t.Run("same reference is reported and not booked again", func(t *testing.T) {
		err := store.RecordCollection(ctx, 1, storage.StatusCollected, entry)
		assert.ErrorIs(t, err, storage.ErrAlreadyRecorded)

		own, err := store.ListLedgerByParticipant(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, own, 1)
	})

	t.Run("new reference on the same day is booked", func(t *testing.T) {
		next := entry
		next.AmountCents = -5000
		next.Reference = "wsjrdp1-2-5f6a7b8c9d"
		require.NoError(t, store.RecordCollection(ctx, 1, storage.StatusCollected, next))

		own, err := store.ListLedgerByParticipant(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, own, 2)
	})

	t.Run("unknown participant", func(t *testing.T) {
		err := store.RecordCollection(ctx, 999, storage.StatusCollected, models.LedgerEntry{
			ParticipantID: 999, AmountCents: -100, Reference: "wsjrdp999-0-ffffffffff",
		})
		assert.ErrorIs(t, err, models.ErrParticipantNotFound)

		ledger, err := store.FetchLedger(ctx)
		require.NoError(t, err)
		for _, e := range ledger {
			assert.NotEqual(t, int64(999), e.ParticipantID, "entry for unknown participant should have been rolled back")
		}
	})
}

func TestGetSEPAStatusNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetSEPAStatus(context.Background(), 42)
	assert.ErrorIs(t, err, models.ErrParticipantNotFound)
}
