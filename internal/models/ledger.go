package models

// LedgerEntry is a recorded payment or adjustment against a participant's
// balance. Payments are negative; manual corrections may have either sign.
type LedgerEntry struct {
	// ID is the accounting entry primary key. Zero for entries not yet stored.
	ID int64

	// ParticipantID references Participant.ID.
	ParticipantID int64

	// AmountCents is the signed amount in minor units.
	AmountCents int64

	// CreatedAt is the Unix timestamp of the booking.
	CreatedAt int64

	// Memo is free text, e.g. "Vierzehnte Rate SEPA".
	Memo string

	// Reference identifies the collection that produced this entry, if any.
	// Used to make recording a collection idempotent.
	Reference string
}
