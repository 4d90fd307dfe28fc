// Package models defines the domain types shared by the dues calculator.
//
// # Inputs
//
//   - Participant: a registered person with a Role and a SEPA Mandate
//   - LedgerEntry: a prior payment or manual correction, in signed cents
//
// # Outputs
//
//   - DirectDebitTransaction: one collection instruction
//   - Batch: all transactions of one collection run
//   - Diagnostics: participants left out of the batch, with a reason
//
// # Conventions
//
//  1. Money is always int64 minor units (cents); decimal strings only appear
//     when a batch is rendered.
//  2. Payments are negative ledger amounts, dues are positive.
//  3. Participants are referenced by their numeric registration ID.
//
// Errors follow the run's failure taxonomy: ConfigurationError and
// DataAccessError abort a run, ValidationError only drops one participant.
package models
