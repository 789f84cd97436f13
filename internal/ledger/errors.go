package ledger

import "errors"

var (
	// ErrNotFound is returned when no entry has the requested id.
	ErrNotFound = errors.New("ledger: entry not found")

	// ErrAlreadyRecorded is returned by Begin when the recipient already has
	// an entry for the draft. The caller must not send.
	ErrAlreadyRecorded = errors.New("ledger: recipient already recorded for draft")

	// ErrAlreadySent is returned by Reopen for entries the provider accepted.
	ErrAlreadySent = errors.New("ledger: entry already sent")

	// ErrEmptyMessageID is returned by MarkSent without a provider message id.
	ErrEmptyMessageID = errors.New("ledger: empty message id")

	// ErrUnknownStatus is returned when a stored status is not recognised.
	ErrUnknownStatus = errors.New("ledger: unknown status")
)
