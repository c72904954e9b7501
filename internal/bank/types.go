package bank

import "time"

// #region bank-info
// Info describes the question bank currently held by a Store.
type Info struct {
	BankID     string
	Source     string
	ImportedAt time.Time
	Traits     int
	Facets     int
	Questions  int
}
// #endregion bank-info

// #region session-record
// SessionRecord is one row of the sessions table: the settings an
// assessment was started with, kept so its journal can be replayed.
type SessionRecord struct {
	SessionID string
	BankID    string
	Mode      string
	Seed      uint64
	Relaxed   bool
	Questions []string // active question ids in presentation order
	StartedAt time.Time
}
// #endregion session-record
