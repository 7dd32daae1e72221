package database

import "time"

// SettingRow is one key of one settings scope. Deleted rows are kept as
// tombstones so pollers can observe the removal.
type SettingRow struct {
	Scope     string    `db:"scope"`
	Key       string    `db:"key"`
	Value     string    `db:"value"` // JSON document
	Revision  int64     `db:"revision"`
	Deleted   bool      `db:"deleted"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
