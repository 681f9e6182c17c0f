// package repositories provides the persistence layer for OAuth token records.
//
// The token table is keyed on the external Spotify user id; all writes are
// upserts so a user never accumulates duplicate rows.
package repositories
