// Package password hashes and verifies user secrets with argon2id, encoded
// in the self-describing PHC string format. Stored forms produced by the
// deprecated bcrypt scheme are still verified during the migration window,
// but new hashes are always argon2id.
package password
