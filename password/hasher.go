package password

// Hasher is the one-way hash contract used by the engine.
//
// Verify never returns an error: a mismatch and a malformed stored hash are the
// same observable outcome.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) bool
	NeedsUpgrade(encodedHash string) bool
}

var _ Hasher = (*Argon2)(nil)
