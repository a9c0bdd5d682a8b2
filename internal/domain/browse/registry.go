package browse

// Registry holds one Session per user.
type Registry interface {
	// GetOrCreate returns the user's session, creating a closed one if needed.
	GetOrCreate(userID string) *Session
	// Get returns the user's session if it exists.
	Get(userID string) (*Session, bool)
	// Delete drops the user's session.
	Delete(userID string)
	// Size returns the number of live sessions.
	Size() int
}
