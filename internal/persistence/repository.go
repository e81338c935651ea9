package persistence

import "strategy-logic-go/internal/models"

// DraftRepository defines the interface for local draft persistence.
// It abstracts the underlying storage mechanism (BadgerDB, in-memory)
// from the editing session. Strategies themselves are stored by the backend, not here.
type DraftRepository interface {
	// SaveDraft atomically replaces the draft of draft.SessionID.
	SaveDraft(draft *models.Draft) error

	// LoadDraft loads the draft of a session.
	// If no draft is found, it returns (nil, nil).
	LoadDraft(sessionID string) (*models.Draft, error)

	// DeleteDraft removes the draft of a session. Deleting a missing draft is not an error.
	DeleteDraft(sessionID string) error

	// Close gracefully closes the connection to the database.
	Close() error
}

func draftKey(sessionID string) []byte {
	return []byte("draft/" + sessionID)
}
