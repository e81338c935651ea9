package persistence

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"

	"strategy-logic-go/internal/models"
)

// ErrEmptySessionID is returned when a draft has no session to be stored under.
var ErrEmptySessionID = errors.New("draft session id is empty")

// badgerRepository is the BadgerDB implementation of the DraftRepository.
type badgerRepository struct {
	db *badger.DB
}

// NewBadgerRepository opens (or creates) the draft database at dbPath.
// An empty dbPath keeps everything in memory, which tests and one-shot CLI runs use.
func NewBadgerRepository(dbPath string) (DraftRepository, error) {
	opts := badger.DefaultOptions(dbPath)
	if dbPath == "" {
		opts = opts.WithInMemory(true)
	}
	// Badger 自带的日志会干扰应用日志, 错误仍通过返回值传递
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open draft db %q: %w", dbPath, err)
	}
	return &badgerRepository{db: db}, nil
}

// SaveDraft marshals the draft into JSON and stores it under draft/<sessionID>.
func (r *badgerRepository) SaveDraft(draft *models.Draft) error {
	if draft == nil || draft.SessionID == "" {
		return ErrEmptySessionID
	}
	data, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(draftKey(draft.SessionID), data)
	})
}

// LoadDraft returns (nil, nil) when the session has no draft.
func (r *badgerRepository) LoadDraft(sessionID string) (*models.Draft, error) {
	var draft models.Draft

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(draftKey(sessionID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) == 0 {
				return errors.New("draft value is empty in database")
			}
			return json.Unmarshal(val, &draft)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

func (r *badgerRepository) DeleteDraft(sessionID string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(draftKey(sessionID))
	})
}

// Close gracefully closes the connection to the database.
func (r *badgerRepository) Close() error {
	return r.db.Close()
}
