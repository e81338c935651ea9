// Package session owns the editable tree of one editing session.
// All edits are processed serially on one goroutine; drafts are persisted asynchronously.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"strategy-logic-go/internal/compiler"
	"strategy-logic-go/internal/condition"
	"strategy-logic-go/internal/models"
	"strategy-logic-go/internal/persistence"
	"strategy-logic-go/internal/preview"
	"strategy-logic-go/internal/valueref"
)

// ErrStopped is returned when an event is dispatched to a stopped Manager.
var ErrStopped = errors.New("session manager stopped")

// EventType defines the type of a session event
type EventType int

const (
	ApplyEvent EventType = iota
	SnapshotEvent
	LoadConfigEvent
	ResetEvent
	SubmittedEvent
)

// Submitter hands a compiled config to the execution backend.
type Submitter interface {
	Submit(ctx context.Context, logic models.StrategyLogicConfig) error
}

// NormalizedEvent is a standardized internal representation of a session event
type NormalizedEvent struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
	reply     chan result
}

// SubmittedEventData tells the loop which revision the backend accepted.
type SubmittedEventData struct {
	Revision int64
}

type result struct {
	snapshot Snapshot
	err      error
}

// Snapshot is everything a view needs after one event.
type Snapshot struct {
	SessionID        string                     `json:"sessionId"`
	Revision         int64                      `json:"revision"`
	Tree             models.Tree                `json:"tree"`
	Config           models.StrategyLogicConfig `json:"config"`
	Report           compiler.Report            `json:"report"`
	Summary          []preview.Section          `json:"summary"`
	Used             []models.ValueRef          `json:"used"`
	UnusedValues     []string                   `json:"unusedValues"`
	UnusedIndicators []string                   `json:"unusedIndicators"`
}

// persistOp is either a draft to save or a session whose draft should go away.
type persistOp struct {
	draft    *models.Draft
	deleteID string
}

// Manager is responsible for all tree mutations and draft persistence.
// It ensures that all edits are processed serially.
type Manager struct {
	sessionID string
	tree      models.Tree
	revision  int64

	selected  []models.SelectedIndicator
	resolver  *valueref.Resolver
	compiler  *compiler.Compiler
	repo      persistence.DraftRepository
	submitter Submitter

	eventChannel    chan NormalizedEvent
	persistenceChan chan persistOp
	stopChan        chan bool
	persistStop     chan bool
	stopOnce        sync.Once
	eventWG         sync.WaitGroup
	persistWG       sync.WaitGroup
	logger          *zap.Logger
}

// NewManager creates a Manager with an empty tree. repo and submitter may be nil.
func NewManager(sessionID string, selected []models.SelectedIndicator, repo persistence.DraftRepository, submitter Submitter, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessionID:       sessionID,
		tree:            models.NewTree(),
		selected:        selected,
		resolver:        valueref.NewResolver(selected, nil),
		compiler:        compiler.New(logger),
		repo:            repo,
		submitter:       submitter,
		eventChannel:    make(chan NormalizedEvent, 64),
		persistenceChan: make(chan persistOp, 128),
		stopChan:        make(chan bool),
		persistStop:     make(chan bool),
		logger:          logger,
	}
}

// SessionID returns the id drafts are stored under.
func (m *Manager) SessionID() string {
	return m.sessionID
}

// Hydrate restores the persisted draft of this session. It must be called before Start.
// It reports whether a draft was found.
func (m *Manager) Hydrate() (bool, error) {
	if m.repo == nil {
		return false, nil
	}
	draft, err := m.repo.LoadDraft(m.sessionID)
	if err != nil {
		return false, fmt.Errorf("load draft %s: %w", m.sessionID, err)
	}
	if draft == nil {
		return false, nil
	}
	if draft.Version != models.DraftVersion {
		m.logger.Sugar().Warnf("Ignoring draft %s with unsupported version %d.", m.sessionID, draft.Version)
		return false, nil
	}
	m.tree = draft.Tree.Clone()
	if m.tree.Values == nil {
		m.tree.Values = map[string]models.ValueRef{}
	}
	m.revision = draft.Revision
	m.logger.Sugar().Infof("Restored draft %s at revision %d.", m.sessionID, m.revision)
	return true, nil
}

// Start begins the event processing and persistence loops.
func (m *Manager) Start() {
	m.eventWG.Add(1)
	go m.eventLoop()
	m.persistWG.Add(1)
	go m.persistenceLoop()
	m.logger.Sugar().Infof("Session %s started.", m.sessionID)
}

// Stop shuts down both loops. The event loop stops first, so every committed
// revision has been queued before the persistence loop flushes and exits.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		m.eventWG.Wait()
		close(m.persistStop)
		m.persistWG.Wait()
		m.logger.Sugar().Infof("Session %s stopped.", m.sessionID)
	})
}

// Dispatch sends an event to the loop and waits for the resulting snapshot.
func (m *Manager) Dispatch(ctx context.Context, event NormalizedEvent) (Snapshot, error) {
	event.reply = make(chan result, 1)
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case m.eventChannel <- event:
	case <-m.stopChan:
		return Snapshot{}, ErrStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case res := <-event.reply:
		return res.snapshot, res.err
	case <-m.stopChan:
		return Snapshot{}, ErrStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Apply runs one reducer action. On error the tree is unchanged and the current snapshot is returned.
func (m *Manager) Apply(ctx context.Context, action condition.Action) (Snapshot, error) {
	return m.Dispatch(ctx, NormalizedEvent{Type: ApplyEvent, Data: action})
}

// Snapshot returns the current state without changing it.
func (m *Manager) Snapshot(ctx context.Context) (Snapshot, error) {
	return m.Dispatch(ctx, NormalizedEvent{Type: SnapshotEvent})
}

// LoadConfig replaces the tree with the decompiled form of a stored config.
func (m *Manager) LoadConfig(ctx context.Context, cfg models.StrategyLogicConfig) (Snapshot, error) {
	return m.Dispatch(ctx, NormalizedEvent{Type: LoadConfigEvent, Data: cfg})
}

// Reset discards the tree and the draft.
func (m *Manager) Reset(ctx context.Context) (Snapshot, error) {
	return m.Dispatch(ctx, NormalizedEvent{Type: ResetEvent})
}

// Submit compiles the current tree and hands it to the submitter. The backend call runs outside
// the event loop. On failure the tree is left untouched and the backend error is returned as is;
// on success the tree is reset, unless it was edited while the request was in flight.
func (m *Manager) Submit(ctx context.Context) (Snapshot, error) {
	if m.submitter == nil {
		return Snapshot{}, errors.New("no submitter configured")
	}
	snap, err := m.Snapshot(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if err := m.submitter.Submit(ctx, snap.Config); err != nil {
		m.logger.Sugar().Warnf("Submitting revision %d failed: %v", snap.Revision, err)
		return snap, err
	}
	m.logger.Sugar().Infof("Revision %d submitted.", snap.Revision)
	return m.Dispatch(ctx, NormalizedEvent{Type: SubmittedEvent, Data: SubmittedEventData{Revision: snap.Revision}})
}

// eventLoop is the core processing loop that handles all incoming events serially.
func (m *Manager) eventLoop() {
	defer m.eventWG.Done()
	for {
		select {
		case event := <-m.eventChannel:
			snap, err := m.processEvent(event)
			event.reply <- result{snapshot: snap, err: err}
		case <-m.stopChan:
			return
		}
	}
}

// persistenceLoop handles the asynchronous saving of drafts.
func (m *Manager) persistenceLoop() {
	defer m.persistWG.Done()
	for {
		select {
		case op := <-m.persistenceChan:
			m.persist(op)
		case <-m.persistStop:
			for {
				select {
				case op := <-m.persistenceChan:
					m.persist(op)
				default:
					return
				}
			}
		}
	}
}

func (m *Manager) persist(op persistOp) {
	if m.repo == nil {
		return
	}
	if op.draft != nil {
		if err := m.repo.SaveDraft(op.draft); err != nil {
			m.logger.Sugar().Errorf("Failed to save draft %s: %v", op.draft.SessionID, err)
		}
		return
	}
	if err := m.repo.DeleteDraft(op.deleteID); err != nil {
		m.logger.Sugar().Errorf("Failed to delete draft %s: %v", op.deleteID, err)
	}
}

// processEvent contains the logic to mutate the tree based on an event.
func (m *Manager) processEvent(event NormalizedEvent) (Snapshot, error) {
	switch event.Type {
	case ApplyEvent:
		action, ok := event.Data.(condition.Action)
		if !ok {
			return m.snapshot(), fmt.Errorf("apply event with unexpected data type %T", event.Data)
		}
		next, err := condition.Reduce(m.tree, action)
		if err != nil {
			m.logger.Sugar().Debugf("Rejected %s: %v", action.Type, err)
			return m.snapshot(), err
		}
		m.commit(next)
	case LoadConfigEvent:
		cfg, ok := event.Data.(models.StrategyLogicConfig)
		if !ok {
			return m.snapshot(), fmt.Errorf("load event with unexpected data type %T", event.Data)
		}
		m.commit(compiler.Decompile(cfg))
	case ResetEvent:
		m.discard()
	case SubmittedEvent:
		data, ok := event.Data.(SubmittedEventData)
		if !ok {
			return m.snapshot(), fmt.Errorf("submitted event with unexpected data type %T", event.Data)
		}
		if data.Revision == m.revision {
			m.discard()
		} else {
			m.logger.Sugar().Infof("Tree changed since revision %d was submitted; keeping revision %d.", data.Revision, m.revision)
		}
	case SnapshotEvent:
	default:
		m.logger.Sugar().Warnf("Received event with unknown type: %d", event.Type)
	}
	return m.snapshot(), nil
}

// commit installs a new tree and queues a draft copy for persistence.
func (m *Manager) commit(tree models.Tree) {
	m.tree = tree
	m.revision++
	m.persistenceChan <- persistOp{draft: &models.Draft{
		SessionID:      m.sessionID,
		Version:        models.DraftVersion,
		Revision:       m.revision,
		Tree:           m.tree.Clone(),
		LastUpdateTime: time.Now(),
	}}
}

func (m *Manager) discard() {
	m.tree = models.NewTree()
	m.revision++
	m.persistenceChan <- persistOp{deleteID: m.sessionID}
	m.logger.Sugar().Infof("Session %s reset.", m.sessionID)
}

func (m *Manager) snapshot() Snapshot {
	cfg, report := m.compiler.Compile(m.tree, m.resolver)
	unused := valueref.UnusedIndicators(m.tree, m.selected)
	unusedIDs := make([]string, 0, len(unused))
	for _, s := range unused {
		unusedIDs = append(unusedIDs, s.ID)
	}
	return Snapshot{
		SessionID:        m.sessionID,
		Revision:         m.revision,
		Tree:             m.tree.Clone(),
		Config:           cfg,
		Report:           report,
		Summary:          preview.LogicSummary(m.tree, m.resolver),
		Used:             valueref.UsedOutputs(m.tree),
		UnusedValues:     valueref.UnusedValues(m.tree),
		UnusedIndicators: unusedIDs,
	}
}
