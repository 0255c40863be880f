package query

import (
	"context"

	"github.com/veritas-school/assessment-ledger/internal/domain/ledger"
	"github.com/veritas-school/assessment-ledger/internal/domain/shared"
	"github.com/veritas-school/assessment-ledger/pkg/merkle"
)

// BuildTree rebuilds the Merkle tree over a student's confirmed events.
// Trees are ephemeral; nothing is persisted.
type BuildTree struct {
	events ledger.EventStore
}

// NewBuildTree creates the handler.
func NewBuildTree(events ledger.EventStore) *BuildTree {
	return &BuildTree{events: events}
}

// TreeSummary is the caller-facing view of a rebuilt tree. A nil Root with
// LeafCount 0 means "no anchorable history", not an error.
type TreeSummary struct {
	Root      *string `json:"root"`
	LeafCount int     `json:"leafCount"`
}

// Handle rebuilds the tree and returns its summary.
func (h *BuildTree) Handle(ctx context.Context, rawStudentID string) (*TreeSummary, error) {
	_, tree, err := h.rebuild(ctx, rawStudentID)
	if err != nil {
		return nil, err
	}

	summary := &TreeSummary{LeafCount: tree.LeafCount()}
	if root := tree.Root(); root != "" {
		summary.Root = &root
	}
	return summary, nil
}

// EventProof proves a single event's membership in the student's current tree
// without revealing the remaining events.
type EventProof struct {
	EventID  string             `json:"eventId"`
	LeafHash string             `json:"leafHash"`
	Root     string             `json:"root"`
	Path     []merkle.ProofStep `json:"path"`
}

// ProveEvent generates an inclusion proof for one event. The proof verifies
// with merkle.VerifyProof against the returned root.
func (h *BuildTree) ProveEvent(ctx context.Context, rawStudentID, eventID string) (*EventProof, error) {
	events, tree, err := h.rebuild(ctx, rawStudentID)
	if err != nil {
		return nil, err
	}

	index := -1
	for i, e := range events {
		if e.EventID == eventID {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, ledger.ErrEventNotFound
	}

	leaf, err := events[index].LeafHash(index)
	if err != nil {
		return nil, err
	}
	path, err := tree.Prove(leaf)
	if err != nil {
		return nil, err
	}

	return &EventProof{
		EventID:  eventID,
		LeafHash: leaf,
		Root:     tree.Root(),
		Path:     path,
	}, nil
}

func (h *BuildTree) rebuild(ctx context.Context, rawStudentID string) ([]*ledger.Event, *merkle.Tree, error) {
	studentID, err := shared.NewStudentID(rawStudentID)
	if err != nil {
		return nil, nil, err
	}

	events, err := h.events.ListByStudent(ctx, studentID, ledger.ConfirmedOnly())
	if err != nil {
		return nil, nil, err
	}

	leaves, err := ledger.LeafHashes(events)
	if err != nil {
		return nil, nil, err
	}
	tree, err := merkle.Build(leaves)
	if err != nil {
		return nil, nil, err
	}
	return events, tree, nil
}
