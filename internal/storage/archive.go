package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/rohankatakam/gitfolio/internal/models"
)

// Archive keeps the last completed analysis and the user's saved analyses
// in a scope.
type Archive struct {
	store Store
	// serializes read-modify-write of the saved list
	mu sync.Mutex
}

// NewArchive creates an archive over store
func NewArchive(store Store) *Archive {
	return &Archive{store: store}
}

// RecordLast replaces the last analysis
func (a *Archive) RecordLast(ctx context.Context, last models.LastAnalysis) error {
	return SetJSON(ctx, a.store, KeyLastAnalysis, last)
}

// Last returns the last analysis; found is false if none was recorded
func (a *Archive) Last(ctx context.Context) (models.LastAnalysis, bool, error) {
	var last models.LastAnalysis
	found, err := GetJSON(ctx, a.store, KeyLastAnalysis, &last)
	return last, found, err
}

// List returns saved analyses, newest first
func (a *Archive) List(ctx context.Context) ([]models.SavedAnalysis, error) {
	var saved []models.SavedAnalysis
	if _, err := GetJSON(ctx, a.store, KeySavedAnalyses, &saved); err != nil {
		return nil, err
	}
	if saved == nil {
		saved = []models.SavedAnalysis{}
	}
	return saved, nil
}

// Save prepends an analysis to the saved list under a new ID
func (a *Archive) Save(ctx context.Context, last models.LastAnalysis) (models.SavedAnalysis, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	saved, err := a.List(ctx)
	if err != nil {
		return models.SavedAnalysis{}, err
	}

	entry := models.SavedAnalysis{ID: uuid.NewString(), LastAnalysis: last}
	saved = append([]models.SavedAnalysis{entry}, saved...)
	if err := SetJSON(ctx, a.store, KeySavedAnalyses, saved); err != nil {
		return models.SavedAnalysis{}, err
	}
	return entry, nil
}

// Get returns the saved analysis with id
func (a *Archive) Get(ctx context.Context, id string) (models.SavedAnalysis, error) {
	saved, err := a.List(ctx)
	if err != nil {
		return models.SavedAnalysis{}, err
	}
	for _, s := range saved {
		if s.ID == id {
			return s, nil
		}
	}
	return models.SavedAnalysis{}, fmt.Errorf("saved analysis %s: %w", id, ErrNotFound)
}

// Delete removes the saved analysis with id
func (a *Archive) Delete(ctx context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	saved, err := a.List(ctx)
	if err != nil {
		return err
	}

	kept := saved[:0]
	for _, s := range saved {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(saved) {
		return fmt.Errorf("saved analysis %s: %w", id, ErrNotFound)
	}
	return SetJSON(ctx, a.store, KeySavedAnalyses, kept)
}
