// Package model persists scoring models in the document store.
package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/truongngoctrac/claims-search/internal/domain"
	"github.com/truongngoctrac/claims-search/internal/domain/scoring"
	"github.com/truongngoctrac/claims-search/internal/store"
)

const (
	indexKey  = "search:models"
	keyPrefix = "search:model:"
)

// docStore is the consumer interface for model persistence.
type docStore interface {
	store.Hash
	store.Set
}

// Repo stores scoring models as hashes plus an id index set.
type Repo struct {
	store docStore
}

// New creates a model repository.
func New(s docStore) *Repo {
	return &Repo{store: s}
}

// Save upserts a model and indexes its id.
func (r *Repo) Save(ctx context.Context, m *scoring.Model) error {
	fields, err := toFields(m)
	if err != nil {
		return fmt.Errorf("encode model %s: %w", m.ID(), err)
	}
	if err := r.store.HSet(ctx, keyPrefix+m.ID(), fields); err != nil {
		return fmt.Errorf("save model %s: %w", m.ID(), err)
	}
	if err := r.store.SAdd(ctx, indexKey, m.ID()); err != nil {
		return fmt.Errorf("index model %s: %w", m.ID(), err)
	}
	return nil
}

// Get loads a model by id.
func (r *Repo) Get(ctx context.Context, id string) (scoring.Model, error) {
	fields, err := r.store.HGetAll(ctx, keyPrefix+id)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return scoring.Model{}, fmt.Errorf("model %s: %w", id, domain.ErrModelNotFound)
		}
		return scoring.Model{}, fmt.Errorf("load model %s: %w", id, err)
	}
	m, err := fromFields(fields)
	if err != nil {
		return scoring.Model{}, fmt.Errorf("decode model %s: %w", id, err)
	}
	return m, nil
}

// List loads every stored model.
func (r *Repo) List(ctx context.Context) ([]scoring.Model, error) {
	ids, err := r.store.SMembers(ctx, indexKey)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}

	models := make([]scoring.Model, 0, len(ids))
	for _, id := range ids {
		m, err := r.Get(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrModelNotFound) {
				continue // index drifted, skip the ghost entry
			}
			return nil, err
		}
		models = append(models, m)
	}
	return models, nil
}

// Delete removes a model and unindexes its id.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, keyPrefix+id); err != nil {
		return fmt.Errorf("delete model %s: %w", id, err)
	}
	if err := r.store.SRem(ctx, indexKey, id); err != nil {
		return fmt.Errorf("unindex model %s: %w", id, err)
	}
	return nil
}
