package controller

import (
	"context"

	"github.com/google/uuid"

	"vmacro/internal/logic"
	"vmacro/internal/repository"
)

// Editor holds an in-progress edit of one logic's items.
type Editor struct {
	repo  *repository.Repository
	id    *uuid.UUID
	base  *logic.Logic
	Items *logic.ItemStore
}

// NewEditor starts editing a fresh, unsaved logic.
func NewEditor(repo *repository.Repository, name string) *Editor {
	return &Editor{
		repo:  repo,
		base:  &logic.Logic{Name: name, RepeatCount: 1},
		Items: logic.NewItemStore(nil),
	}
}

// EditLogic starts editing the stored logic with id.
func EditLogic(ctx context.Context, repo *repository.Repository, id uuid.UUID) (*Editor, error) {
	l, ok := repo.Load(ctx, id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &Editor{
		repo:  repo,
		id:    &id,
		base:  l,
		Items: logic.NewItemStore(l.Items),
	}, nil
}

// Logic returns the header fields being edited. Changes to the returned
// value apply on Save.
func (e *Editor) Logic() *logic.Logic { return e.base }

// Save writes the edit back. On success a new logic becomes an update.
func (e *Editor) Save(ctx context.Context) (repository.Result, error) {
	l := e.base.Clone()
	l.Items = e.Items.All()
	res, err := e.repo.Save(ctx, e.id, l)
	if err != nil || !res.OK {
		return res, err
	}
	id := res.Logic.ID
	e.id = &id
	e.base = res.Logic.Clone()
	return res, nil
}
