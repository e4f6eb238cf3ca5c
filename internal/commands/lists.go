package commands

import (
	"context"
	"strings"

	"github.com/Lickton/LinkFlow/internal/model"
	"github.com/Lickton/LinkFlow/internal/storage"
)

const defaultListIcon = "🗂️"

type ListInput struct {
	Name string
	Icon string
}

func (s *Service) CreateList(ctx context.Context, in ListInput) (model.List, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.List{}, invalidArg("create list: name is required")
	}
	icon := strings.TrimSpace(in.Icon)
	if icon == "" {
		icon = defaultListIcon
	}
	list := model.List{ID: s.newID("list"), Name: name, Icon: icon}
	if err := s.repo.CreateList(ctx, storage.List(list)); err != nil {
		return model.List{}, storeErr("create list", err)
	}
	return list, nil
}

func (s *Service) UpdateList(ctx context.Context, in model.List) (model.List, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return model.List{}, invalidArg("update list: name is required")
	}
	if strings.TrimSpace(in.Icon) == "" {
		in.Icon = defaultListIcon
	}
	if err := s.repo.UpdateList(ctx, storage.List(in)); err != nil {
		return model.List{}, storeErr("update list", err)
	}
	return in, nil
}

// DeleteList refuses the built-in default list; tasks that pointed at a
// deleted list fall back to it via the foreign key's SET NULL.
func (s *Service) DeleteList(ctx context.Context, id string) error {
	if id == storage.DefaultListID {
		return invalidArg("delete list: the default list cannot be deleted")
	}
	if err := s.repo.DeleteList(ctx, id); err != nil {
		return storeErr("delete list", err)
	}
	return nil
}

func (s *Service) Lists(ctx context.Context) ([]model.List, error) {
	rows, err := s.repo.ListLists(ctx)
	if err != nil {
		return nil, storeErr("list lists", err)
	}
	out := make([]model.List, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.List(row))
	}
	return out, nil
}
