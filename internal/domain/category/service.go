package category

import (
	"context"
	"log/slog"

	"github.com/FACorreiaa/paycycle-budget/internal/apperr"
)

// Store persists categories.
type Store interface {
	List(ctx context.Context) ([]Category, error)
	Get(ctx context.Context, id int64) (*Category, error)
	FindByName(ctx context.Context, name string) (*Category, error)
	Insert(ctx context.Context, c *Category) error
	Update(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id int64) error
}

// RuleCache is told when rules disappear behind its back.
type RuleCache interface {
	Invalidate(ctx context.Context) error
}

type Service struct {
	store  Store
	rules  RuleCache
	logger *slog.Logger
}

func NewService(store Store, rules RuleCache, logger *slog.Logger) *Service {
	return &Service{store: store, rules: rules, logger: logger}
}

func (s *Service) List(ctx context.Context) ([]Category, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (*Category, error) {
	return s.store.Get(ctx, id)
}

// ByID returns every category keyed by id.
func (s *Service) ByID(ctx context.Context) (map[int64]Category, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]Category, len(list))
	for _, c := range list {
		out[c.ID] = c
	}
	return out, nil
}

// Create stores a new category. Names are unique.
func (s *Service) Create(ctx context.Context, in Input) (*Category, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.store.FindByName(ctx, in.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Duplicate("category %q", in.Name)
	}

	c := &Category{
		Name:        in.Name,
		Type:        in.Type,
		BudgetLimit: in.BudgetLimit,
		Color:       in.Color,
	}
	if err := s.store.Insert(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("category created", slog.Int64("category_id", c.ID), slog.String("name", c.Name))
	return c, nil
}

// Update applies patch to the category with the given id.
func (s *Service) Update(ctx context.Context, id int64, patch Patch) (*Category, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := patch.Apply(c); err != nil {
		return nil, err
	}

	if patch.Name != nil {
		other, err := s.store.FindByName(ctx, c.Name)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != id {
			return nil, apperr.Duplicate("category %q", c.Name)
		}
	}

	if err := s.store.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a category with its rules and refreshes the rule cache.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	if s.rules != nil {
		if err := s.rules.Invalidate(ctx); err != nil {
			s.logger.Warn("failed to refresh rules after category delete",
				slog.Int64("category_id", id),
				slog.Any("error", err),
			)
		}
	}

	s.logger.Info("category deleted", slog.Int64("category_id", id))
	return nil
}
