package service

import (
	"context"
	"strings"

	"arenapanel/internal/access"
	"arenapanel/internal/domain"
	"arenapanel/internal/models"

	"github.com/rs/zerolog"
)

type SpaceService struct {
	repo   domain.SpaceRepository
	logger *zerolog.Logger
}

func NewSpaceService(repo domain.SpaceRepository, logger *zerolog.Logger) *SpaceService {
	return &SpaceService{repo: repo, logger: logger}
}

func validateSpace(s *models.Space) error {
	fields := fieldErrors{}

	if strings.TrimSpace(s.Name) == "" {
		fields.add("name", "name is required")
	}
	if !s.Modality.Valid() {
		fields.add("modality", "unknown modality")
	}
	if _, err := models.NewTimeRange(s.OpeningTime, s.ClosingTime); err != nil {
		fields.add("closing_time", "closing time must be after opening time")
	}
	if s.MaxCapacity <= 0 {
		fields.add("max_capacity", "capacity must be positive")
	}
	if s.PricePerHour < 0 {
		fields.add("price_per_hour", "price cannot be negative")
	}
	if loc := s.Location; loc != nil {
		if loc.Lat < -90 || loc.Lat > 90 {
			fields.add("location", "latitude must be between -90 and 90")
		}
		if loc.Lng < -180 || loc.Lng > 180 {
			fields.add("location", "longitude must be between -180 and 180")
		}
	}

	return fields.err()
}

func (s *SpaceService) List(ctx context.Context, actor access.Session, filter models.SpaceFilter) ([]*models.Space, error) {
	if err := authorize(actor, access.ActionView, false); err != nil {
		return nil, err
	}
	spaces, err := s.repo.ListSpaces(ctx, filter)
	if err != nil {
		return nil, &PersistenceError{Op: "list spaces", Err: err}
	}
	return spaces, nil
}

func (s *SpaceService) Get(ctx context.Context, actor access.Session, id int64) (*models.Space, error) {
	if err := authorize(actor, access.ActionView, false); err != nil {
		return nil, err
	}
	space, err := s.repo.GetSpace(ctx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "get space", Err: err}
	}
	return space, nil
}

func (s *SpaceService) Create(ctx context.Context, actor access.Session, space *models.Space) error {
	space.Name = strings.TrimSpace(space.Name)
	if err := validateSpace(space); err != nil {
		return err
	}
	if err := authorize(actor, access.ActionCreate, false); err != nil {
		return err
	}
	if err := s.repo.CreateSpace(ctx, space); err != nil {
		return &PersistenceError{Op: "create space", Err: err}
	}
	s.logger.Info().Int64("space_id", space.ID).Str("name", space.Name).Int64("user_id", actor.UserID).Msg("space created")
	return nil
}

// Update applies a partial update. The merged space must still be valid.
func (s *SpaceService) Update(ctx context.Context, actor access.Session, id int64, update models.SpaceUpdate) (*models.Space, error) {
	if err := authorize(actor, access.ActionEdit, false); err != nil {
		return nil, err
	}

	current, err := s.repo.GetSpace(ctx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "get space", Err: err}
	}
	merged := update.Apply(*current)
	if err := validateSpace(&merged); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateSpace(ctx, id, update)
	if err != nil {
		return nil, &PersistenceError{Op: "update space", Err: err}
	}
	return updated, nil
}

func (s *SpaceService) Delete(ctx context.Context, actor access.Session, id int64) error {
	if err := authorize(actor, access.ActionDelete, false); err != nil {
		return err
	}
	if err := s.repo.DeleteSpace(ctx, id); err != nil {
		return &PersistenceError{Op: "delete space", Err: err}
	}
	s.logger.Info().Int64("space_id", id).Int64("user_id", actor.UserID).Msg("space deleted")
	return nil
}

// Seed inserts the given spaces when the catalogue is empty. It runs at
// startup, outside any user session.
func (s *SpaceService) Seed(ctx context.Context, spaces []models.Space) (int, error) {
	existing, err := s.repo.ListSpaces(ctx, models.SpaceFilter{})
	if err != nil {
		return 0, &PersistenceError{Op: "list spaces", Err: err}
	}
	if len(existing) > 0 {
		return 0, nil
	}

	created := 0
	for i := range spaces {
		space := spaces[i]
		if err := validateSpace(&space); err != nil {
			s.logger.Warn().Err(err).Str("name", space.Name).Msg("skipping invalid seed space")
			continue
		}
		if err := s.repo.CreateSpace(ctx, &space); err != nil {
			return created, &PersistenceError{Op: "create space", Err: err}
		}
		created++
	}
	return created, nil
}
