package center

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
)

var (
	ErrSlotInvalid = errors.New("invalid slot")
	ErrSlotOverlap = errors.New("slot overlaps an existing slot")
)

const centersCacheKey = "centers:all"

type Service interface {
	CreateCenter(ctx context.Context, req CreateCenterRequest) (*Center, error)
	GetAllCenters(ctx context.Context) ([]Center, error)
	GetCenterByID(ctx context.Context, id int) (*Center, error)
	CreateSlot(ctx context.Context, centerID int, req CreateSlotRequest) (*Slot, error)
	GetSlots(ctx context.Context, centerID int) ([]SlotWithAvailability, error)
}

type service struct {
	repo  Repository
	cache *cache.Cache
}

func NewService(repo Repository) Service {
	return &service{
		repo:  repo,
		cache: cache.New(30*time.Second, time.Minute),
	}
}

func (s *service) CreateCenter(ctx context.Context, req CreateCenterRequest) (*Center, error) {
	center, err := s.repo.CreateCenter(ctx, req.Name, req.City)
	if err != nil {
		return nil, err
	}

	s.cache.Delete(centersCacheKey)
	return center, nil
}

func (s *service) GetAllCenters(ctx context.Context) ([]Center, error) {
	if cached, found := s.cache.Get(centersCacheKey); found {
		return cached.([]Center), nil
	}

	centers, err := s.repo.GetAllCenters(ctx)
	if err != nil {
		return nil, err
	}

	s.cache.SetDefault(centersCacheKey, centers)
	return centers, nil
}

func (s *service) GetCenterByID(ctx context.Context, id int) (*Center, error) {
	return s.repo.GetCenterByID(ctx, id)
}

func (s *service) CreateSlot(ctx context.Context, centerID int, req CreateSlotRequest) (*Slot, error) {
	if _, err := s.repo.GetCenterByID(ctx, centerID); err != nil {
		return nil, err
	}

	startMinutes, err := ParseClock(req.Start)
	if err != nil {
		return nil, ErrSlotInvalid
	}

	endMinutes, err := ParseClock(req.End)
	if err != nil {
		return nil, ErrSlotInvalid
	}

	if endMinutes <= startMinutes {
		return nil, ErrSlotInvalid
	}

	if req.Capacity <= 0 {
		return nil, ErrSlotInvalid
	}

	existing, err := s.repo.GetSlotsByCenter(ctx, centerID)
	if err != nil {
		return nil, err
	}
	for _, slot := range existing {
		if Overlaps(startMinutes, endMinutes, slot.StartMinutes, slot.EndMinutes) {
			return nil, ErrSlotOverlap
		}
	}

	return s.repo.CreateSlot(ctx, centerID, startMinutes, endMinutes, req.Capacity)
}

func (s *service) GetSlots(ctx context.Context, centerID int) ([]SlotWithAvailability, error) {
	if _, err := s.repo.GetCenterByID(ctx, centerID); err != nil {
		return nil, err
	}

	return s.repo.GetSlotsWithAvailability(ctx, centerID)
}
