package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/oumizumi/Kairo-sub002/config"
	"github.com/oumizumi/Kairo-sub002/internal/dto"
	"github.com/oumizumi/Kairo-sub002/internal/model"
	"github.com/oumizumi/Kairo-sub002/internal/repository"
)

var (
	ErrShareNotFound  = errors.New("shared schedule not found")
	ErrNothingToShare = errors.New("there are no events to share")
)

const defaultShareTitle = "My Schedule"

// ShareService public read-only schedule links
type ShareService interface {
	// Create snapshots req.Events, or the user's whole calendar when none are given.
	Create(ctx context.Context, userID string, req *dto.CreateShareRequest) (*dto.ShareResponse, error)
	// Get returns a share and counts the view.
	Get(ctx context.Context, id string) (*dto.ShareResponse, error)
}

type shareService struct {
	baseURL string
	repo    *repository.Repository
	logger  *zap.Logger
}

// NewShareService creates a ShareService
func NewShareService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) ShareService {
	return &shareService{
		baseURL: strings.TrimRight(cfg.Share.BaseURL, "/"),
		repo:    repo,
		logger:  logger,
	}
}

func (s *shareService) Create(ctx context.Context, userID string, req *dto.CreateShareRequest) (*dto.ShareResponse, error) {
	// 1. collect the events
	var events []dto.CalendarEventResponse
	if len(req.Events) > 0 {
		for i := range req.Events {
			e := fromEventRequest(userID, &req.Events[i])
			if err := normalizeEvent(e); err != nil {
				return nil, err
			}
			events = append(events, toEventResponse(e))
		}
	} else {
		stored, err := s.repo.Calendar.List(ctx, userID)
		if err != nil {
			s.logger.Error("list calendar events failed", zap.Error(err))
			return nil, err
		}
		events = toEventResponses(stored)
	}
	if len(events) == 0 {
		return nil, ErrNothingToShare
	}

	// 2. snapshot
	data, err := json.Marshal(events)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = defaultShareTitle
	}
	share := &model.SharedSchedule{
		UserID:       userID,
		Title:        title,
		Term:         strings.TrimSpace(req.Term),
		ScheduleData: datatypes.JSON(data),
	}
	if err := s.repo.Share.Create(ctx, share); err != nil {
		s.logger.Error("create share failed", zap.Error(err))
		return nil, err
	}

	s.logger.Info("schedule shared", zap.String("share_id", share.ShareID), zap.Int("events", len(events)))
	return s.toResponse(share), nil
}

func (s *shareService) Get(ctx context.Context, id string) (*dto.ShareResponse, error) {
	share, err := s.repo.Share.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShareNotFound
		}
		s.logger.Error("get share failed", zap.Error(err))
		return nil, err
	}
	if err := s.repo.Share.IncrementViews(ctx, id); err != nil {
		s.logger.Warn("count share view failed", zap.String("share_id", id), zap.Error(err))
	} else {
		share.ViewCount++
	}
	return s.toResponse(share), nil
}

// ShareURL is the public address of a share.
func (s *shareService) ShareURL(id string) string {
	return s.baseURL + "/schedule/" + id
}

func (s *shareService) toResponse(share *model.SharedSchedule) *dto.ShareResponse {
	resp := &dto.ShareResponse{
		ID:           share.ShareID,
		Title:        share.Title,
		Term:         share.Term,
		ScheduleData: json.RawMessage(share.ScheduleData),
		ViewCount:    share.ViewCount,
		ShareURL:     s.ShareURL(share.ShareID),
	}
	if !share.CreatedAt.IsZero() {
		resp.CreatedAt = share.CreatedAt.Format(time.RFC3339)
	}
	return resp
}
