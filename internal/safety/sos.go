package safety

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/safezone/server/internal/events"
	"github.com/safezone/server/internal/geo"
	"github.com/safezone/server/internal/model"
	"github.com/safezone/server/internal/repo"
)

const (
	sosSafeSpotCount   = 3
	defaultDescription = "SOS triggered"
)

// SOSRequest carries an SOS call. Every field is optional.
type SOSRequest struct {
	User           *model.User
	Location       *geo.Point
	Description    string
	AttachmentPath string
}

// SOSResult is the synthetic dispatch acknowledgement
type SOSResult struct {
	SOSID            string           `json:"sosId"`
	Status           string           `json:"status"`
	Priority         string           `json:"priority"`
	User             *model.User      `json:"user"`
	Location         *geo.Point       `json:"location"`
	Description      string           `json:"description"`
	AttachmentPath   *string          `json:"attachmentPath"`
	NearestSafeSpots []model.SafeSpot `json:"nearestSafeSpots"`
}

type SOSService struct {
	spots     repo.SafeSpotRepo
	publisher events.Publisher
	counters  Counters
	logger    *zap.Logger
}

func NewSOSService(spots repo.SafeSpotRepo, publisher events.Publisher, counters Counters, logger *zap.Logger) *SOSService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if counters == nil {
		counters = nopCounters{}
	}
	return &SOSService{spots: spots, publisher: publisher, counters: counters, logger: logger}
}

// Trigger acknowledges an SOS. The attached safe spots are the first three in
// store order and are not ranked by distance to the caller.
func (s *SOSService) Trigger(ctx context.Context, req SOSRequest) (SOSResult, error) {
	spots, err := s.spots.ListStoreOrder(ctx, sosSafeSpotCount)
	if err != nil {
		return SOSResult{}, fmt.Errorf("load safe spots: %w", err)
	}

	result := SOSResult{
		SOSID:            uuid.NewString(),
		Status:           "dispatched",
		Priority:         "high",
		User:             req.User,
		Description:      req.Description,
		NearestSafeSpots: spots,
	}
	if req.Location != nil && req.Location.Valid() {
		loc := *req.Location
		result.Location = &loc
	}
	if result.Description == "" {
		result.Description = defaultDescription
	}
	if req.AttachmentPath != "" {
		path := req.AttachmentPath
		result.AttachmentPath = &path
	}

	ev := events.SOSTriggeredEvent{
		SOSID:       result.SOSID,
		Description: result.Description,
		Attachment:  req.AttachmentPath,
		At:          time.Now().UTC(),
	}
	fields := []zap.Field{zap.String("sos_id", result.SOSID), zap.Bool("has_attachment", req.AttachmentPath != "")}
	if req.User != nil {
		ev.UserID = req.User.ID.String()
		fields = append(fields, zap.String("user_id", ev.UserID))
	}
	if result.Location != nil {
		ev.Lat, ev.Lng = &result.Location.Lat, &result.Location.Lng
	}

	s.logger.Info("sos triggered", fields...)
	s.counters.SOSTriggered()
	publish(ctx, s.publisher, s.logger, events.SOSTriggered, ev)
	return result, nil
}
