package enquiry

import (
	"context"
	"log/slog"
	"strings"
)

type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*Enquiry, error)
	ListUnclaimed(ctx context.Context) ([]Enquiry, error)
	ListMine(ctx context.Context, counselorID int) ([]Enquiry, error)
	Claim(ctx context.Context, enquiryID, counselorID int) (*Enquiry, error)
}

type service struct {
	repo     Repository
	producer Producer
	logger   *slog.Logger
}

// NewService builds the enquiry service. producer may be nil, in which case
// no events are published.
func NewService(repo Repository, producer Producer, logger *slog.Logger) Service {
	return &service{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

// Submit persists a new unclaimed enquiry. No authentication required.
func (s *service) Submit(ctx context.Context, req SubmitRequest) (*Enquiry, error) {
	newEnquiry := &Enquiry{
		Name:           strings.TrimSpace(req.Name),
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		CourseInterest: strings.TrimSpace(req.CourseInterest),
		Claimed:        false,
		CounselorID:    nil,
	}

	created, err := s.repo.Create(ctx, newEnquiry)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, Event{
		Type:      EventSubmitted,
		EnquiryID: created.ID,
		Email:     created.Email,
	})

	return created, nil
}

func (s *service) ListUnclaimed(ctx context.Context) ([]Enquiry, error) {
	return s.repo.ListUnclaimed(ctx)
}

func (s *service) ListMine(ctx context.Context, counselorID int) ([]Enquiry, error) {
	return s.repo.ListClaimedBy(ctx, counselorID)
}

// Claim assigns the enquiry to the counselor. At most one caller ever
// succeeds for a given enquiry; the atomicity lives in the repository.
func (s *service) Claim(ctx context.Context, enquiryID, counselorID int) (*Enquiry, error) {
	claimed, err := s.repo.Claim(ctx, enquiryID, counselorID)
	if err != nil {
		return claimed, err
	}

	s.publish(ctx, Event{
		Type:        EventClaimed,
		EnquiryID:   claimed.ID,
		Email:       claimed.Email,
		CounselorID: claimed.CounselorID,
	})

	return claimed, nil
}

// publish sends an event to the bus. Failures are logged and never fail the
// request.
func (s *service) publish(ctx context.Context, event Event) {
	if s.producer == nil {
		return
	}
	if err := s.producer.SendMessage(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish enquiry event", "type", event.Type, "enquiry_id", event.EnquiryID, "error", err)
	}
}
