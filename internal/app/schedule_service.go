// internal/app/schedule_service.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"evdb_notifier/internal/domain/notification"
	"evdb_notifier/internal/domain/user"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const defaultProcessBatchSize = 50

var ErrInvalidScheduleRequest = errors.New("invalid schedule request")

// RecipientResolver turns a notification's audience selector into concrete users.
type RecipientResolver interface {
	ResolveRecipients(ctx context.Context, n *notification.ScheduledNotification) ([]*user.User, error)
}

// Deliverer sends one notification to one recipient.
type Deliverer interface {
	Deliver(ctx context.Context, recipient *user.User, n *notification.ScheduledNotification) error
}

// ScheduleRequest is the authoring input for a scheduled notification.
// A ScheduledAt in the past makes the notification due immediately.
type ScheduleRequest struct {
	Title          string                      `validate:"required,max=200"`
	Content        string                      `validate:"required,max=4000"`
	Type           notification.Type           `validate:"required,oneof=info success warning error announcement"`
	TargetAudience notification.TargetAudience `validate:"required,oneof=all_users specific_roles individual_users"`
	TargetRoles    []string                    `validate:"omitempty,dive,required"`
	TargetUserIDs  []int64                     `validate:"omitempty,dive,gt=0"`
	Metadata       notification.Metadata
	ScheduledAt    time.Time
	ExpiresAt      *time.Time
	CreatedBy      int64
}

// ProcessReport summarises one "process due" run.
// Released counts claimed notifications that went back to pending because the run stopped before trying them.
type ProcessReport struct {
	Claimed          int
	Sent             int
	Failed           int
	Expired          int
	Released         int
	Deliveries       int
	DeliveryFailures int
}

type deliveryResult int

const (
	resultCompleted deliveryResult = iota
	resultExpired
	resultInterrupted
)

type ScheduleService struct {
	repo      notification.Repository
	resolver  RecipientResolver
	deliverer Deliverer
	validate  *validator.Validate
	logger    *logrus.Entry
	now       func() time.Time
	batchSize int
}

// ScheduleOption configures a ScheduleService.
type ScheduleOption func(*ScheduleService)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) ScheduleOption {
	return func(s *ScheduleService) {
		s.now = now
	}
}

// WithBatchSize caps how many due notifications one ProcessDue run claims.
func WithBatchSize(n int) ScheduleOption {
	return func(s *ScheduleService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func NewScheduleService(
	repo notification.Repository,
	resolver RecipientResolver,
	deliverer Deliverer,
	logger *logrus.Entry,
	opts ...ScheduleOption,
) *ScheduleService {
	s := &ScheduleService{
		repo:      repo,
		resolver:  resolver,
		deliverer: deliverer,
		validate:  validator.New(),
		logger:    logger,
		now:       time.Now,
		batchSize: defaultProcessBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule validates req and stores it as a pending notification.
func (s *ScheduleService) Schedule(ctx context.Context, req ScheduleRequest) (*notification.ScheduledNotification, error) {
	if err := s.validateRequest(req); err != nil {
		s.logger.WithError(err).WithField("title", req.Title).Warn("Rejected schedule request")
		return nil, err
	}

	n := &notification.ScheduledNotification{
		Title:          req.Title,
		Content:        req.Content,
		Type:           req.Type,
		TargetAudience: req.TargetAudience,
		TargetRoles:    req.TargetRoles,
		TargetUserIDs:  req.TargetUserIDs,
		Metadata:       req.Metadata,
		ScheduledAt:    req.ScheduledAt,
		Status:         notification.StatusPending,
		CreatedBy:      req.CreatedBy,
	}
	if req.ExpiresAt != nil {
		n.ExpiresAt = sql.NullTime{Time: *req.ExpiresAt, Valid: true}
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to store scheduled notification: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"notification_id": n.ID,
		"audience":        n.TargetAudience,
		"scheduled_at":    n.ScheduledAt.Format(time.RFC3339),
	}).Info("Notification scheduled")
	return n, nil
}

func (s *ScheduleService) validateRequest(req ScheduleRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScheduleRequest, err)
	}
	if req.ScheduledAt.IsZero() {
		return fmt.Errorf("%w: scheduled time is required", ErrInvalidScheduleRequest)
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(req.ScheduledAt) {
		return fmt.Errorf("%w: expiry must be after the scheduled time", ErrInvalidScheduleRequest)
	}

	switch req.TargetAudience {
	case notification.AudienceAllUsers:
		if len(req.TargetRoles) > 0 || len(req.TargetUserIDs) > 0 {
			return fmt.Errorf("%w: all_users takes no roles or user ids", ErrInvalidScheduleRequest)
		}
	case notification.AudienceSpecificRoles:
		if len(req.TargetRoles) == 0 || len(req.TargetUserIDs) > 0 {
			return fmt.Errorf("%w: specific_roles needs roles and no user ids", ErrInvalidScheduleRequest)
		}
	case notification.AudienceIndividualUsers:
		if len(req.TargetUserIDs) == 0 || len(req.TargetRoles) > 0 {
			return fmt.Errorf("%w: individual_users needs user ids and no roles", ErrInvalidScheduleRequest)
		}
	}

	if err := req.Metadata.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScheduleRequest, err)
	}
	return nil
}

// Cancel stops a pending notification. Any other status yields notification.ErrConflict.
// The record is kept with status cancelled.
func (s *ScheduleService) Cancel(ctx context.Context, id int64) (*notification.ScheduledNotification, error) {
	n, err := s.repo.Cancel(ctx, id)
	if err != nil {
		if errors.Is(err, notification.ErrConflict) {
			s.logger.WithField("notification_id", id).Warn("Cancel rejected, notification is not pending")
		}
		return nil, fmt.Errorf("failed to cancel notification %d: %w", id, err)
	}
	s.logger.WithField("notification_id", id).Info("Notification cancelled")
	return n, nil
}

// Reschedule retries a failed or cancelled notification as a new pending record.
// The original stays untouched. An expiry window keeps its length relative to the new time.
func (s *ScheduleService) Reschedule(ctx context.Context, id int64, at time.Time, createdBy int64) (*notification.ScheduledNotification, error) {
	orig, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get notification %d: %w", id, err)
	}
	if orig.Status != notification.StatusFailed && orig.Status != notification.StatusCancelled {
		return nil, fmt.Errorf("notification %d is %s, only failed or cancelled can be rescheduled: %w", id, orig.Status, notification.ErrConflict)
	}
	if at.IsZero() {
		return nil, fmt.Errorf("%w: scheduled time is required", ErrInvalidScheduleRequest)
	}

	n := &notification.ScheduledNotification{
		Title:           orig.Title,
		Content:         orig.Content,
		Type:            orig.Type,
		TargetAudience:  orig.TargetAudience,
		TargetRoles:     orig.TargetRoles,
		TargetUserIDs:   orig.TargetUserIDs,
		Metadata:        orig.Metadata,
		ScheduledAt:     at,
		Status:          notification.StatusPending,
		CreatedBy:       createdBy,
		RescheduledFrom: sql.NullInt64{Int64: orig.ID, Valid: true},
	}
	if orig.ExpiresAt.Valid {
		window := orig.ExpiresAt.Time.Sub(orig.ScheduledAt)
		n.ExpiresAt = sql.NullTime{Time: at.Add(window), Valid: true}
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to store rescheduled notification: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"notification_id":  n.ID,
		"rescheduled_from": orig.ID,
	}).Info("Notification rescheduled")
	return n, nil
}

func (s *ScheduleService) Get(ctx context.Context, id int64) (*notification.ScheduledNotification, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ScheduleService) List(ctx context.Context, filter notification.ListFilter) ([]*notification.ScheduledNotification, error) {
	return s.repo.List(ctx, filter)
}

// ProcessDue claims every due pending notification, delivers it and records the outcome.
// Claiming is atomic in the repository, so concurrent runs never process the same record twice.
// Once ctx is done, claimed notifications without any delivery attempt are released back to pending.
// A failed outcome or release write does not stop the run; such errors are joined and returned with the report.
func (s *ScheduleService) ProcessDue(ctx context.Context) (*ProcessReport, error) {
	now := s.now()
	claimed, err := s.repo.ClaimDue(ctx, now, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due notifications: %w", err)
	}

	report := &ProcessReport{Claimed: len(claimed)}
	if len(claimed) == 0 {
		s.logger.Debug("No due notifications")
		return report, nil
	}
	s.logger.WithField("claimed", len(claimed)).Info("Processing due notifications")

	// Outcomes are written even after ctx is done, otherwise records stay in processing forever.
	writeCtx := context.WithoutCancel(ctx)

	var errs []error
	for _, n := range claimed {
		result := resultInterrupted
		if ctx.Err() == nil {
			result = s.deliver(ctx, n, now)
		}

		if result == resultInterrupted {
			if err := s.repo.Release(writeCtx, n.ID); err != nil {
				s.logger.WithError(err).WithField("notification_id", n.ID).Error("Failed to release notification")
				errs = append(errs, fmt.Errorf("notification %d: %w", n.ID, err))
				continue
			}
			report.Released++
			continue
		}

		if err := s.repo.Complete(writeCtx, n.ID, n.Status, n.SentCount, n.FailureCount); err != nil {
			s.logger.WithError(err).WithField("notification_id", n.ID).Error("Failed to record delivery outcome")
			errs = append(errs, fmt.Errorf("notification %d: %w", n.ID, err))
			continue
		}

		report.Deliveries += n.SentCount
		report.DeliveryFailures += n.FailureCount
		switch {
		case result == resultExpired:
			report.Expired++
		case n.Status == notification.StatusSent:
			report.Sent++
		default:
			report.Failed++
		}
	}

	if report.Released > 0 {
		s.logger.WithError(ctx.Err()).WithField("released", report.Released).Warn("Run stopped early, unattempted notifications released")
	}
	s.logger.WithFields(logrus.Fields{
		"claimed":           report.Claimed,
		"sent":              report.Sent,
		"failed":            report.Failed,
		"expired":           report.Expired,
		"released":          report.Released,
		"deliveries":        report.Deliveries,
		"delivery_failures": report.DeliveryFailures,
	}).Info("Finished processing due notifications")
	return report, errors.Join(errs...)
}

// deliver runs one claimed notification and sets its terminal status and counters.
// resultInterrupted means ctx ended before any recipient was tried; n is left untouched then.
func (s *ScheduleService) deliver(ctx context.Context, n *notification.ScheduledNotification, now time.Time) deliveryResult {
	log := s.logger.WithField("notification_id", n.ID)

	if n.IsExpiredAt(now) {
		log.WithField("expires_at", n.ExpiresAt.Time.Format(time.RFC3339)).Warn("Notification expired before delivery")
		n.Status = notification.StatusFailed
		return resultExpired
	}

	recipients, err := s.resolver.ResolveRecipients(ctx, n)
	if err != nil {
		if ctx.Err() != nil {
			log.WithError(err).Warn("Run stopped while resolving recipients")
			return resultInterrupted
		}
		log.WithError(err).Error("Failed to resolve recipients")
		n.Status = notification.StatusFailed
		return resultCompleted
	}
	if len(recipients) == 0 {
		log.Warn("Notification has no recipients")
	}

	for _, r := range recipients {
		if ctx.Err() != nil {
			if n.SentCount+n.FailureCount == 0 {
				log.WithError(ctx.Err()).Warn("Run stopped before the first delivery attempt")
				return resultInterrupted
			}
			log.WithError(ctx.Err()).Warn("Delivery interrupted, remaining recipients skipped")
			break
		}
		if err := s.deliverer.Deliver(ctx, r, n); err != nil {
			n.FailureCount++
			log.WithError(err).WithField("user_id", r.ID).Warn("Delivery to recipient failed")
			continue
		}
		n.SentCount++
	}

	n.Status = notification.Outcome(n.SentCount)
	log.WithFields(logrus.Fields{
		"status":        n.Status,
		"sent_count":    n.SentCount,
		"failure_count": n.FailureCount,
	}).Info("Notification processed")
	return resultCompleted
}
