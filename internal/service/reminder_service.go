package service

import (
	"context"
	"fmt"
	"html"
	"time"

	"go.uber.org/zap"

	"github.com/libinstruct/lir-api/internal/dto"
	"github.com/libinstruct/lir-api/internal/models"
	"github.com/libinstruct/lir-api/pkg/mailer"
)

type reminderClassStore interface {
	IncompleteBefore(ctx context.Context, cutoff time.Time) ([]models.ClassRecord, error)
}

type reminderUserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// ReminderService mails record owners about past classes that still lack an
// attendance count. Dispatch is best-effort: one failed mail never blocks
// the rest of the run.
type ReminderService struct {
	classes  reminderClassStore
	users    reminderUserStore
	settings settingsReader
	mail     mailer.Mailer
	baseURL  string
	logger   *zap.Logger
}

// NewReminderService constructs the service. baseURL is the public address
// the edit deep links are built against.
func NewReminderService(classes reminderClassStore, users reminderUserStore, settings settingsReader, mail mailer.Mailer, baseURL string, logger *zap.Logger) *ReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderService{
		classes:  classes,
		users:    users,
		settings: settings,
		mail:     mail,
		baseURL:  baseURL,
		logger:   logger,
	}
}

// Run scans for records whose class ended before today and still have no
// attendance, then mails each record's owner. Running twice in one day
// resends; no suppression state is kept.
func (s *ReminderService) Run(ctx context.Context, now time.Time) (*dto.ReminderRunResponse, error) {
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	records, err := s.classes.IncompleteBefore(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("scan incomplete records: %w", err)
	}

	displayName := models.DefaultSettings().DisplayName
	if settings, err := s.settings.Current(ctx); err == nil {
		displayName = settings.DisplayName
	} else {
		s.logger.Warn("settings lookup failed, using default display name", zap.Error(err))
	}

	result := &dto.ReminderRunResponse{Scanned: len(records)}
	for _, rec := range records {
		owner, err := s.users.GetByID(ctx, rec.OwnerID)
		if err != nil {
			s.logger.Warn("reminder owner lookup failed",
				zap.Int64("class_id", rec.ID), zap.String("owner_id", rec.OwnerID), zap.Error(err))
			result.Failed++
			continue
		}
		subject := "REMINDER: " + displayName
		body := s.composeBody(owner.DisplayName, rec)
		if err := s.mail.Send(owner.Email, subject, body); err != nil {
			s.logger.Warn("reminder dispatch failed",
				zap.Int64("class_id", rec.ID), zap.String("to", owner.Email), zap.Error(err))
			result.Failed++
			continue
		}
		result.Sent++
	}

	s.logger.Info("reminder run finished",
		zap.Int("scanned", result.Scanned), zap.Int("sent", result.Sent), zap.Int("failed", result.Failed))
	return result, nil
}

func (s *ReminderService) composeBody(ownerName string, rec models.ClassRecord) string {
	course := html.EscapeString(rec.DepartmentGroup)
	if rec.CourseNumber != nil && *rec.CourseNumber != "" {
		course += " " + html.EscapeString(*rec.CourseNumber)
	}
	editLink := fmt.Sprintf("%s/classes/%d/edit", s.baseURL, rec.ID)
	return fmt.Sprintf(
		"<p>Hello %s,</p>"+
			"<p>This is a reminder that the class you taught for %s on %s does not have an attendance count yet. "+
			"Please <a href=\"%s\">update the class record</a> with the number of attendees.</p>",
		html.EscapeString(ownerName),
		course,
		rec.ClassStart.Format("January 2, 2006"),
		editLink,
	)
}
