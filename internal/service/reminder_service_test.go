package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/libinstruct/lir-api/internal/models"
)

type reminderClassStoreStub struct {
	records []models.ClassRecord
	cutoff  time.Time
}

func (s *reminderClassStoreStub) IncompleteBefore(ctx context.Context, cutoff time.Time) ([]models.ClassRecord, error) {
	s.cutoff = cutoff
	return s.records, nil
}

type reminderUserStoreStub struct {
	users map[string]*models.User
}

func (s *reminderUserStoreStub) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

type mailerStub struct {
	sent    []sentMail
	failFor map[string]error
}

type sentMail struct {
	to      string
	subject string
	body    string
}

func (m *mailerStub) Send(toAddress, subject, htmlBody string) error {
	if err, ok := m.failFor[toAddress]; ok {
		return err
	}
	m.sent = append(m.sent, sentMail{to: toAddress, subject: subject, body: htmlBody})
	return nil
}

func pastRecord(id int64, ownerID string) models.ClassRecord {
	start := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	course := "HIST 210"
	return models.ClassRecord{
		ID:              id,
		LibrarianName:   "Ada Park",
		ClassStart:      start,
		ClassEnd:        start.Add(time.Hour),
		DepartmentGroup: "History",
		CourseNumber:    &course,
		OwnerID:         ownerID,
	}
}

func TestReminderServiceRunMailsOwners(t *testing.T) {
	classes := &reminderClassStoreStub{records: []models.ClassRecord{pastRecord(1, "user-1")}}
	users := &reminderUserStoreStub{users: map[string]*models.User{
		"user-1": {ID: "user-1", Email: "ada@example.edu", DisplayName: "Ada Park"},
	}}
	mail := &mailerStub{}
	svc := NewReminderService(classes, users, &settingsReaderStub{settings: models.DefaultSettings()}, mail, "https://lir.example.edu", nil)

	now := time.Date(2026, 2, 5, 1, 0, 0, 0, time.UTC)
	result, err := svc.Run(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 1, result.Scanned)
	require.Equal(t, 1, result.Sent)
	require.Equal(t, 0, result.Failed)

	// The scan cutoff is the start of the current day, not the instant.
	require.Equal(t, time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC), classes.cutoff)

	require.Len(t, mail.sent, 1)
	msg := mail.sent[0]
	require.Equal(t, "ada@example.edu", msg.to)
	require.Equal(t, "REMINDER: Library Instruction Recorder", msg.subject)
	require.Contains(t, msg.body, "Hello Ada Park")
	require.Contains(t, msg.body, "History HIST 210")
	require.Contains(t, msg.body, "https://lir.example.edu/classes/1/edit")
}

func TestReminderServiceRunContinuesPastFailures(t *testing.T) {
	classes := &reminderClassStoreStub{records: []models.ClassRecord{
		pastRecord(1, "missing-user"),
		pastRecord(2, "failing-mail"),
		pastRecord(3, "user-3"),
	}}
	users := &reminderUserStoreStub{users: map[string]*models.User{
		"failing-mail": {ID: "failing-mail", Email: "down@example.edu", DisplayName: "Down"},
		"user-3":       {ID: "user-3", Email: "ok@example.edu", DisplayName: "Okay"},
	}}
	mail := &mailerStub{failFor: map[string]error{"down@example.edu": errors.New("smtp refused")}}
	svc := NewReminderService(classes, users, &settingsReaderStub{settings: models.DefaultSettings()}, mail, "https://lir.example.edu", nil)

	result, err := svc.Run(context.Background(), time.Now())
	require.NoError(t, err)
	require.Equal(t, 3, result.Scanned)
	require.Equal(t, 1, result.Sent)
	require.Equal(t, 2, result.Failed)
	require.Len(t, mail.sent, 1)
	require.Equal(t, "ok@example.edu", mail.sent[0].to)
}
