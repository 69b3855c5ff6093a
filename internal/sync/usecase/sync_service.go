package usecase

import (
	"context"
	"errors"
	"fmt"

	authdomain "sift-backend/internal/auth/domain"
	authrepository "sift-backend/internal/auth/repository"
	"sift-backend/internal/sync/provider"
	"sift-backend/internal/sync/repository"
	"sift-backend/pkg/ai"
	"sift-backend/pkg/config"
	"sift-backend/pkg/costs"
	"sift-backend/pkg/gcal"
	"sift-backend/pkg/gmail"
	"sift-backend/pkg/imap"
)

// SyncService assembles a SyncWorker per run: it looks the user up, binds
// the right mail provider to their credentials, and hands the run's report
// back to the caller.
type SyncService struct {
	cfg             *config.Config
	userRepo        authrepository.UserRepository
	processedEmails repository.ProcessedEmailRepository
	calendarEvents  repository.CalendarEventRepository
	syncCosts       repository.SyncCostRepository

	gmailSvc  *gmail.Service
	gcalSvc   *gcal.Service
	imapSvc   *imap.Service
	extractor ai.EventExtractor
	normalize *Normalizer
}

func NewSyncService(
	cfg *config.Config,
	userRepo authrepository.UserRepository,
	processedEmails repository.ProcessedEmailRepository,
	calendarEvents repository.CalendarEventRepository,
	syncCosts repository.SyncCostRepository,
	gmailSvc *gmail.Service,
	gcalSvc *gcal.Service,
	imapSvc *imap.Service,
	extractor ai.EventExtractor,
) (*SyncService, error) {
	normalize, err := NewNormalizer(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	return &SyncService{
		cfg:             cfg,
		userRepo:        userRepo,
		processedEmails: processedEmails,
		calendarEvents:  calendarEvents,
		syncCosts:       syncCosts,
		gmailSvc:        gmailSvc,
		gcalSvc:         gcalSvc,
		imapSvc:         imapSvc,
		extractor:       extractor,
		normalize:       normalize,
	}, nil
}

// DefaultOptions returns the configured candidate-window bounds.
func (s *SyncService) DefaultOptions() SyncOptions {
	return SyncOptions{
		LookbackDays: s.cfg.SyncLookbackDays,
		MaxEmails:    s.cfg.SyncMaxEmails,
	}
}

func (s *SyncService) buildWorker(user *authdomain.User) (*SyncWorker, error) {
	var mail MailProvider
	if user.IMAPHost != "" {
		m, err := provider.NewIMAPMail(s.imapSvc, user, s.cfg.EncryptionKey)
		if err != nil {
			return nil, err
		}
		mail = m
	} else {
		m, err := provider.NewGoogleMail(s.gmailSvc, user, s.userRepo, s.cfg.EncryptionKey)
		if err != nil {
			return nil, err
		}
		mail = m
	}

	calendar, err := provider.NewGoogleCalendar(s.gcalSvc, user, s.userRepo, s.cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}

	return NewSyncWorker(SyncWorkerConfig{
		UserID:          user.ID,
		CalendarID:      user.SiftCalendarID,
		Mail:            mail,
		Calendar:        calendar,
		Extractor:       ai.NewRetryingExtractor(s.extractor),
		Normalizer:      s.normalize,
		ProcessedEmails: s.processedEmails,
		CalendarEvents:  s.calendarEvents,
		SyncCosts:       s.syncCosts,
		Users:           s.userRepo,
		Tracker:         costs.NewTracker(s.cfg.GeminiModel),
	}), nil
}

// RunForUser executes one sync run for the user. The returned report is
// complete even when the run died early; the error covers only failures
// before a worker could start.
func (s *SyncService) RunForUser(ctx context.Context, userID string, opts SyncOptions, observer ProgressObserver) (*SyncReport, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}

	worker, err := s.buildWorker(user)
	if err != nil {
		return nil, fmt.Errorf("preparing sync for user %s: %w", userID, err)
	}

	return worker.Run(ctx, opts, observer), nil
}

// TestExtraction runs extraction against the first recent message whose
// subject contains the substring, without writing anything. Diagnostic.
func (s *SyncService) TestExtraction(ctx context.Context, userID, subjectSubstring string) ([]ai.ExtractedEvent, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}

	worker, err := s.buildWorker(user)
	if err != nil {
		return nil, err
	}

	return worker.TestSingleEmail(ctx, s.DefaultOptions(), subjectSubstring)
}
