package delivery

import (
	"io"
	"net/http"
	"strconv"

	authdelivery "sift-backend/internal/auth/delivery"
	authrepository "sift-backend/internal/auth/repository"
	"sift-backend/internal/notification"
	"sift-backend/internal/sync/provider"
	"sift-backend/internal/sync/repository"
	syncusecase "sift-backend/internal/sync/usecase"
	"sift-backend/pkg/config"
	"sift-backend/pkg/gcal"
	"sift-backend/pkg/gmail"
	"sift-backend/pkg/sse"

	"github.com/gin-gonic/gin"
)

type SyncHandler struct {
	cfg             *config.Config
	syncService     *syncusecase.SyncService
	sseManager      *sse.Manager
	userRepo        authrepository.UserRepository
	processedEmails repository.ProcessedEmailRepository
	calendarEvents  repository.CalendarEventRepository
	syncCosts       repository.SyncCostRepository
	gmailSvc        *gmail.Service
	gcalSvc         *gcal.Service
}

func NewSyncHandler(
	cfg *config.Config,
	syncService *syncusecase.SyncService,
	sseManager *sse.Manager,
	userRepo authrepository.UserRepository,
	processedEmails repository.ProcessedEmailRepository,
	calendarEvents repository.CalendarEventRepository,
	syncCosts repository.SyncCostRepository,
	gmailSvc *gmail.Service,
	gcalSvc *gcal.Service,
) *SyncHandler {
	return &SyncHandler{
		cfg:             cfg,
		syncService:     syncService,
		sseManager:      sseManager,
		userRepo:        userRepo,
		processedEmails: processedEmails,
		calendarEvents:  calendarEvents,
		syncCosts:       syncCosts,
		gmailSvc:        gmailSvc,
		gcalSvc:         gcalSvc,
	}
}

// Run triggers a sync run for the current user and returns the full report.
// Progress streams to the user's SSE connections while the run is going.
func (h *SyncHandler) Run(c *gin.Context) {
	user := authdelivery.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	opts := h.syncService.DefaultOptions()
	if v := c.Query("lookback_days"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			opts.LookbackDays = parsed
		}
	}
	if v := c.Query("max_emails"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			opts.MaxEmails = parsed
		}
	}

	observer := notification.NewProgressBroadcaster(h.sseManager, user.ID)
	report, err := h.syncService.RunForUser(c.Request.Context(), user.ID, opts, observer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	observer.SendReport(report)

	c.JSON(http.StatusOK, report)
}

// TestExtraction runs extraction against one matching recent message without
// writing anything. Diagnostic endpoint.
func (h *SyncHandler) TestExtraction(c *gin.Context) {
	user := authdelivery.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	subject := c.Query("subject")
	if subject == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject query parameter required"})
		return
	}

	events, err := h.syncService.TestExtraction(c.Request.Context(), user.ID, subject)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// History lists the user's processed messages, newest first.
func (h *SyncHandler) History(c *gin.Context) {
	user := authdelivery.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	records, err := h.processedEmails.ListByUser(user.ID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": records})
}

// Events lists the calendar events created for the user.
func (h *SyncHandler) Events(c *gin.Context) {
	user := authdelivery.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	events, err := h.calendarEvents.ListByUser(user.ID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// DeleteEvent marks an event as removed by the user. The row stays in the
// ledger but stops blocking re-creation on later runs.
func (h *SyncHandler) DeleteEvent(c *gin.Context) {
	user := authdelivery.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	eventID := c.Param("id")
	if err := h.calendarEvents.MarkUserDeleted(user.ID, eventID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "event marked deleted"})
}

// Upcoming lists upcoming events straight from the user's Sift calendar.
func (h *SyncHandler) Upcoming(c *gin.Context) {
	user := authdelivery.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	if user.SiftCalendarID == "" {
		c.JSON(http.StatusOK, gin.H{"events": []any{}})
		return
	}

	cal, err := provider.NewGoogleCalendar(h.gcalSvc, user, h.userRepo, h.cfg.EncryptionKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	maxResults := 20
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			maxResults = parsed
		}
	}

	events, err := cal.ListUpcoming(c.Request.Context(), user.SiftCalendarID, maxResults)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// Costs reports the user's total extraction spend across runs.
func (h *SyncHandler) Costs(c *gin.Context) {
	user := authdelivery.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	total, err := h.syncCosts.TotalForUser(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"total_cost": total})
}

// Watch starts Gmail push notifications so new mail triggers a sync.
func (h *SyncHandler) Watch(c *gin.Context) {
	user := authdelivery.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	mail, err := provider.NewGoogleMail(h.gmailSvc, user, h.userRepo, h.cfg.EncryptionKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	topic := "projects/" + h.cfg.GoogleProjectID + "/topics/" + h.cfg.GooglePubSubTopic
	if err := mail.Watch(c.Request.Context(), topic); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "watch started"})
}

// StopWatch stops Gmail push notifications.
func (h *SyncHandler) StopWatch(c *gin.Context) {
	user := authdelivery.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	mail, err := provider.NewGoogleMail(h.gmailSvc, user, h.userRepo, h.cfg.EncryptionKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := mail.StopWatch(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "watch stopped"})
}

// Stream serves the user's SSE progress feed.
func (h *SyncHandler) Stream(c *gin.Context) {
	user := authdelivery.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	ch, unsubscribe := h.sseManager.Subscribe(user.ID)
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case payload, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("message", string(payload))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
