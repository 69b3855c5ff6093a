package repository

import (
	"strings"
	"time"

	syncdomain "sift-backend/internal/sync/domain"

	"gorm.io/gorm"
)

// calendarEventRepository implements CalendarEventRepository interface
type calendarEventRepository struct {
	db *gorm.DB
}

// NewCalendarEventRepository creates a new instance of calendarEventRepository
func NewCalendarEventRepository(db *gorm.DB) CalendarEventRepository {
	return &calendarEventRepository{
		db: db,
	}
}

// Create records a newly created calendar event
func (r *calendarEventRepository) Create(event *syncdomain.CalendarEvent) error {
	return r.db.Create(event).Error
}

// FindDuplicate looks for an existing event with the same normalized title
// and start time. Matching is case-insensitive and ignores surrounding
// whitespace so that "Team Dinner " and "team dinner" collide.
func (r *calendarEventRepository) FindDuplicate(userID, title string, start time.Time) (*syncdomain.CalendarEvent, error) {
	normalized := strings.ToLower(strings.TrimSpace(title))

	var event syncdomain.CalendarEvent
	err := r.db.Where(
		"user_id = ? AND LOWER(TRIM(event_title)) = ? AND start_datetime = ? AND user_deleted = ?",
		userID, normalized, start, false,
	).First(&event).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// MarkUserDeleted flags an event the user removed from their calendar
func (r *calendarEventRepository) MarkUserDeleted(userID, eventID string) error {
	result := r.db.Model(&syncdomain.CalendarEvent{}).
		Where("user_id = ? AND id = ?", userID, eventID).
		Update("user_deleted", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListByUser returns events created for a user, newest start first
func (r *calendarEventRepository) ListByUser(userID string, limit int) ([]*syncdomain.CalendarEvent, error) {
	var events []*syncdomain.CalendarEvent
	query := r.db.Where("user_id = ?", userID).Order("start_datetime DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
