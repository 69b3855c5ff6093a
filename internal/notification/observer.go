package notification

import (
	"encoding/json"
	"log"

	syncusecase "sift-backend/internal/sync/usecase"
	"sift-backend/pkg/sse"
)

// ProgressBroadcaster forwards sync progress events to a user's open SSE
// streams. Marshaling or delivery problems are logged and dropped; progress
// is advisory and must never affect the run.
type ProgressBroadcaster struct {
	manager *sse.Manager
	userID  string
}

func NewProgressBroadcaster(manager *sse.Manager, userID string) *ProgressBroadcaster {
	return &ProgressBroadcaster{manager: manager, userID: userID}
}

func (b *ProgressBroadcaster) Notify(event syncusecase.ProgressEvent) {
	payload, err := json.Marshal(map[string]interface{}{
		"type":    "sync_progress",
		"stage":   event.Stage,
		"current": event.Current,
		"total":   event.Total,
		"message": event.Message,
	})
	if err != nil {
		log.Printf("[SSE] Failed to marshal progress event: %v", err)
		return
	}
	b.manager.Publish(b.userID, payload)
}

// SendReport pushes the final run report to the user's streams.
func (b *ProgressBroadcaster) SendReport(report *syncusecase.SyncReport) {
	payload, err := json.Marshal(map[string]interface{}{
		"type":   "sync_report",
		"report": report,
	})
	if err != nil {
		log.Printf("[SSE] Failed to marshal sync report: %v", err)
		return
	}
	b.manager.Publish(b.userID, payload)
}
