package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	authrepo "sift-backend/internal/auth/repository"
	syncusecase "sift-backend/internal/sync/usecase"
	"sift-backend/pkg/sse"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

type GmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// Service listens for Gmail push notifications over Pub/Sub and triggers a
// sync run for the affected user, streaming run progress to any open SSE
// connection.
type Service struct {
	pubsubClient *pubsub.Client
	sseManager   *sse.Manager
	userRepo     authrepo.UserRepository
	syncService  *syncusecase.SyncService
	topicName    string
	subName      string
	// Track last historyId per user to drop duplicate notifications. Receive
	// callbacks run concurrently, so access goes through mu.
	mu            sync.Mutex
	lastHistoryID map[string]uint64
}

func NewService(projectID, topicName, credentialsFile string, sseManager *sse.Manager, userRepo authrepo.UserRepository, syncService *syncusecase.SyncService) (*Service, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	return &Service{
		pubsubClient:  client,
		sseManager:    sseManager,
		userRepo:      userRepo,
		syncService:   syncService,
		topicName:     topicName,
		subName:       topicName + "-sub",
		lastHistoryID: make(map[string]uint64),
	}, nil
}

func (s *Service) Start(ctx context.Context) {
	log.Printf("[PubSub] Starting notification service with topic: %s, subscription: %s", s.topicName, s.subName)

	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Printf("[PubSub] Error checking subscription existence: %v", err)
		return
	}

	if !exists {
		topic := s.pubsubClient.Topic(s.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Printf("[PubSub] Error checking topic existence: %v", err)
			return
		}
		if !topicExists {
			log.Printf("[PubSub] Topic does not exist, cannot create subscription")
			return
		}

		sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			log.Printf("[PubSub] Failed to create subscription: %v", err)
			return
		}
		log.Printf("[PubSub] Created subscription: %s", s.subName)
	}

	log.Printf("[PubSub] Listening for messages on subscription: %s", s.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handleMessage(ctx, msg)
		msg.Ack()
	})
	if err != nil {
		log.Printf("[PubSub] Error receiving messages: %v", err)
	}
}

// advanceHistory records historyID as the newest seen for the user. Returns
// false when the notification is a replay of one already handled.
func (s *Service) advanceHistory(userID string, historyID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, exists := s.lastHistoryID[userID]
	if exists && historyID <= last {
		return false
	}
	s.lastHistoryID[userID] = historyID
	return true
}

func (s *Service) handleMessage(ctx context.Context, msg *pubsub.Message) {
	var notification GmailNotification
	if err := json.Unmarshal(msg.Data, &notification); err != nil {
		log.Printf("[PubSub] Failed to unmarshal notification: %v", err)
		return
	}

	log.Printf("[PubSub] Notification for %s (historyId: %d)", notification.EmailAddress, notification.HistoryID)

	user, err := s.userRepo.FindByEmail(notification.EmailAddress)
	if err != nil {
		log.Printf("[PubSub] Error finding user by email %s: %v", notification.EmailAddress, err)
		return
	}
	if user == nil {
		log.Printf("[PubSub] User not found for email: %s", notification.EmailAddress)
		return
	}

	if !s.advanceHistory(user.ID, notification.HistoryID) {
		log.Printf("[PubSub] Skipping duplicate notification for user %s (historyId %d)", user.ID, notification.HistoryID)
		return
	}

	// Run the sync in the background; progress streams to the user's open
	// SSE connections, and the report lands in the log either way.
	go func() {
		observer := NewProgressBroadcaster(s.sseManager, user.ID)
		report, err := s.syncService.RunForUser(context.Background(), user.ID, s.syncService.DefaultOptions(), observer)
		if err != nil {
			log.Printf("[PubSub] Sync for user %s failed to start: %v", user.ID, err)
			return
		}
		observer.SendReport(report)
	}()
}
