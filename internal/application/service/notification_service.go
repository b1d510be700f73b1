package service

import (
	"context"
	"fmt"

	"github.com/garyjia/hospital-itsm/internal/application/dispatcher"
	"github.com/garyjia/hospital-itsm/internal/application/port"
	"github.com/garyjia/hospital-itsm/internal/domain/apperr"
	"github.com/garyjia/hospital-itsm/internal/domain/entity"
	"github.com/garyjia/hospital-itsm/internal/domain/event"
)

// Notification handler names registered on the dispatcher
const (
	HandlerNotifyRequestCreated   = "notification.request_created"
	HandlerNotifyRequestCompleted = "notification.request_completed"
	HandlerNotifyItemUpdated      = "notification.request_item_updated"
	HandlerNotifyLowStock         = "notification.low_stock"
	HandlerNotifyReorderPoint     = "notification.reorder_point"
)

// Subscriber registers named event handlers
type Subscriber interface {
	SubscribeNamed(eventType event.Type, name string, handler dispatcher.Handler, description ...string)
}

// NotificationService stores in-app notifications derived from domain events
type NotificationService interface {
	Register(sub Subscriber)
	ListForUser(ctx context.Context, userID int64, unreadOnly bool) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, id int64) error
}

type notificationServiceImpl struct {
	notificationRepo port.NotificationRepository
	requestRepo      port.RequestRepository
	catalogRepo      port.CatalogRepository
	logger           Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	notificationRepo port.NotificationRepository,
	requestRepo port.RequestRepository,
	catalogRepo port.CatalogRepository,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		notificationRepo: notificationRepo,
		requestRepo:      requestRepo,
		catalogRepo:      catalogRepo,
		logger:           logger,
	}
}

// Register subscribes the notification handlers
func (s *notificationServiceImpl) Register(sub Subscriber) {
	sub.SubscribeNamed(event.TypeRequestCreated, HandlerNotifyRequestCreated, s.onRequestCreated,
		"notify the requester that the request was submitted")
	sub.SubscribeNamed(event.TypeRequestCompleted, HandlerNotifyRequestCompleted, s.onRequestCompleted,
		"notify the requester that the request was completed")
	sub.SubscribeNamed(event.TypeRequestItemUpdated, HandlerNotifyItemUpdated, s.onItemUpdated,
		"notify the requester about item fulfillment")
	sub.SubscribeNamed(event.TypeLowStockAlert, HandlerNotifyLowStock, s.onLowStock,
		"notify inventory staff about low stock")
	sub.SubscribeNamed(event.TypeReorderPointReached, HandlerNotifyReorderPoint, s.onReorderPoint,
		"notify inventory staff that an item should be reordered")
}

func (s *notificationServiceImpl) ListForUser(ctx context.Context, userID int64, unreadOnly bool) ([]*entity.Notification, error) {
	if userID == 0 {
		return nil, apperr.Validation("user is required")
	}
	return s.notificationRepo.ListForUser(ctx, userID, unreadOnly, 0)
}

func (s *notificationServiceImpl) MarkRead(ctx context.Context, id int64) error {
	ok, err := s.notificationRepo.MarkRead(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("notification", id)
	}
	return nil
}

func (s *notificationServiceImpl) onRequestCreated(ctx context.Context, evt *event.Event) error {
	p, err := event.PayloadAs[event.RequestCreated](evt)
	if err != nil {
		return err
	}
	requestID := p.RequestID
	return s.store(ctx, &entity.Notification{
		RecipientID: &p.RequesterID,
		Type:        entity.NotificationRequestCreated,
		Title:       "Request submitted",
		Message:     fmt.Sprintf("Your %s request #%d %q was submitted with %s priority.", p.Type, p.RequestID, p.Title, p.Priority),
		RequestID:   &requestID,
	})
}

func (s *notificationServiceImpl) onRequestCompleted(ctx context.Context, evt *event.Event) error {
	p, err := event.PayloadAs[event.RequestCompleted](evt)
	if err != nil {
		return err
	}
	requestID := p.RequestID
	return s.store(ctx, &entity.Notification{
		RecipientID: &p.RequesterID,
		Type:        entity.NotificationRequestCompleted,
		Title:       "Request " + p.Status,
		Message:     fmt.Sprintf("Request #%d is now %s.", p.RequestID, p.Status),
		RequestID:   &requestID,
	})
}

func (s *notificationServiceImpl) onItemUpdated(ctx context.Context, evt *event.Event) error {
	p, err := event.PayloadAs[event.RequestItemUpdated](evt)
	if err != nil {
		return err
	}
	req, err := s.requestRepo.GetByID(ctx, p.RequestID)
	if err != nil {
		return err
	}
	if req == nil {
		return apperr.NotFound("request", p.RequestID)
	}

	itemName := fmt.Sprintf("item %d", p.CatalogItemID)
	if item, err := s.catalogRepo.GetByID(ctx, p.CatalogItemID); err == nil && item != nil {
		itemName = item.Name
	}
	requestID := p.RequestID
	return s.store(ctx, &entity.Notification{
		RecipientID: &req.RequesterID,
		Type:        entity.NotificationItemUpdated,
		Title:       fmt.Sprintf("%s %s", itemName, p.Status),
		Message:     fmt.Sprintf("Request #%d: %s", p.RequestID, p.Message),
		RequestID:   &requestID,
	})
}

func (s *notificationServiceImpl) onLowStock(ctx context.Context, evt *event.Event) error {
	p, err := event.PayloadAs[event.LowStockAlert](evt)
	if err != nil {
		return err
	}
	return s.store(ctx, &entity.Notification{
		Type:    entity.NotificationLowStock,
		Title:   "Low stock: " + p.ItemName,
		Message: fmt.Sprintf("%s is down to %d (minimum %d).", p.ItemName, p.Quantity, p.MinStockLevel),
	})
}

func (s *notificationServiceImpl) onReorderPoint(ctx context.Context, evt *event.Event) error {
	p, err := event.PayloadAs[event.ReorderPointReached](evt)
	if err != nil {
		return err
	}
	return s.store(ctx, &entity.Notification{
		Type:    entity.NotificationReorderPoint,
		Title:   "Reorder " + p.ItemName,
		Message: fmt.Sprintf("%s is down to %d (reorder point %d).", p.ItemName, p.Quantity, p.ReorderPoint),
	})
}

func (s *notificationServiceImpl) store(ctx context.Context, n *entity.Notification) error {
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		s.logger.Error("Failed to store notification", "type", n.Type, "error", err)
		return err
	}
	return nil
}
