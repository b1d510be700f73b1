package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/hospital-itsm/internal/application/port"
	"github.com/garyjia/hospital-itsm/internal/domain/apperr"
	"github.com/garyjia/hospital-itsm/internal/domain/entity"
	"github.com/garyjia/hospital-itsm/internal/domain/event"
	domainwf "github.com/garyjia/hospital-itsm/internal/domain/workflow"
)

// HandlerFulfillment is the dispatcher name of the fulfillment handler
const HandlerFulfillment = "fulfillment.request_approved"

// Messages carried by request-item-updated events
const (
	MessageNotInStock = "Item not in stock"
	MessageFulfilled  = "Item fulfilled from %s"
)

// defaultConflictRetries bounds re-reads when a stock record changed between
// lookup and decrement
const defaultConflictRetries = 3

// FulfillmentDeps are the collaborators of the fulfillment integration
type FulfillmentDeps struct {
	Requests  port.RequestRepository
	Items     port.RequestItemRepository
	Catalog   port.CatalogRepository
	Stock     port.StockRepository
	Comments  port.CommentRepository
	TxManager port.TransactionManager
	Publisher port.EventPublisher
	Logger    Logger
}

// Fulfillment satisfies the items of approved requests from warehouse stock
type Fulfillment struct {
	FulfillmentDeps
	now             func() time.Time
	conflictRetries int
}

// NewFulfillment creates the fulfillment integration
func NewFulfillment(deps FulfillmentDeps) *Fulfillment {
	return &Fulfillment{
		FulfillmentDeps: deps,
		now:             func() time.Time { return time.Now().UTC() },
		conflictRetries: defaultConflictRetries,
	}
}

// Register subscribes the handler to request-approved
func (f *Fulfillment) Register(sub Subscriber) {
	sub.SubscribeNamed(event.TypeRequestApproved, HandlerFulfillment, f.HandleRequestApproved,
		"issue warehouse stock for the items of an approved request")
}

type itemOutcome int

const (
	itemFulfilled itemOutcome = iota
	itemBackordered
)

// HandleRequestApproved processes every unfulfilled item independently and
// moves the request to Fulfilled once nothing is left. Item failures are
// logged and reported together so the delivery can be retried; items already
// fulfilled are skipped on redelivery.
func (f *Fulfillment) HandleRequestApproved(ctx context.Context, evt *event.Event) error {
	p, err := event.PayloadAs[event.RequestApproved](evt)
	if err != nil {
		return err
	}

	req, err := f.Requests.GetByID(ctx, p.RequestID)
	if err != nil {
		return apperr.Integration(HandlerFulfillment, err)
	}
	if req == nil {
		return apperr.Integration(HandlerFulfillment, apperr.NotFound("request", p.RequestID))
	}

	items, err := f.Items.GetUnfulfilled(ctx, req.ID)
	if err != nil {
		return apperr.Integration(HandlerFulfillment, err)
	}
	if len(items) == 0 {
		return nil
	}

	performer := p.ApproverID
	if performer == nil {
		performer = req.AssigneeID
	}

	var failures []error
	for _, item := range items {
		outcome, err := f.fulfillItem(ctx, req, item, performer, evt.CorrelationID)
		if err != nil {
			getMetrics().fulfillmentItems.WithLabelValues("failed").Inc()
			f.Logger.Error("Failed to fulfill request item",
				"request_id", req.ID, "item_id", item.ID, "event_id", evt.ID, "error", err)
			failures = append(failures, fmt.Errorf("item %d: %w", item.ID, err))
			continue
		}
		switch outcome {
		case itemFulfilled:
			getMetrics().fulfillmentItems.WithLabelValues("fulfilled").Inc()
		case itemBackordered:
			getMetrics().fulfillmentItems.WithLabelValues("backordered").Inc()
		}
	}

	if err := f.completeIfFulfilled(ctx, req.ID, evt.CorrelationID); err != nil {
		failures = append(failures, err)
	}
	if len(failures) > 0 {
		return apperr.Integration(HandlerFulfillment, errors.Join(failures...))
	}
	return nil
}

// fulfillItem issues stock for one item in its own transaction
func (f *Fulfillment) fulfillItem(ctx context.Context, req *entity.Request, item *entity.RequestItem, performer *int64, corr string) (itemOutcome, error) {
	var outcome itemOutcome
	err := f.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		catalogItem, err := f.Catalog.GetByID(txCtx, item.CatalogItemID)
		if err != nil {
			return err
		}
		if catalogItem == nil {
			return apperr.NotFound("catalog item", item.CatalogItemID)
		}

		rec, err := f.reserve(txCtx, item)
		if err != nil {
			return err
		}
		if rec == nil {
			outcome = itemBackordered
			if err := f.Items.MarkBackordered(txCtx, item.ID, MessageNotInStock); err != nil {
				return err
			}
			return f.publish(txCtx, corr, event.RequestItemUpdated{
				RequestID:     req.ID,
				ItemID:        item.ID,
				CatalogItemID: item.CatalogItemID,
				Status:        entity.ItemStatusBackordered,
				Message:       MessageNotInStock,
			})
		}

		ts := f.now()
		remaining := rec.Quantity - item.Quantity
		if err := f.Stock.CreateMovement(txCtx, &entity.StockMovement{
			StockRecordID:  rec.ID,
			CatalogItemID:  item.CatalogItemID,
			Type:           entity.MovementTypeIssue,
			Quantity:       item.Quantity,
			QuantityBefore: rec.Quantity,
			QuantityAfter:  remaining,
			Reference:      entity.RequestReference(req.ID),
			PerformedByID:  performer,
			CreatedAt:      ts,
		}); err != nil {
			return err
		}
		if err := f.Items.MarkFulfilled(txCtx, item.ID, ts); err != nil {
			return err
		}

		outcome = itemFulfilled
		payloads := []event.Payload{event.RequestItemUpdated{
			RequestID:     req.ID,
			ItemID:        item.ID,
			CatalogItemID: item.CatalogItemID,
			Status:        entity.ItemStatusFulfilled,
			Message:       fmt.Sprintf(MessageFulfilled, rec.Location),
		}}
		if remaining <= catalogItem.MinStockLevel {
			payloads = append(payloads, event.LowStockAlert{
				CatalogItemID: catalogItem.ID,
				StockRecordID: rec.ID,
				ItemName:      catalogItem.Name,
				Quantity:      remaining,
				MinStockLevel: catalogItem.MinStockLevel,
			})
		}
		if remaining <= catalogItem.ReorderPoint {
			payloads = append(payloads, event.ReorderPointReached{
				CatalogItemID: catalogItem.ID,
				StockRecordID: rec.ID,
				ItemName:      catalogItem.Name,
				Quantity:      remaining,
				ReorderPoint:  catalogItem.ReorderPoint,
			})
		}
		return f.publish(txCtx, corr, payloads...)
	})
	return outcome, err
}

// reserve decrements the freshest stock record that covers the item. A lost
// decrement race re-reads the candidates. nil means nothing covers it.
func (f *Fulfillment) reserve(ctx context.Context, item *entity.RequestItem) (*entity.StockRecord, error) {
	for attempt := 0; attempt <= f.conflictRetries; attempt++ {
		rec, err := f.Stock.FindAvailable(ctx, item.CatalogItemID, item.Quantity)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, nil
		}

		ok, err := f.Stock.Decrement(ctx, rec.ID, item.Quantity)
		if err != nil {
			return nil, err
		}
		if ok {
			return rec, nil
		}
		f.Logger.Warn("Stock changed before decrement, retrying",
			"stock_record_id", rec.ID, "item_id", item.ID, "attempt", attempt+1)
	}
	return nil, fmt.Errorf("stock for catalog item %d kept changing after %d attempts", item.CatalogItemID, f.conflictRetries+1)
}

// completeIfFulfilled moves a Completed request with no open items to Fulfilled
func (f *Fulfillment) completeIfFulfilled(ctx context.Context, requestID int64, corr string) error {
	return f.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		open, err := f.Items.CountUnfulfilled(txCtx, requestID)
		if err != nil {
			return err
		}
		if open > 0 {
			return nil
		}

		req, err := f.Requests.GetByID(txCtx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return apperr.NotFound("request", requestID)
		}
		previous := req.Status
		next, err := domainwf.Next(txCtx, domainwf.State(previous), domainwf.TriggerFulfill)
		if err != nil {
			f.Logger.Warn("Request not fulfillable from its status", "request_id", requestID, "status", previous)
			return nil
		}

		done := f.now()
		req.Status = next.String()
		req.CompletedDate = &done
		if err := f.Requests.Update(txCtx, req); err != nil {
			return err
		}
		if err := f.Comments.Create(txCtx, &entity.RequestComment{
			RequestID: requestID,
			Text:      "All items fulfilled from warehouse stock",
			CreatedAt: done,
		}); err != nil {
			return err
		}

		f.Logger.Info("Request fulfilled", "request_id", requestID)
		return f.publish(txCtx, corr,
			event.RequestUpdated{
				RequestID:      requestID,
				Status:         req.Status,
				PreviousStatus: previous,
				Change:         "fulfillment",
			},
			event.RequestCompleted{
				RequestID:   requestID,
				RequesterID: req.RequesterID,
				Status:      req.Status,
				CompletedAt: done,
			},
		)
	})
}

func (f *Fulfillment) publish(ctx context.Context, corr string, payloads ...event.Payload) error {
	for _, p := range payloads {
		if err := f.Publisher.Publish(ctx, event.NewWithCorrelation(p, corr)); err != nil {
			return fmt.Errorf("publish %s: %w", p.EventType(), err)
		}
	}
	return nil
}
