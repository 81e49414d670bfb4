// Package grpcsvc публикует операции над заказами через gRPC.
package grpcsvc

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	ordersv1 "github.com/vladislavdragonenkov/marketplace/api/orders/v1"
	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/service/ordering"
)

// UserIDHeader ключ metadata с идентификатором аутентифицированного пользователя.
const UserIDHeader = "x-user-id"

// Ordering операции над заказами, которые публикует транспорт.
type Ordering interface {
	Create(ctx context.Context, userID string, req ordering.CreateOrderRequest) (ordering.OrderView, error)
	Get(ctx context.Context, userID, orderID string) (ordering.OrderView, error)
	GetByNumber(ctx context.Context, userID string, number int64) (ordering.OrderView, error)
	List(ctx context.Context, userID, statusCode string, limit int) ([]ordering.OrderView, error)
	Update(ctx context.Context, userID, orderID string, req ordering.UpdateOrderRequest) (ordering.OrderView, error)
	UpdateStatus(ctx context.Context, userID, orderID, statusCode string) (ordering.OrderView, error)
	UpdateItemStatus(ctx context.Context, userID, orderID, orderItemID, statusCode, reason string) (ordering.OrderView, error)
	Delete(ctx context.Context, userID, orderID string) error
}

// OrderService реализует ordersv1.OrderServiceServer.
type OrderService struct {
	ordersv1.UnimplementedOrderServiceServer

	orders   Ordering
	idemRepo domain.IdempotencyRepository
	logger   *log.Entry
}

// NewOrderService конструирует сервис с зависимостями; idemRepo может быть nil.
func NewOrderService(orders Ordering, idemRepo domain.IdempotencyRepository, logger *log.Entry) *OrderService {
	if logger == nil {
		logger = log.WithField("component", "grpc-order-service")
	}
	return &OrderService{
		orders:   orders,
		idemRepo: idemRepo,
		logger:   logger,
	}
}

// CreateOrder оформляет заказ. Повтор с тем же idempotency-key возвращает сохранённый ответ.
func (s *OrderService) CreateOrder(ctx context.Context, req *ordersv1.CreateOrderRequest) (*ordersv1.OrderResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	userID, err := requireUserID(ctx)
	if err != nil {
		return nil, err
	}

	return withIdempotency(s, ctx, ordersv1.OrderService_CreateOrder_FullMethodName, userID, req,
		func(ctx context.Context) (*ordersv1.OrderResponse, error) {
			view, err := s.orders.Create(ctx, userID, fromCreateRequest(req))
			if err != nil {
				return nil, s.toStatus(err, "CreateOrder")
			}
			return &ordersv1.OrderResponse{Order: toAPIOrder(view)}, nil
		},
	)
}

// GetOrder возвращает заказ пользователя по идентификатору.
func (s *OrderService) GetOrder(ctx context.Context, req *ordersv1.GetOrderRequest) (*ordersv1.OrderResponse, error) {
	if req == nil || strings.TrimSpace(req.OrderID) == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}
	userID, err := requireUserID(ctx)
	if err != nil {
		return nil, err
	}

	view, err := s.orders.Get(ctx, userID, req.OrderID)
	if err != nil {
		return nil, s.toStatus(err, "GetOrder")
	}
	return &ordersv1.OrderResponse{Order: toAPIOrder(view)}, nil
}

// GetOrderByNumber возвращает заказ пользователя по номеру.
func (s *OrderService) GetOrderByNumber(ctx context.Context, req *ordersv1.GetOrderByNumberRequest) (*ordersv1.OrderResponse, error) {
	if req == nil || req.OrderNumber <= 0 {
		return nil, status.Error(codes.InvalidArgument, "order_number must be > 0")
	}
	userID, err := requireUserID(ctx)
	if err != nil {
		return nil, err
	}

	view, err := s.orders.GetByNumber(ctx, userID, req.OrderNumber)
	if err != nil {
		return nil, s.toStatus(err, "GetOrderByNumber")
	}
	return &ordersv1.OrderResponse{Order: toAPIOrder(view)}, nil
}

// ListOrders возвращает заказы пользователя, новые первыми.
func (s *OrderService) ListOrders(ctx context.Context, req *ordersv1.ListOrdersRequest) (*ordersv1.ListOrdersResponse, error) {
	if req == nil {
		req = &ordersv1.ListOrdersRequest{}
	}
	if req.Limit < 0 {
		return nil, status.Error(codes.InvalidArgument, "limit must be >= 0")
	}
	userID, err := requireUserID(ctx)
	if err != nil {
		return nil, err
	}

	views, err := s.orders.List(ctx, userID, req.Status, int(req.Limit))
	if err != nil {
		return nil, s.toStatus(err, "ListOrders")
	}

	result := make([]*ordersv1.Order, 0, len(views))
	for _, view := range views {
		result = append(result, toAPIOrder(view))
	}
	return &ordersv1.ListOrdersResponse{Orders: result}, nil
}

// UpdateOrder меняет статус, заметки и количества позиций.
func (s *OrderService) UpdateOrder(ctx context.Context, req *ordersv1.UpdateOrderRequest) (*ordersv1.OrderResponse, error) {
	if req == nil || strings.TrimSpace(req.OrderID) == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}
	userID, err := requireUserID(ctx)
	if err != nil {
		return nil, err
	}

	update := ordering.UpdateOrderRequest{Status: req.Status, Notes: req.Notes}
	for idx, item := range req.Items {
		if item == nil {
			return nil, status.Errorf(codes.InvalidArgument, "items[%d] is nil", idx)
		}
		update.Items = append(update.Items, ordering.ItemQuantity{OrderItemID: item.OrderItemID, Quantity: item.Quantity})
	}

	view, err := s.orders.Update(ctx, userID, req.OrderID, update)
	if err != nil {
		return nil, s.toStatus(err, "UpdateOrder")
	}
	return &ordersv1.OrderResponse{Order: toAPIOrder(view)}, nil
}

// UpdateOrderStatus переводит заказ в новый статус.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, req *ordersv1.UpdateOrderStatusRequest) (*ordersv1.OrderResponse, error) {
	if req == nil || strings.TrimSpace(req.OrderID) == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}
	userID, err := requireUserID(ctx)
	if err != nil {
		return nil, err
	}

	view, err := s.orders.UpdateStatus(ctx, userID, req.OrderID, req.Status)
	if err != nil {
		return nil, s.toStatus(err, "UpdateOrderStatus")
	}
	return &ordersv1.OrderResponse{Order: toAPIOrder(view)}, nil
}

// UpdateOrderItemStatus меняет статус одной позиции заказа.
func (s *OrderService) UpdateOrderItemStatus(ctx context.Context, req *ordersv1.UpdateOrderItemStatusRequest) (*ordersv1.OrderResponse, error) {
	if req == nil || strings.TrimSpace(req.OrderID) == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}
	if strings.TrimSpace(req.OrderItemID) == "" {
		return nil, status.Error(codes.InvalidArgument, "order_item_id is required")
	}
	userID, err := requireUserID(ctx)
	if err != nil {
		return nil, err
	}

	view, err := s.orders.UpdateItemStatus(ctx, userID, req.OrderID, req.OrderItemID, req.Status, req.Reason)
	if err != nil {
		return nil, s.toStatus(err, "UpdateOrderItemStatus")
	}
	return &ordersv1.OrderResponse{Order: toAPIOrder(view)}, nil
}

// DeleteOrder удаляет заказ и возвращает остатки на склад.
func (s *OrderService) DeleteOrder(ctx context.Context, req *ordersv1.DeleteOrderRequest) (*ordersv1.DeleteOrderResponse, error) {
	if req == nil || strings.TrimSpace(req.OrderID) == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}
	userID, err := requireUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.orders.Delete(ctx, userID, req.OrderID); err != nil {
		return nil, s.toStatus(err, "DeleteOrder")
	}
	return &ordersv1.DeleteOrderResponse{}, nil
}

// toStatus переводит доменную ошибку в gRPC status. Внутренние причины клиенту не отдаются.
func (s *OrderService) toStatus(err error, operation string) error {
	var stockErr *domain.InsufficientStockError

	switch {
	case errors.Is(err, domain.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, domain.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &stockErr):
		return status.Error(codes.FailedPrecondition, stockErr.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrOrderVersionConflict):
		return status.Error(codes.Aborted, domain.ErrOrderVersionConflict.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		s.logger.WithError(err).WithField("operation", operation).Error("order request failed")
		return status.Error(codes.Internal, "internal error")
	}
}

func requireUserID(ctx context.Context) (string, error) {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(UserIDHeader); len(values) > 0 {
			if userID := strings.TrimSpace(values[0]); userID != "" {
				return userID, nil
			}
		}
	}
	return "", status.Error(codes.Unauthenticated, UserIDHeader+" metadata is required")
}
