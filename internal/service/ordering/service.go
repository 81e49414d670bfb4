// Package ordering реализует оформление заказов и управление их жизненным циклом.
package ordering

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/metrics"
	"github.com/vladislavdragonenkov/marketplace/internal/pricing"
	"github.com/vladislavdragonenkov/marketplace/internal/tracing"
)

// Ограничения выборки списка заказов.
const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// Service точка входа для всех операций над заказами.
type Service struct {
	orders    domain.OrderRepository
	users     domain.UserDirectory
	snapshots *SnapshotReader
	assembler *Assembler
	policy    pricing.Policy
	logger    *log.Entry
	metrics   *metrics.OrderMetrics
	now       func() time.Time
	newID     func() string
}

// Option настраивает Service.
type Option func(*Service)

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics задаёт prometheus-метрики.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPricingPolicy задаёт политику расчёта для новых заказов.
func WithPricingPolicy(policy pricing.Policy) Option {
	return func(s *Service) {
		s.policy = policy
	}
}

// WithClock подменяет источник времени (используется в тестах).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator подменяет генератор идентификаторов.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

// NewService конструирует сервис с зависимостями.
func NewService(
	orders domain.OrderRepository,
	catalog domain.CatalogService,
	users domain.UserDirectory,
	localizer domain.StatusLocalizer,
	options ...Option,
) *Service {
	s := &Service{
		orders:    orders,
		users:     users,
		snapshots: NewSnapshotReader(catalog),
		policy:    pricing.DefaultPolicy(),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
	for _, option := range options {
		option(s)
	}
	if s.logger == nil {
		s.logger = log.WithField("component", "ordering-service")
	}
	s.assembler = NewAssembler(localizer, s.logger)
	return s
}

// Create оформляет заказ: валидация, проверка пользователя, снимок каталога, расчёт и запись.
func (s *Service) Create(ctx context.Context, userID string, req CreateOrderRequest) (view OrderView, err error) {
	ctx, done := s.start(ctx, "create", attribute.String("user_id", userID))
	defer func() { done(err) }()

	if err := ValidateCreate(req); err != nil {
		return OrderView{}, err
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return OrderView{}, err
	}

	snapshots, err := s.snapshots.Read(ctx, req.Items)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			s.metrics.RecordStockRejection()
		}
		return OrderView{}, err
	}

	order := s.buildOrder(userID, req, snapshots)
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return OrderView{}, domain.NewPersistenceError("build order", errors.Join(errs...))
	}

	event, err := domain.NewOrderEvent(&order, order.CreatedAt).OutboxMessage(domain.EventOrderCreated)
	if err != nil {
		return OrderView{}, domain.NewPersistenceError("build order event", err)
	}

	created, err := s.orders.Create(ctx, order, event)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			s.metrics.RecordStockRejection()
		}
		return OrderView{}, domain.NewPersistenceError("create order", err)
	}

	s.metrics.RecordOrderCreated(created.GrandTotal.InexactFloat64())
	s.metrics.RecordOutboxEvent(event.EventType)
	s.logger.WithFields(log.Fields{
		"order_id":     created.ID,
		"order_number": created.OrderNumber,
		"user_id":      userID,
		"grand_total":  created.GrandTotal.StringFixed(domain.MoneyScale),
	}).Info("order created")

	return s.assembler.Assemble(ctx, created)
}

// Get возвращает заказ пользователя по идентификатору.
func (s *Service) Get(ctx context.Context, userID, orderID string) (view OrderView, err error) {
	ctx, done := s.start(ctx, "get", attribute.String("order_id", orderID))
	defer func() { done(err) }()

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return OrderView{}, s.readError(err, orderID)
	}
	if !order.OwnedBy(userID) {
		return OrderView{}, domain.NewNotFoundError("order", orderID)
	}
	return s.assembler.Assemble(ctx, order)
}

// GetByNumber возвращает заказ пользователя по номеру заказа.
func (s *Service) GetByNumber(ctx context.Context, userID string, number int64) (view OrderView, err error) {
	ctx, done := s.start(ctx, "get_by_number", attribute.Int64("order_number", number))
	defer func() { done(err) }()

	ref := orderNumberRef(number)
	order, err := s.orders.GetByNumber(ctx, number)
	if err != nil {
		return OrderView{}, s.readError(err, ref)
	}
	if !order.OwnedBy(userID) {
		return OrderView{}, domain.NewNotFoundError("order", ref)
	}
	return s.assembler.Assemble(ctx, order)
}

// List возвращает заказы пользователя, новые первыми; statusCode фильтрует по статусу.
func (s *Service) List(ctx context.Context, userID, statusCode string, limit int) (views []OrderView, err error) {
	ctx, done := s.start(ctx, "list", attribute.String("user_id", userID))
	defer func() { done(err) }()

	filter := domain.ListFilter{Limit: normalizeLimit(limit)}
	if strings.TrimSpace(statusCode) != "" {
		status, ok := domain.ParseOrderStatus(statusCode)
		if !ok {
			return nil, domain.NewNotFoundError("order status", statusCode)
		}
		filter.Status = status
	}

	orders, err := s.orders.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, domain.NewPersistenceError("list orders", err)
	}
	return s.assembler.AssembleAll(ctx, orders)
}

// Update меняет статус, заметки и количества позиций одним изменением.
func (s *Service) Update(ctx context.Context, userID, orderID string, req UpdateOrderRequest) (view OrderView, err error) {
	ctx, done := s.start(ctx, "update", attribute.String("order_id", orderID))
	defer func() { done(err) }()

	action := domain.ModifyStatus
	if req.changesContent() {
		action = domain.ModifyContent
	}
	order, err := s.loadForModify(ctx, userID, orderID, action)
	if err != nil {
		return OrderView{}, err
	}
	if err := ValidateUpdate(req); err != nil {
		return OrderView{}, err
	}

	now := s.now()
	working := order.Clone()
	var adjustments []domain.StockAdjustment

	notesChanged := req.Notes != nil && *req.Notes != working.Notes
	if notesChanged {
		working.Notes = *req.Notes
	}

	quantitiesChanged := false
	for _, change := range req.Items {
		item, ok := working.Item(change.OrderItemID)
		if !ok {
			return OrderView{}, domain.NewNotFoundError("order item", change.OrderItemID)
		}
		if item.Quantity == change.Quantity {
			continue
		}
		if item.Status == domain.ItemStatusShipped || item.Status == domain.ItemStatusDelivered {
			return OrderView{}, domain.NewValidationError("items", "quantity of item "+item.ID+" in status "+string(item.Status)+" cannot change")
		}
		adjustments = append(adjustments, domain.StockAdjustment{
			ItemID:    item.ItemID,
			VariantID: item.ItemVariantID,
			Delta:     item.Quantity - change.Quantity,
		})
		item.Quantity = change.Quantity
		quantitiesChanged = true
	}
	if quantitiesChanged {
		pricing.Apply(&working)
		if working.Payment.PaidAt == nil {
			working.Payment.Amount = working.GrandTotal
		}
	}

	previous := working.Status
	if req.Status != nil {
		next, err := s.resolveTransition(working.Status, *req.Status)
		if err != nil {
			return OrderView{}, err
		}
		working.Status = next
		if next == domain.OrderStatusCancelled && previous != next {
			adjustments = append(adjustments, releaseAll(&working)...)
		}
	}

	working.UpdatedAt = now
	events, err := s.updateEvents(&working, previous, now, notesChanged || quantitiesChanged)
	if err != nil {
		return OrderView{}, err
	}
	if len(events) == 0 {
		return s.assembler.Assemble(ctx, order)
	}

	if err := s.save(ctx, &working, adjustments, events); err != nil {
		return OrderView{}, err
	}
	if previous != working.Status {
		s.metrics.RecordStatusTransition(string(previous), string(working.Status))
	}
	return s.assembler.Assemble(ctx, working)
}

// UpdateStatus переводит заказ в новый статус; позиции не затрагиваются.
func (s *Service) UpdateStatus(ctx context.Context, userID, orderID, statusCode string) (view OrderView, err error) {
	ctx, done := s.start(ctx, "update_status", attribute.String("order_id", orderID), attribute.String("status", statusCode))
	defer func() { done(err) }()

	order, err := s.loadForModify(ctx, userID, orderID, domain.ModifyStatus)
	if err != nil {
		return OrderView{}, err
	}

	next, err := s.resolveTransition(order.Status, statusCode)
	if err != nil {
		return OrderView{}, err
	}
	if next == order.Status {
		return s.assembler.Assemble(ctx, order)
	}

	now := s.now()
	working := order.Clone()
	previous := working.Status
	working.Status = next
	working.UpdatedAt = now

	var adjustments []domain.StockAdjustment
	if next == domain.OrderStatusCancelled {
		adjustments = releaseAll(&working)
	}

	events, err := s.updateEvents(&working, previous, now, false)
	if err != nil {
		return OrderView{}, err
	}
	if err := s.save(ctx, &working, adjustments, events); err != nil {
		return OrderView{}, err
	}

	s.metrics.RecordStatusTransition(string(previous), string(next))
	s.logger.WithFields(log.Fields{
		"order_id": orderID,
		"from":     previous,
		"to":       next,
	}).Info("order status changed")

	return s.assembler.Assemble(ctx, working)
}

// UpdateItemStatus меняет статус одной позиции; статус заказа не пересчитывается.
func (s *Service) UpdateItemStatus(ctx context.Context, userID, orderID, orderItemID, statusCode, reason string) (view OrderView, err error) {
	ctx, done := s.start(ctx, "update_item_status",
		attribute.String("order_id", orderID),
		attribute.String("order_item_id", orderItemID),
		attribute.String("status", statusCode),
	)
	defer func() { done(err) }()

	order, err := s.loadForModify(ctx, userID, orderID, domain.ModifyStatus)
	if err != nil {
		return OrderView{}, err
	}

	next, ok := domain.ParseItemStatus(statusCode)
	if !ok {
		return OrderView{}, domain.NewValidationError("status", "unknown item status "+statusCode)
	}

	now := s.now()
	working := order.Clone()
	item, ok := working.Item(orderItemID)
	if !ok {
		return OrderView{}, domain.NewNotFoundError("order item", orderItemID)
	}
	if item.Status == next {
		return s.assembler.Assemble(ctx, order)
	}
	if !item.Status.CanTransitionTo(next) {
		return OrderView{}, domain.NewValidationError("status",
			"item cannot move from "+string(item.Status)+" to "+string(next))
	}

	reason = strings.TrimSpace(reason)
	if next == domain.ItemStatusOnHold && reason == "" {
		return OrderView{}, domain.NewValidationError("on_hold_reason", "is required when putting an item on hold")
	}
	switch {
	case reason != "":
		item.OnHoldReason = reason
	case next != domain.ItemStatusOnHold:
		item.OnHoldReason = ""
	}
	if next == domain.ItemStatusDelivered {
		at := now
		item.DeliveredAt = &at
	}
	item.Status = next
	working.UpdatedAt = now

	evt := domain.NewOrderEvent(&working, now)
	evt.OrderItemID = item.ID
	evt.ItemStatus = string(next)
	event, err := evt.OutboxMessage(domain.EventOrderItemStatusChanged)
	if err != nil {
		return OrderView{}, domain.NewPersistenceError("build order event", err)
	}

	if err := s.save(ctx, &working, nil, []domain.OutboxMessage{event}); err != nil {
		return OrderView{}, err
	}
	s.metrics.RecordItemStatusTransition(string(next))

	return s.assembler.Assemble(ctx, working)
}

// Delete удаляет заказ вместе с позициями, адресами и оплатой и возвращает остатки.
func (s *Service) Delete(ctx context.Context, userID, orderID string) (err error) {
	ctx, done := s.start(ctx, "delete", attribute.String("order_id", orderID))
	defer func() { done(err) }()

	order, err := s.loadForModify(ctx, userID, orderID, domain.ModifyContent)
	if err != nil {
		return err
	}

	event, err := domain.NewOrderEvent(&order, s.now()).OutboxMessage(domain.EventOrderDeleted)
	if err != nil {
		return domain.NewPersistenceError("build order event", err)
	}

	if err := s.orders.Delete(ctx, order, releaseAll(&order), event); err != nil {
		return domain.NewPersistenceError("delete order", err)
	}

	s.metrics.RecordOrderDeleted()
	s.metrics.RecordOutboxEvent(event.EventType)
	s.logger.WithField("order_id", orderID).Info("order deleted")
	return nil
}

func (s *Service) buildOrder(userID string, req CreateOrderRequest, snapshots []domain.LineSnapshot) domain.Order {
	now := s.now()
	orderID := s.newID()

	lines := make([]pricing.Line, len(snapshots))
	for i, snap := range snapshots {
		lines[i] = pricing.Line{UnitPrice: snap.UnitPrice, Quantity: snap.Quantity}
	}
	totals := pricing.Compute(s.policy, lines)

	items := make([]domain.OrderItem, 0, len(snapshots))
	for i, snap := range snapshots {
		items = append(items, domain.OrderItem{
			ID:            s.newID(),
			OrderID:       orderID,
			ItemID:        snap.ItemID,
			ItemVariantID: snap.VariantID,
			NameEn:        snap.NameEn,
			NameFr:        snap.NameFr,
			VariantNameEn: snap.VariantNameEn,
			VariantNameFr: snap.VariantNameFr,
			Quantity:      snap.Quantity,
			UnitPrice:     snap.UnitPrice,
			TotalPrice:    totals.LineTotals[i],
			Status:        domain.ItemStatusPending,
			CreatedAt:     now,
		})
	}

	payment := domain.OrderPayment{
		ID:                s.newID(),
		OrderID:           orderID,
		PaymentMethodID:   strings.TrimSpace(req.Payment.PaymentMethodID),
		Amount:            totals.GrandTotal,
		Provider:          strings.TrimSpace(req.Payment.Provider),
		ProviderReference: strings.TrimSpace(req.Payment.ProviderReference),
	}
	if payment.ProviderReference != "" {
		paidAt := now
		payment.PaidAt = &paidAt
	}

	return domain.Order{
		ID:            orderID,
		UserID:        userID,
		OrderDate:     now,
		Status:        domain.OrderStatusPending,
		Subtotal:      totals.Subtotal,
		TaxTotal:      totals.TaxTotal,
		ShippingTotal: totals.ShippingTotal,
		GrandTotal:    totals.GrandTotal,
		Notes:         req.Notes,
		Pricing:       s.policy.Snapshot(),
		Items:         items,
		Shipping:      s.buildAddress(orderID, domain.AddressTypeShipping, req.Shipping),
		Billing:       s.buildAddress(orderID, domain.AddressTypeBilling, req.Billing),
		Payment:       payment,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (s *Service) buildAddress(orderID string, kind domain.AddressType, in AddressInput) domain.OrderAddress {
	return domain.OrderAddress{
		ID:            s.newID(),
		OrderID:       orderID,
		Type:          kind,
		FullName:      strings.TrimSpace(in.FullName),
		Line1:         strings.TrimSpace(in.Line1),
		Line2:         strings.TrimSpace(in.Line2),
		Line3:         strings.TrimSpace(in.Line3),
		City:          strings.TrimSpace(in.City),
		ProvinceState: strings.TrimSpace(in.ProvinceState),
		PostalCode:    strings.TrimSpace(in.PostalCode),
		Country:       strings.TrimSpace(in.Country),
	}
}

func (s *Service) requireUser(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.NewValidationError("user_id", "is required")
	}
	exists, err := s.users.UserExists(ctx, userID)
	if err != nil {
		return domain.NewPersistenceError("check user", err)
	}
	if !exists {
		return domain.NewNotFoundError("user", userID)
	}
	return nil
}

// loadForModify загружает заказ и проверяет право на изменение до разбора остальной части запроса.
func (s *Service) loadForModify(ctx context.Context, userID, orderID string, action domain.ModifyAction) (domain.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.readError(err, orderID)
	}
	if err := domain.CanModify(&order, userID, action); err != nil {
		s.logger.WithFields(log.Fields{
			"order_id": orderID,
			"user_id":  userID,
		}).WithError(err).Warn("order modification denied")
		return domain.Order{}, err
	}
	return order, nil
}

func (s *Service) resolveTransition(current domain.OrderStatus, code string) (domain.OrderStatus, error) {
	next, ok := domain.ParseOrderStatus(code)
	if !ok {
		return "", domain.NewNotFoundError("order status", code)
	}
	if next == current {
		return next, nil
	}
	if !current.CanTransitionTo(next) {
		return "", domain.NewValidationError("status",
			"order cannot move from "+string(current)+" to "+string(next))
	}
	return next, nil
}

func (s *Service) updateEvents(order *domain.Order, previous domain.OrderStatus, now time.Time, contentChanged bool) ([]domain.OutboxMessage, error) {
	var events []domain.OutboxMessage
	if contentChanged {
		msg, err := domain.NewOrderEvent(order, now).OutboxMessage(domain.EventOrderUpdated)
		if err != nil {
			return nil, domain.NewPersistenceError("build order event", err)
		}
		events = append(events, msg)
	}
	if previous != order.Status {
		evt := domain.NewOrderEvent(order, now)
		evt.PreviousStatus = string(previous)
		msg, err := evt.OutboxMessage(domain.EventOrderStatusChanged)
		if err != nil {
			return nil, domain.NewPersistenceError("build order event", err)
		}
		events = append(events, msg)
	}
	return events, nil
}

// save записывает изменения и при успехе переводит order на новую версию.
func (s *Service) save(ctx context.Context, order *domain.Order, adjustments []domain.StockAdjustment, events []domain.OutboxMessage) error {
	if err := s.orders.Update(ctx, *order, adjustments, events...); err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			s.metrics.RecordStockRejection()
		}
		return domain.NewPersistenceError("update order", err)
	}
	order.Version++
	for _, event := range events {
		s.metrics.RecordOutboxEvent(event.EventType)
	}
	return nil
}

func (s *Service) readError(err error, ref string) error {
	if errors.Is(err, domain.ErrOrderNotFound) {
		return domain.NewNotFoundError("order", ref)
	}
	return domain.NewPersistenceError("load order", err)
}

// start открывает спан операции и возвращает функцию завершения, фиксирующую метрики.
func (s *Service) start(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	started := time.Now()
	ctx, span := tracing.StartSpan(ctx, "ordering."+operation, attrs...)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			if errors.Is(err, domain.ErrPersistence) {
				s.logger.WithError(err).WithFields(log.Fields{
					"operation": operation,
					"trace_id":  tracing.TraceID(ctx),
				}).Error("order operation failed")
			}
		}
		span.End()
		s.metrics.RecordOperation(operation, err, time.Since(started))
	}
}

// releaseAll возвращает на склад количества всех позиций заказа.
func releaseAll(order *domain.Order) []domain.StockAdjustment {
	adjustments := make([]domain.StockAdjustment, 0, len(order.Items))
	for _, item := range order.Items {
		adjustments = append(adjustments, domain.StockAdjustment{
			ItemID:    item.ItemID,
			VariantID: item.ItemVariantID,
			Delta:     item.Quantity,
		})
	}
	return adjustments
}

func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

func orderNumberRef(number int64) string {
	return "#" + strconv.FormatInt(number, 10)
}
