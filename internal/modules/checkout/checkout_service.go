package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"delivery-and-compliance/internal/models"
	"delivery-and-compliance/internal/modules/compliance"
	"delivery-and-compliance/internal/modules/geofence"
	"delivery-and-compliance/pkg/notify"
	"delivery-and-compliance/pkg/payment"
)

// LimitDeniedError carries the full limit-check result when checkout is
// refused, so the handler can surface the category-specific message.
type LimitDeniedError struct {
	Check *models.LimitCheck
}

func (e *LimitDeniedError) Error() string { return e.Check.Message }
func (e *LimitDeniedError) Unwrap() error { return models.ErrLimitExceeded }

// ServiceInterface defines the contract for the checkout service.
type ServiceInterface interface {
	PlaceOrder(ctx context.Context, userID, email, userType string, req models.CreateOrderRequest) (*models.Order, error)
	GetOrderDetails(ctx context.Context, orderID, userID string) (*models.Order, error)
	ListUserOrders(ctx context.Context, userID string, page, limit int) ([]*models.Order, int, error)
}

type service struct {
	repo       RepositoryInterface
	geofence   geofence.ServiceInterface
	compliance compliance.ServiceInterface
	payments   payment.ServiceInterface
	mailer     notify.Sender
	logger     *zap.Logger
	now        func() time.Time
}

func NewService(
	repo RepositoryInterface,
	geofenceSvc geofence.ServiceInterface,
	complianceSvc compliance.ServiceInterface,
	payments payment.ServiceInterface,
	mailer notify.Sender,
	logger *zap.Logger,
) ServiceInterface {
	return &service{
		repo:       repo,
		geofence:   geofenceSvc,
		compliance: complianceSvc,
		payments:   payments,
		mailer:     mailer,
		logger:     logger,
		now:        time.Now,
	}
}

// PlaceOrder runs the full checkout sequence: service-hours gate, zone
// match, minimum-order check, then the serialized limit-check-and-pay, and
// finally order persistence plus a best-effort confirmation email. Payment
// runs inside the compliance commit so two concurrent checkouts for one user
// cannot both charge against the same remaining headroom.
func (s *service) PlaceOrder(ctx context.Context, userID, email, userType string, req models.CreateOrderRequest) (*models.Order, error) {
	if avail := s.geofence.Availability(s.now()); !avail.Available {
		return nil, fmt.Errorf("checkout.PlaceOrder: %w", models.ErrDeliveryClosed)
	}

	validation, err := s.geofence.ValidateAddress(ctx, models.ValidateAddressRequest{Address: req.Address})
	if err != nil {
		return nil, fmt.Errorf("checkout.PlaceOrder: %w", err)
	}
	if !validation.IsValid {
		return nil, fmt.Errorf("checkout.PlaceOrder: %w", models.ErrOutsideDeliveryArea)
	}
	zone := validation.Zone

	if req.Subtotal < zone.MinimumOrder {
		return nil, fmt.Errorf("checkout.PlaceOrder: zone %s requires $%.2f: %w",
			zone.Name, zone.MinimumOrder, models.ErrBelowMinimumOrder)
	}

	total := req.Subtotal + validation.DeliveryFee

	purchase := &models.Purchase{
		ID:          uuid.NewString(),
		UserID:      userID,
		UserType:    userType,
		Items:       req.Items,
		TotalAmount: total,
	}

	var paymentID string
	check, err := s.compliance.CheckAndRecord(ctx, purchase, func(ctx context.Context) error {
		id, err := s.payments.ProcessPayment(ctx, userID, total, req.PaymentMethodID)
		if err != nil {
			return fmt.Errorf("payment processing failed: %w", err)
		}
		paymentID = id
		return nil
	})
	if err != nil {
		if check != nil && !check.Allowed {
			return nil, &LimitDeniedError{Check: check}
		}
		return nil, fmt.Errorf("checkout.PlaceOrder: %w", err)
	}

	order := &models.Order{
		ID:             purchase.ID,
		UserID:         userID,
		Status:         models.OrderStatusConfirmed,
		Items:          req.Items,
		Address:        req.Address,
		ZoneID:         zone.ID,
		ZoneName:       zone.Name,
		DeliveryWindow: validation.EstimatedTime,
		Subtotal:       req.Subtotal,
		DeliveryFee:    validation.DeliveryFee,
		Total:          total,
		PaymentID:      paymentID,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		// Payment went through and the purchase is already in the compliance
		// log; losing the order row needs manual follow-up.
		s.logger.Error("order persistence failed after successful payment",
			zap.String("order_id", order.ID),
			zap.String("payment_id", paymentID),
			zap.Error(err))
		return nil, fmt.Errorf("checkout.PlaceOrder: %w", err)
	}

	if email != "" {
		if err := s.mailer.SendOrderConfirmation(ctx, email, order); err != nil {
			s.logger.Warn("confirmation email failed", zap.String("order_id", order.ID), zap.Error(err))
		}
	}

	return order, nil
}

// GetOrderDetails retrieves a single order, enforcing ownership.
func (s *service) GetOrderDetails(ctx context.Context, orderID, userID string) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("checkout.GetOrderDetails: %w", err)
	}
	if order.UserID != userID {
		return nil, models.ErrNotFound // avoid leaking other users' order IDs
	}
	return order, nil
}

// ListUserOrders retrieves a user's orders with pagination.
func (s *service) ListUserOrders(ctx context.Context, userID string, page, limit int) ([]*models.Order, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	orders, total, err := s.repo.ListByUserID(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("checkout.ListUserOrders: %w", err)
	}
	return orders, total, nil
}
