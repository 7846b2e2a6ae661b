package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"delivery-and-compliance/internal/models"
)

type fakeOrderRepo struct {
	orders    map[string]*models.Order
	createErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*models.Order)}
}

func (f *fakeOrderRepo) Create(ctx context.Context, order *models.Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	cp := *order
	f.orders[order.ID] = &cp
	return nil
}

func (f *fakeOrderRepo) FindByID(ctx context.Context, orderID string) (*models.Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepo) ListByUserID(ctx context.Context, userID string, page, limit int) ([]*models.Order, int, error) {
	var out []*models.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

type fakeGeofence struct {
	open       bool
	validation *models.AddressValidationResult
	err        error
}

func (f *fakeGeofence) ValidateAddress(ctx context.Context, req models.ValidateAddressRequest) (*models.AddressValidationResult, error) {
	return f.validation, f.err
}

func (f *fakeGeofence) Zones() []models.DeliveryZone { return nil }

func (f *fakeGeofence) Availability(at time.Time) models.AvailabilityResult {
	return models.AvailabilityResult{Available: f.open}
}

type fakeCompliance struct {
	check     *models.LimitCheck
	recorded  []*models.Purchase
	confirmed bool
}

func (f *fakeCompliance) CheckLimits(ctx context.Context, userID string, items []models.PurchaseItem, userType string) (*models.LimitCheck, error) {
	return f.check, nil
}

func (f *fakeCompliance) RecordPurchase(ctx context.Context, p *models.Purchase) error {
	f.recorded = append(f.recorded, p)
	return nil
}

func (f *fakeCompliance) CheckAndRecord(ctx context.Context, p *models.Purchase, confirm func(context.Context) error) (*models.LimitCheck, error) {
	if !f.check.Allowed {
		return f.check, models.ErrLimitExceeded
	}
	if confirm != nil {
		if err := confirm(ctx); err != nil {
			return f.check, err
		}
		f.confirmed = true
	}
	f.recorded = append(f.recorded, p)
	return f.check, nil
}

func (f *fakeCompliance) LimitsSummary(ctx context.Context, userID string, userType string) (*models.LimitsSummary, error) {
	return nil, nil
}

type fakePayments struct {
	charges []float64
	err     error
}

func (f *fakePayments) ProcessPayment(ctx context.Context, userID string, amount float64, paymentMethodID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.charges = append(f.charges, amount)
	return "pi_test_1", nil
}

type fakeMailer struct {
	sent []string
}

func (f *fakeMailer) SendOrderConfirmation(ctx context.Context, to string, order *models.Order) error {
	f.sent = append(f.sent, to)
	return nil
}

func inZone() *models.AddressValidationResult {
	return &models.AddressValidationResult{
		IsValid: true,
		Zone: &models.DeliveryZone{
			ID:           "zone-a",
			Name:         "Downtown",
			MinimumOrder: 25,
		},
		DeliveryFee:   10,
		EstimatedTime: "30-45 min",
		Message:       "Delivery available in Downtown",
	}
}

func allowedCheck() *models.LimitCheck {
	return &models.LimitCheck{Allowed: true, Message: "Purchase approved. Within legal limits."}
}

func orderRequest() models.CreateOrderRequest {
	return models.CreateOrderRequest{
		Address:         "123 Market St",
		Items:           []models.PurchaseItem{{ProductType: models.ProductFlower, Quantity: 3.5, Unit: "grams"}},
		Subtotal:        60,
		PaymentMethodID: "pm_card",
	}
}

type testEnv struct {
	repo       *fakeOrderRepo
	geo        *fakeGeofence
	compliance *fakeCompliance
	payments   *fakePayments
	mailer     *fakeMailer
	svc        ServiceInterface
}

func newTestEnv() *testEnv {
	env := &testEnv{
		repo:       newFakeOrderRepo(),
		geo:        &fakeGeofence{open: true, validation: inZone()},
		compliance: &fakeCompliance{check: allowedCheck()},
		payments:   &fakePayments{},
		mailer:     &fakeMailer{},
	}
	env.svc = NewService(env.repo, env.geo, env.compliance, env.payments, env.mailer, zap.NewNop())
	return env
}

func TestPlaceOrderHappyPath(t *testing.T) {
	env := newTestEnv()

	order, err := env.svc.PlaceOrder(context.Background(), "u1", "u1@example.com", models.UserTypeRecreational, orderRequest())
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
	assert.Equal(t, 70.0, order.Total, "subtotal 60 + fee 10")
	assert.Equal(t, "pi_test_1", order.PaymentID)
	assert.Equal(t, "zone-a", order.ZoneID)
	assert.Equal(t, "30-45 min", order.DeliveryWindow)

	require.Len(t, env.payments.charges, 1)
	assert.Equal(t, 70.0, env.payments.charges[0], "the charged amount includes the delivery fee")
	assert.Len(t, env.compliance.recorded, 1)
	assert.Equal(t, []string{"u1@example.com"}, env.mailer.sent)
	assert.Len(t, env.repo.orders, 1)
}

func TestPlaceOrderLimitDenied(t *testing.T) {
	env := newTestEnv()
	env.compliance.check = &models.LimitCheck{
		Allowed:           false,
		DailyLimitReached: true,
		Message:           "This purchase would exceed your daily purchase limit. Flower limit: 28.5g/day.",
	}

	_, err := env.svc.PlaceOrder(context.Background(), "u1", "", models.UserTypeRecreational, orderRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrLimitExceeded)

	var denied *LimitDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Contains(t, denied.Check.Message, "28.5g/day")

	assert.Empty(t, env.payments.charges, "a denied purchase must not charge the card")
	assert.Empty(t, env.repo.orders)
}

func TestPlaceOrderPaymentFailure(t *testing.T) {
	env := newTestEnv()
	env.payments.err = errors.New("card declined")

	_, err := env.svc.PlaceOrder(context.Background(), "u1", "", models.UserTypeRecreational, orderRequest())
	require.Error(t, err)
	assert.Empty(t, env.compliance.recorded, "a failed payment must not enter the compliance log")
	assert.Empty(t, env.repo.orders)
}

func TestPlaceOrderOutsideDeliveryArea(t *testing.T) {
	env := newTestEnv()
	env.geo.validation = &models.AddressValidationResult{IsValid: false, Message: "not serviceable"}

	_, err := env.svc.PlaceOrder(context.Background(), "u1", "", models.UserTypeRecreational, orderRequest())
	assert.ErrorIs(t, err, models.ErrOutsideDeliveryArea)
	assert.Empty(t, env.payments.charges)
}

func TestPlaceOrderAddressNotFound(t *testing.T) {
	env := newTestEnv()
	env.geo.validation = nil
	env.geo.err = models.ErrAddressNotFound

	_, err := env.svc.PlaceOrder(context.Background(), "u1", "", models.UserTypeRecreational, orderRequest())
	assert.ErrorIs(t, err, models.ErrAddressNotFound)
}

func TestPlaceOrderClosedHours(t *testing.T) {
	env := newTestEnv()
	env.geo.open = false

	_, err := env.svc.PlaceOrder(context.Background(), "u1", "", models.UserTypeRecreational, orderRequest())
	assert.ErrorIs(t, err, models.ErrDeliveryClosed)
	assert.Empty(t, env.payments.charges)
}

func TestPlaceOrderBelowMinimum(t *testing.T) {
	env := newTestEnv()
	req := orderRequest()
	req.Subtotal = 20 // zone minimum is 25

	_, err := env.svc.PlaceOrder(context.Background(), "u1", "", models.UserTypeRecreational, req)
	assert.ErrorIs(t, err, models.ErrBelowMinimumOrder)
	assert.Empty(t, env.payments.charges)
}

func TestGetOrderDetailsOwnership(t *testing.T) {
	env := newTestEnv()

	order, err := env.svc.PlaceOrder(context.Background(), "u1", "", models.UserTypeRecreational, orderRequest())
	require.NoError(t, err)

	got, err := env.svc.GetOrderDetails(context.Background(), order.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	// Another user sees not-found, not forbidden.
	_, err = env.svc.GetOrderDetails(context.Background(), order.ID, "u2")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
