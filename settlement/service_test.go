package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"laundry-api/apperr"
	"laundry-api/authz"
	"laundry-api/gateway"
	"laundry-api/gateway/mocks"
	"laundry-api/models"
	"laundry-api/notify"
	"laundry-api/pricing"
	"laundry-api/store"
	"laundry-api/store/testdb"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"gorm.io/gorm"
)

type env struct {
	db  *gorm.DB
	f   *testdb.Fixture
	svc *Service
	rec *notify.Recorder
}

func setup(t *testing.T, gw gateway.Gateway) *env {
	t.Helper()
	db := testdb.Open(t)
	rec := &notify.Recorder{}
	return &env{
		db:  db,
		f:   testdb.Seed(t, db),
		svc: NewService(store.NewUnitOfWork(db, store.DefaultRetryPolicy, rec), authz.ContextGate{}, gw),
		rec: rec,
	}
}

func as(u models.User) context.Context {
	return authz.WithActor(context.Background(), authz.Actor{ID: u.ID, Role: u.Role, TenantID: u.TenantID})
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decp(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

// fiftyDollarOrder is a delivered, unpaid order totalling 50.00.
func (e *env) fiftyDollarOrder(t *testing.T) *models.Order {
	return e.f.Order(t, e.db, models.StatusDelivered, func(o *models.Order) {
		o.Subtotal = dec("50")
		o.TotalAmount = dec("50")
	})
}

func (e *env) setWallet(t *testing.T, amount string) {
	require.NoError(t, e.db.Model(&models.User{}).Where("id = ?", e.f.Customer.ID).
		Update("wallet_balance", dec(amount)).Error)
}

func (e *env) wallet(t *testing.T) decimal.Decimal {
	var u models.User
	require.NoError(t, e.db.First(&u, e.f.Customer.ID).Error)
	return u.WalletBalance
}

func TestPartialThenFullGatewayRefund(t *testing.T) {
	sim := gateway.NewSimulated(false, false)
	e := setup(t, sim)
	o := e.fiftyDollarOrder(t)

	paid, err := e.svc.Pay(as(e.f.Customer), o.ID, PayInput{})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCard, paid.Order.PaymentMethod)
	require.NotNil(t, paid.Order.ExternalPaymentRef)
	require.NotNil(t, paid.Order.PaidAt)
	assertDec(t, "50", paid.GatewayAmount)

	manager := as(e.f.Owner)
	res, err := e.svc.Refund(manager, o.ID, RefundInput{Amount: decp("20"), Reason: models.ReasonRequestedByCustomer})
	require.NoError(t, err)
	assertDec(t, "20", res.RefundAmount)
	assert.Equal(t, models.FundingGateway, res.RefundType)
	assert.Equal(t, models.StatusPartiallyRefunded, res.Order.Status)
	assertDec(t, "30", res.Order.RemainingPaid())

	res, err = e.svc.Refund(manager, o.ID, RefundInput{Reason: models.ReasonDuplicate})
	require.NoError(t, err)
	assertDec(t, "30", res.RefundAmount)
	assert.Equal(t, models.StatusRefunded, res.Order.Status)

	after := testdb.Reload(t, e.db, o.ID)
	assert.Equal(t, models.StatusRefunded, after.Status)
	assertDec(t, "50", after.RefundedAmount)
	assertDec(t, "50", sim.Refunded(*paid.Order.ExternalPaymentRef))

	refunds, err := e.svc.Refunds(manager, o.ID)
	require.NoError(t, err)
	require.Len(t, refunds, 2)
	assert.NotNil(t, refunds[0].GatewayRef)
	assert.NotEqual(t, refunds[0].IdempotencyKey, refunds[1].IdempotencyKey)

	h, err := store.LoadHistory(e.db, o.ID)
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.Equal(t, models.StatusPartiallyRefunded, h[0].ToStatus)
	assert.Equal(t, models.StatusRefunded, h[1].ToStatus)

	assert.Equal(t, []notify.EventType{
		notify.EventPaymentReceived, notify.EventRefundIssued, notify.EventRefundIssued,
	}, e.rec.Types())
}

func TestRefundCap(t *testing.T) {
	e := setup(t, gateway.NewSimulated(false, false))
	o := e.fiftyDollarOrder(t)
	_, err := e.svc.Pay(as(e.f.Customer), o.ID, PayInput{})
	require.NoError(t, err)
	manager := as(e.f.Owner)

	_, err = e.svc.Refund(manager, o.ID, RefundInput{Amount: decp("50.01")})
	require.True(t, apperr.Is(err, apperr.CodeRefundExceedsPaid))
	assert.Equal(t, "50.00", apperr.From(err).Details["remaining_paid"])

	_, err = e.svc.Refund(manager, o.ID, RefundInput{Amount: decp("0.001")})
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	res, err := e.svc.Refund(manager, o.ID, RefundInput{Amount: decp("50")})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRefunded, res.Order.Status)

	_, err = e.svc.Refund(manager, o.ID, RefundInput{Amount: decp("1")})
	assert.True(t, apperr.Is(err, apperr.CodeInvalidTransition))
}

func TestRefundPreconditions(t *testing.T) {
	e := setup(t, gateway.NewSimulated(false, false))
	o := e.fiftyDollarOrder(t)

	_, err := e.svc.Refund(as(e.f.Owner), o.ID, RefundInput{})
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	_, err = e.svc.Refund(as(e.f.Attendant), o.ID, RefundInput{})
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))

	_, err = e.svc.Refund(as(e.f.Owner), o.ID, RefundInput{Reason: "because"})
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	_, err = e.svc.Refund(as(e.f.Owner), 4040, RefundInput{})
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestRefundToWallet(t *testing.T) {
	sim := gateway.NewSimulated(false, false)
	e := setup(t, sim)
	o := e.fiftyDollarOrder(t)
	paid, err := e.svc.Pay(as(e.f.Customer), o.ID, PayInput{})
	require.NoError(t, err)

	res, err := e.svc.Refund(as(e.f.Owner), o.ID, RefundInput{Amount: decp("15"), RefundToWallet: true})
	require.NoError(t, err)
	assert.Equal(t, models.FundingWallet, res.RefundType)
	assert.Nil(t, res.Refund.GatewayRef)
	assertDec(t, "15", e.wallet(t))
	assert.True(t, sim.Refunded(*paid.Order.ExternalPaymentRef).IsZero())

	// the rest can still go back to the card in full
	res, err = e.svc.Refund(as(e.f.Owner), o.ID, RefundInput{})
	require.NoError(t, err)
	assert.Equal(t, models.FundingGateway, res.RefundType)
	assertDec(t, "35", sim.Refunded(*paid.Order.ExternalPaymentRef))
}

func TestMixedPaymentAndRefund(t *testing.T) {
	sim := gateway.NewSimulated(false, false)
	e := setup(t, sim)
	e.setWallet(t, "30")
	o := e.fiftyDollarOrder(t)

	paid, err := e.svc.Pay(as(e.f.Customer), o.ID, PayInput{UseWallet: true})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentMixed, paid.Order.PaymentMethod)
	assertDec(t, "30", paid.WalletAmount)
	assertDec(t, "20", paid.GatewayAmount)
	assertDec(t, "0", e.wallet(t))

	res, err := e.svc.Refund(as(e.f.Owner), o.ID, RefundInput{})
	require.NoError(t, err)
	assert.Equal(t, models.FundingMixed, res.RefundType)
	assertDec(t, "20", res.Refund.GatewayAmount)
	assertDec(t, "30", res.Refund.WalletAmount)
	assertDec(t, "30", e.wallet(t))
	assertDec(t, "20", sim.Refunded(*paid.Order.ExternalPaymentRef))
}

func TestPayFromWalletOnly(t *testing.T) {
	gw := mocks.NewMockGateway(gomock.NewController(t))
	e := setup(t, gw)
	e.setWallet(t, "80")
	o := e.fiftyDollarOrder(t)

	paid, err := e.svc.Pay(as(e.f.Customer), o.ID, PayInput{UseWallet: true})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentWallet, paid.Order.PaymentMethod)
	assert.Nil(t, paid.Order.ExternalPaymentRef)
	assertDec(t, "30", e.wallet(t))

	_, err = e.svc.Pay(as(e.f.Customer), o.ID, PayInput{UseWallet: true})
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
}

func TestGatewayRefundFailureLeavesNoTrace(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)
	e := setup(t, gw)
	ref := "ch_existing"
	paidAt := time.Now().Add(-time.Hour)
	o := e.f.Order(t, e.db, models.StatusDelivered, func(o *models.Order) {
		o.Subtotal = dec("50")
		o.TotalAmount = dec("50")
		o.PaidAmount = dec("50")
		o.PaidAt = &paidAt
		o.ExternalPaymentRef = &ref
		o.PaymentMethod = models.PaymentCard
	})

	gw.EXPECT().
		Refund(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req gateway.RefundRequest) (string, error) {
			assert.Equal(t, ref, req.ChargeRef)
			assertDec(t, "20", req.Amount)
			assert.NotEmpty(t, req.IdempotencyKey)
			return "", errors.New("upstream timeout")
		})

	_, err := e.svc.Refund(as(e.f.Owner), o.ID, RefundInput{Amount: decp("20")})
	require.True(t, apperr.Is(err, apperr.CodeGateway), "%v", err)

	after := testdb.Reload(t, e.db, o.ID)
	assert.Equal(t, models.StatusDelivered, after.Status)
	assert.True(t, after.RefundedAmount.IsZero())
	assert.Equal(t, o.Version, after.Version)

	var refunds int64
	require.NoError(t, e.db.Model(&models.Refund{}).Count(&refunds).Error)
	assert.Zero(t, refunds)
	h, err := store.LoadHistory(e.db, o.ID)
	require.NoError(t, err)
	assert.Empty(t, h)
	assert.Empty(t, e.rec.Events())
}

func TestPayGatewayFailureRestoresWallet(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)
	e := setup(t, gw)
	e.setWallet(t, "10")
	o := e.fiftyDollarOrder(t)

	gw.EXPECT().
		Charge(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req gateway.ChargeRequest) (string, error) {
			assertDec(t, "40", req.Amount)
			assert.Equal(t, "cus_customer", req.CustomerRef)
			return "", gateway.ErrDeclined
		})

	_, err := e.svc.Pay(as(e.f.Customer), o.ID, PayInput{UseWallet: true})
	require.True(t, apperr.Is(err, apperr.CodeGateway))
	assert.ErrorIs(t, err, gateway.ErrDeclined)

	assertDec(t, "10", e.wallet(t))
	after := testdb.Reload(t, e.db, o.ID)
	assert.Nil(t, after.PaidAt)
	assert.True(t, after.PaidAmount.IsZero())
}

func TestSubmitTipRejectsDuplicate(t *testing.T) {
	sim := gateway.NewSimulated(false, false)
	e := setup(t, sim)
	driver := e.f.Driver.ID
	o := e.f.Order(t, e.db, models.StatusOutForDelivery, func(o *models.Order) {
		o.DriverID = &driver
		o.Subtotal = dec("20")
		o.TaxAmount = dec("1.60")
		o.DeliveryFee = dec("5")
		o.TotalAmount = dec("26.60")
	})
	customer := as(e.f.Customer)

	tip, err := e.svc.SubmitTip(customer, o.ID, dec("10"))
	require.NoError(t, err)
	require.NotNil(t, tip.TransferRef)
	assert.Equal(t, &driver, tip.DriverID)

	after := testdb.Reload(t, e.db, o.ID)
	assertDec(t, "10", after.TipAmount)
	assertDec(t, "36.60", after.TotalAmount)
	assertDec(t, "10", after.TipSettledAmount)
	require.NoError(t, pricing.Verify(after))

	_, err = e.svc.SubmitTip(customer, o.ID, dec("10"))
	require.True(t, apperr.Is(err, apperr.CodeDuplicateTip))
	assertDec(t, "10", testdb.Reload(t, e.db, o.ID).TipAmount)

	events := e.rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notify.EventTipReceived, events[0].Type)
	assert.Equal(t, driver, events[0].Recipient)
}

func TestTipPayoutFailureStillRecordsTip(t *testing.T) {
	e := setup(t, gateway.NewSimulated(true, false))
	o := e.f.Order(t, e.db, models.StatusDelivered, func(o *models.Order) {
		o.Subtotal = dec("12")
		o.TotalAmount = dec("12")
	})

	tip, err := e.svc.SubmitTip(as(e.f.Customer), o.ID, dec("3.5"))
	require.NoError(t, err)
	assert.Nil(t, tip.TransferRef)
	after := testdb.Reload(t, e.db, o.ID)
	assertDec(t, "15.50", after.TotalAmount)
	assert.True(t, after.TipSettledAmount.IsZero())
	assertDec(t, "15.50", after.BalanceDue())
}

func TestSubmitTipValidation(t *testing.T) {
	e := setup(t, gateway.NewSimulated(false, false))
	delivered := e.f.Order(t, e.db, models.StatusDelivered, nil)
	processing := e.f.Order(t, e.db, models.StatusProcessing, nil)
	customer := as(e.f.Customer)

	_, err := e.svc.SubmitTip(customer, delivered.ID, dec("0.49"))
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
	_, err = e.svc.SubmitTip(customer, delivered.ID, dec("500.01"))
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
	_, err = e.svc.SubmitTip(customer, processing.ID, dec("5"))
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
	_, err = e.svc.SubmitTip(as(e.f.Attendant), delivered.ID, dec("5"))
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))

	stranger := models.User{ID: 500, TenantID: e.f.Tenant.ID, Role: models.RoleCustomer}
	_, err = e.svc.SubmitTip(as(stranger), delivered.ID, dec("5"))
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	for _, amount := range []string{"0.495", "500.004", "5.001"} {
		_, err = e.svc.SubmitTip(customer, delivered.ID, dec(amount))
		assert.True(t, apperr.Is(err, apperr.CodeValidation), amount)
	}
	assert.True(t, testdb.Reload(t, e.db, delivered.ID).TipAmount.IsZero())

	_, err = e.svc.SubmitTip(customer, delivered.ID, dec("500"))
	assert.NoError(t, err)
}

func TestConcurrentWalletRefundsAllLand(t *testing.T) {
	e := setup(t, gateway.NewSimulated(false, false))
	const n = 4
	orders := make([]*models.Order, n)
	for i := range orders {
		orders[i] = e.fiftyDollarOrder(t)
		_, err := e.svc.Pay(as(e.f.Customer), orders[i].ID, PayInput{})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i, o := range orders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = e.svc.Refund(as(e.f.Owner), o.ID, RefundInput{Amount: decp("12.50"), RefundToWallet: true})
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	assertDec(t, "50", e.wallet(t))
}

func TestPayAfterPartialRefundHasNothingDue(t *testing.T) {
	sim := gateway.NewSimulated(false, false)
	e := setup(t, sim)
	o := e.fiftyDollarOrder(t)

	paid, err := e.svc.Pay(as(e.f.Customer), o.ID, PayInput{})
	require.NoError(t, err)
	_, err = e.svc.Refund(as(e.f.Owner), o.ID, RefundInput{Amount: decp("20")})
	require.NoError(t, err)

	_, err = e.svc.Pay(as(e.f.Customer), o.ID, PayInput{})
	require.True(t, apperr.Is(err, apperr.CodeValidation), "%v", err)

	after := testdb.Reload(t, e.db, o.ID)
	assert.Equal(t, models.StatusPartiallyRefunded, after.Status)
	assertDec(t, "50", after.PaidAmount)
	assertDec(t, "20", after.RefundedAmount)
	assertDec(t, "0", after.BalanceDue())
	assertDec(t, "20", sim.Refunded(*paid.Order.ExternalPaymentRef))
}

func TestRoutedTipIsNotChargedAgain(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)
	e := setup(t, gw)
	o := e.f.Order(t, e.db, models.StatusDelivered, func(o *models.Order) {
		o.Subtotal = dec("50")
		o.TotalAmount = dec("50")
	})

	gw.EXPECT().
		Charge(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req gateway.ChargeRequest) (string, error) {
			assert.Nil(t, req.Destination)
			assertDec(t, "50", req.Amount)
			return "ch_order", nil
		})
	gw.EXPECT().
		Charge(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req gateway.ChargeRequest) (string, error) {
			require.NotNil(t, req.Destination)
			assertDec(t, "10", req.Amount)
			return "ch_tip", nil
		})

	_, err := e.svc.Pay(as(e.f.Customer), o.ID, PayInput{})
	require.NoError(t, err)
	tip, err := e.svc.SubmitTip(as(e.f.Customer), o.ID, dec("10"))
	require.NoError(t, err)
	require.NotNil(t, tip.TransferRef)

	var stored models.Tip
	require.NoError(t, e.db.First(&stored, tip.ID).Error)
	require.NotNil(t, stored.TransferRef)
	assert.Equal(t, "ch_tip", *stored.TransferRef)

	// a third Charge would fail the mock controller
	_, err = e.svc.Pay(as(e.f.Customer), o.ID, PayInput{})
	require.True(t, apperr.Is(err, apperr.CodeValidation), "%v", err)

	after := testdb.Reload(t, e.db, o.ID)
	assertDec(t, "60", after.TotalAmount)
	assertDec(t, "50", after.PaidAmount)
	assertDec(t, "10", after.TipSettledAmount)
	assertDec(t, "50", after.RemainingPaid())
}

func TestUnroutedTipIsCollectedByNextPay(t *testing.T) {
	e := setup(t, gateway.NewSimulated(false, false))
	require.NoError(t, e.db.Model(&models.Tenant{}).Where("id = ?", e.f.Tenant.ID).
		Update("payout_account", nil).Error)
	o := e.fiftyDollarOrder(t)

	_, err := e.svc.Pay(as(e.f.Customer), o.ID, PayInput{})
	require.NoError(t, err)
	tip, err := e.svc.SubmitTip(as(e.f.Customer), o.ID, dec("10"))
	require.NoError(t, err)
	assert.Nil(t, tip.TransferRef)

	res, err := e.svc.Pay(as(e.f.Customer), o.ID, PayInput{})
	require.NoError(t, err)
	assertDec(t, "10", res.Charged)
	assertDec(t, "10", res.GatewayAmount)

	after := testdb.Reload(t, e.db, o.ID)
	assertDec(t, "60", after.PaidAmount)
	assert.True(t, after.TipSettledAmount.IsZero())
	assertDec(t, "0", after.BalanceDue())
}
