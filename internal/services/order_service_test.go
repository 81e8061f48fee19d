package services_test

import (
	"testing"
	"time"

	"github.com/Murega14/agrilink/internal/cache"
	"github.com/Murega14/agrilink/internal/models"
	"github.com/Murega14/agrilink/internal/repositories"
	"github.com/Murega14/agrilink/internal/services"
	"github.com/Murega14/agrilink/pkg/rabbitmq"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type OrderServiceSuite struct {
	suite.Suite
	products  *repositories.MemoryProductRepository
	orders    *repositories.MemoryOrderRepository
	listings  *cache.TTLCache
	publisher *MockPublisher
	service   *services.OrderService
	maize     *models.Product
	beans     *models.Product
}

func TestOrderServiceSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceSuite))
}

func (s *OrderServiceSuite) SetupTest() {
	s.products = repositories.NewMemoryProductRepository()
	s.orders = repositories.NewMemoryOrderRepository()
	s.listings = cache.New(16, time.Minute)
	s.publisher = new(MockPublisher)
	s.publisher.On("Publish", rabbitmq.OrderQueue, mock.AnythingOfType("services.OrderEvent")).Return(nil).Maybe()

	store := repositories.NewMemoryStore(s.products, s.orders)
	s.service = services.NewOrderService(store, s.orders, s.listings, s.publisher)

	s.maize = s.addProduct("farmer-1", "Maize", "10", 5)
	s.beans = s.addProduct("farmer-2", "Beans", "7", 10)
}

func (s *OrderServiceSuite) addProduct(farmerID, name, unitPrice string, amount int) *models.Product {
	p := &models.Product{
		Name:            name,
		Description:     name,
		Category:        "Produce",
		PricePerUnit:    decimal.RequireFromString(unitPrice),
		AmountAvailable: amount,
		FarmerID:        farmerID,
	}
	p.SyncStatus()
	s.Require().NoError(s.products.Create(p))
	return p
}

func (s *OrderServiceSuite) available(id string) int {
	p, err := s.products.GetByID(id)
	s.Require().NoError(err)
	return p.AmountAvailable
}

func (s *OrderServiceSuite) placeSampleOrder() *models.Order {
	order, err := s.service.PlaceOrder("buyer-1", []models.CartLine{
		{ProductID: s.maize.ID, Quantity: 2},
		{ProductID: s.beans.ID, Quantity: 3},
	})
	s.Require().NoError(err)
	return order
}

func subOrderOf(order *models.Order, farmerID string) *models.FarmerOrder {
	for i := range order.FarmerOrders {
		if order.FarmerOrders[i].FarmerID == farmerID {
			return &order.FarmerOrders[i]
		}
	}
	return nil
}

func (s *OrderServiceSuite) assertSums(order *models.Order) {
	total := decimal.Zero
	for _, fo := range order.FarmerOrders {
		sub := decimal.Zero
		for _, item := range fo.Items {
			sub = sub.Add(item.Total())
		}
		s.True(sub.Equal(fo.SubtotalAmount), "items of %s sum to %s, subtotal %s", fo.FarmerID, sub, fo.SubtotalAmount)
		total = total.Add(fo.SubtotalAmount)
	}
	s.True(total.Equal(order.TotalAmount), "subtotals sum to %s, total %s", total, order.TotalAmount)
}

func (s *OrderServiceSuite) TestPlaceOrderSplitsByFarmer() {
	s.listings.Set("products:cached", true)

	order := s.placeSampleOrder()

	s.True(decimal.NewFromInt(41).Equal(order.TotalAmount))
	s.Equal(models.OrderPending, order.Status)
	s.Len(order.FarmerOrders, 2)
	s.Len(order.Items, 2)
	s.True(decimal.NewFromInt(20).Equal(subOrderOf(order, "farmer-1").SubtotalAmount))
	s.True(decimal.NewFromInt(21).Equal(subOrderOf(order, "farmer-2").SubtotalAmount))
	s.assertSums(order)

	s.Equal(3, s.available(s.maize.ID))
	s.Equal(7, s.available(s.beans.ID))
	s.Equal(0, s.listings.Len())
	s.Require().Len(order.Tracking, 1)
	s.Len(subOrderOf(order, "farmer-2").Items, 1)
	s.publisher.AssertCalled(s.T(), "Publish", rabbitmq.OrderQueue, mock.AnythingOfType("services.OrderEvent"))

	stored, err := s.service.GetBuyerOrder("buyer-1", order.ID)
	s.Require().NoError(err)
	s.assertSums(stored)
	s.Require().Len(stored.Tracking, 1)
	s.Equal("order placed", stored.Tracking[0].Notes)
}

func (s *OrderServiceSuite) TestPlaceOrderGroupsLinesOfSameFarmer() {
	greens := s.addProduct("farmer-1", "Kale", "2.50", 4)

	order, err := s.service.PlaceOrder("buyer-1", []models.CartLine{
		{ProductID: s.maize.ID, Quantity: 1},
		{ProductID: greens.ID, Quantity: 4},
	})
	s.Require().NoError(err)
	s.Len(order.FarmerOrders, 1)
	s.Len(order.FarmerOrders[0].Items, 2)
	s.True(decimal.NewFromInt(20).Equal(order.TotalAmount))
	s.assertSums(order)

	kale, err := s.products.GetByID(greens.ID)
	s.Require().NoError(err)
	s.Equal(models.ProductOutOfStock, kale.Status)
}

func (s *OrderServiceSuite) TestOverOrderingLeavesStateUnchanged() {
	_, err := s.service.PlaceOrder("buyer-1", []models.CartLine{
		{ProductID: s.maize.ID, Quantity: 2},
		{ProductID: s.beans.ID, Quantity: 11},
	})
	s.ErrorIs(err, services.ErrInsufficientStock)

	s.Equal(5, s.available(s.maize.ID))
	s.Equal(10, s.available(s.beans.ID))
	page, err := s.service.ListBuyerOrders("buyer-1", 1, 10)
	s.Require().NoError(err)
	s.Empty(page.Orders)
	s.publisher.AssertNotCalled(s.T(), "Publish", mock.Anything, mock.Anything)
}

func (s *OrderServiceSuite) TestPlaceOrderRejectsBadCarts() {
	_, err := s.service.PlaceOrder("buyer-1", nil)
	s.ErrorIs(err, services.ErrValidation)

	_, err = s.service.PlaceOrder("buyer-1", []models.CartLine{{ProductID: s.maize.ID, Quantity: 0}})
	s.ErrorIs(err, services.ErrValidation)

	_, err = s.service.PlaceOrder("buyer-1", []models.CartLine{{Quantity: 1}})
	s.ErrorIs(err, services.ErrValidation)

	_, err = s.service.PlaceOrder("buyer-1", []models.CartLine{
		{ProductID: s.maize.ID, Quantity: 1},
		{ProductID: "missing", Quantity: 1},
	})
	s.ErrorIs(err, services.ErrNotFound)
	s.Equal(5, s.available(s.maize.ID))

	s.Require().NoError(s.products.Delete(s.beans.ID))
	_, err = s.service.PlaceOrder("buyer-1", []models.CartLine{{ProductID: s.beans.ID, Quantity: 1}})
	s.ErrorIs(err, services.ErrNotFound)
}

func (s *OrderServiceSuite) TestCancelOrderRestoresStock() {
	order := s.placeSampleOrder()

	_, err := s.service.CancelOrder("buyer-2", order.ID)
	s.ErrorIs(err, services.ErrForbidden)

	cancelled, err := s.service.CancelOrder("buyer-1", order.ID)
	s.Require().NoError(err)
	s.Equal(models.OrderCancelled, cancelled.Status)
	for _, fo := range cancelled.FarmerOrders {
		s.Equal(models.OrderCancelled, fo.Status)
	}
	s.Equal(5, s.available(s.maize.ID))
	s.Equal(10, s.available(s.beans.ID))
	s.Len(cancelled.Tracking, 2)

	_, err = s.service.CancelOrder("buyer-1", order.ID)
	s.ErrorIs(err, services.ErrInvalidTransition)
}

func (s *OrderServiceSuite) TestFarmerStatusUpdatesRollUp() {
	order := s.placeSampleOrder()
	first := subOrderOf(order, "farmer-1")
	second := subOrderOf(order, "farmer-2")

	_, err := s.service.UpdateFarmerOrderStatus("farmer-2", first.ID, models.OrderDelivered)
	s.ErrorIs(err, services.ErrForbidden)

	fo, err := s.service.UpdateFarmerOrderStatus("farmer-1", first.ID, models.OrderDelivered)
	s.Require().NoError(err)
	s.Equal(models.OrderDelivered, fo.Status)

	stored, err := s.service.GetBuyerOrder("buyer-1", order.ID)
	s.Require().NoError(err)
	s.Equal(models.OrderPending, stored.Status)
	s.Nil(stored.DeliveryDate)

	// A partially delivered order can no longer be cancelled by the buyer
	_, err = s.service.CancelOrder("buyer-1", order.ID)
	s.ErrorIs(err, services.ErrInvalidTransition)

	_, err = s.service.UpdateFarmerOrderStatus("farmer-2", second.ID, models.OrderDelivered)
	s.Require().NoError(err)

	stored, err = s.service.GetBuyerOrder("buyer-1", order.ID)
	s.Require().NoError(err)
	s.Equal(models.OrderDelivered, stored.Status)
	s.NotNil(stored.DeliveryDate)

	_, err = s.service.UpdateFarmerOrderStatus("farmer-1", first.ID, models.OrderCancelled)
	s.ErrorIs(err, services.ErrInvalidTransition)

	_, err = s.service.UpdateFarmerOrderStatus("farmer-1", first.ID, models.OrderRefunded)
	s.Require().NoError(err)
	_, err = s.service.UpdateFarmerOrderStatus("farmer-2", second.ID, models.OrderRefunded)
	s.Require().NoError(err)

	stored, err = s.service.GetBuyerOrder("buyer-1", order.ID)
	s.Require().NoError(err)
	s.Equal(models.OrderRefunded, stored.Status)
}

func (s *OrderServiceSuite) TestDeliveredAndCancelledSubOrdersDeliverOrder() {
	order := s.placeSampleOrder()
	first := subOrderOf(order, "farmer-1")
	second := subOrderOf(order, "farmer-2")

	_, err := s.service.UpdateFarmerOrderStatus("farmer-1", first.ID, models.OrderDelivered)
	s.Require().NoError(err)
	_, err = s.service.UpdateFarmerOrderStatus("farmer-2", second.ID, models.OrderCancelled)
	s.Require().NoError(err)

	stored, err := s.service.GetBuyerOrder("buyer-1", order.ID)
	s.Require().NoError(err)
	s.Equal(models.OrderDelivered, stored.Status)
	s.NotNil(stored.DeliveryDate)
	s.True(decimal.NewFromInt(41).Equal(stored.TotalAmount))
	s.Equal(10, s.available(s.beans.ID))
	s.Equal(3, s.available(s.maize.ID))

	last := stored.Tracking[len(stored.Tracking)-1]
	s.Equal(models.OrderDelivered, last.Status)
}

func (s *OrderServiceSuite) TestFarmerCancelRestoresOwnStock() {
	order := s.placeSampleOrder()
	first := subOrderOf(order, "farmer-1")

	_, err := s.service.UpdateFarmerOrderStatus("farmer-1", first.ID, models.OrderCancelled)
	s.Require().NoError(err)
	s.Equal(5, s.available(s.maize.ID))
	s.Equal(7, s.available(s.beans.ID))

	_, err = s.service.UpdateFarmerOrderStatus("farmer-1", first.ID, models.OrderStatus("shipped"))
	s.ErrorIs(err, services.ErrValidation)
}

func (s *OrderServiceSuite) TestTrackingAccess() {
	order := s.placeSampleOrder()

	entries, err := s.service.Tracking(models.RoleBuyer, "buyer-1", order.ID)
	s.Require().NoError(err)
	s.Len(entries, 1)

	_, err = s.service.Tracking(models.RoleFarmer, "farmer-2", order.ID)
	s.NoError(err)

	_, err = s.service.Tracking(models.RoleFarmer, "farmer-9", order.ID)
	s.ErrorIs(err, services.ErrForbidden)

	_, err = s.service.Tracking(models.RoleBuyer, "buyer-1", "missing")
	s.ErrorIs(err, services.ErrNotFound)
}

func (s *OrderServiceSuite) TestReaders() {
	s.placeSampleOrder()
	s.placeSampleOrder()

	page, err := s.service.ListBuyerOrders("buyer-1", 0, 0)
	s.Require().NoError(err)
	s.Equal(10, page.PerPage)
	s.Equal(int64(2), page.TotalItems)
	s.Equal(1, page.TotalPages)

	_, err = s.service.ListBuyerOrders("buyer-1", -1, 10)
	s.ErrorIs(err, services.ErrValidation)

	farmerPage, err := s.service.ListFarmerOrders("farmer-1", 1, 1)
	s.Require().NoError(err)
	s.Len(farmerPage.FarmerOrders, 1)
	s.Equal(2, farmerPage.TotalPages)
	s.NotNil(farmerPage.FarmerOrders[0].Order)

	recent, err := s.service.RecentFarmerOrders("farmer-2")
	s.Require().NoError(err)
	s.Len(recent, 2)

	stats, err := s.service.FarmerStats("farmer-1")
	s.Require().NoError(err)
	s.Equal(int64(4), stats.ProductsSold)
	s.True(decimal.NewFromInt(40).Equal(stats.CurrentMonthRevenue))
	s.Equal(int64(2), stats.PendingOrders)

	_, err = s.service.GetBuyerOrder("buyer-2", page.Orders[0].ID)
	s.ErrorIs(err, services.ErrForbidden)
}
