package handlers

import (
	"time"

	"github.com/Murega14/agrilink/internal/models"

	"github.com/shopspring/decimal"
)

type productView struct {
	ID              string               `json:"id"`
	Name            string               `json:"name"`
	Description     string               `json:"description"`
	PricePerUnit    decimal.Decimal      `json:"price_per_unit"`
	AmountAvailable int                  `json:"amount_available"`
	Category        string               `json:"category"`
	Status          models.ProductStatus `json:"status"`
	FarmerID        string               `json:"farmer_id"`
	Seller          string               `json:"seller,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

func newProductView(p models.Product) productView {
	return productView{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		PricePerUnit:    p.PricePerUnit,
		AmountAvailable: p.AmountAvailable,
		Category:        p.Category,
		Status:          p.Status,
		FarmerID:        p.FarmerID,
		Seller:          p.SellerName(),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func newProductViews(products []models.Product) []productView {
	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, newProductView(p))
	}
	return views
}

type orderItemView struct {
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	FarmerName   string          `json:"farmer_name,omitempty"`
}

func newItemView(item models.OrderItem, farmerName string) orderItemView {
	return orderItemView{
		ProductID:    item.ProductID,
		ProductName:  item.ProductName,
		Quantity:     item.Quantity,
		PricePerUnit: item.PricePerUnit,
		Subtotal:     item.Total(),
		FarmerName:   farmerName,
	}
}

type subOrderView struct {
	ID             string             `json:"id"`
	FarmerID       string             `json:"farmer_id"`
	FarmerName     string             `json:"farmer_name,omitempty"`
	Status         models.OrderStatus `json:"status"`
	SubtotalAmount decimal.Decimal    `json:"subtotal_amount"`
}

type orderView struct {
	ID           string             `json:"id"`
	Status       models.OrderStatus `json:"status"`
	TotalAmount  decimal.Decimal    `json:"total_amount"`
	DeliveryDate *time.Time         `json:"delivery_date"`
	CreatedAt    time.Time          `json:"created_at"`
	FarmerOrders []subOrderView     `json:"farmer_orders"`
	Items        []orderItemView    `json:"items"`
}

func newOrderView(o models.Order) orderView {
	view := orderView{
		ID:           o.ID,
		Status:       o.Status,
		TotalAmount:  o.TotalAmount,
		DeliveryDate: o.DeliveryDate,
		CreatedAt:    o.CreatedAt,
		FarmerOrders: make([]subOrderView, 0, len(o.FarmerOrders)),
		Items:        make([]orderItemView, 0, len(o.Items)),
	}
	farmerNames := make(map[string]string, len(o.FarmerOrders))
	for _, fo := range o.FarmerOrders {
		name := ""
		if fo.Farmer != nil {
			name = fo.Farmer.FullName()
		}
		farmerNames[fo.ID] = name
		view.FarmerOrders = append(view.FarmerOrders, subOrderView{
			ID:             fo.ID,
			FarmerID:       fo.FarmerID,
			FarmerName:     name,
			Status:         fo.Status,
			SubtotalAmount: fo.SubtotalAmount,
		})
	}
	for _, item := range o.Items {
		view.Items = append(view.Items, newItemView(item, farmerNames[item.FarmerOrderID]))
	}
	return view
}

func newOrderViews(orders []models.Order) []orderView {
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, newOrderView(o))
	}
	return views
}

type farmerOrderView struct {
	ID             string             `json:"id"`
	OrderID        string             `json:"order_id"`
	OrderDate      time.Time          `json:"order_date"`
	DeliveryDate   *time.Time         `json:"delivery_date"`
	BuyerName      string             `json:"buyer_name,omitempty"`
	Status         models.OrderStatus `json:"status"`
	SubtotalAmount decimal.Decimal    `json:"subtotal_amount"`
	Items          []orderItemView    `json:"items"`
}

func newFarmerOrderView(fo models.FarmerOrder) farmerOrderView {
	view := farmerOrderView{
		ID:             fo.ID,
		OrderID:        fo.OrderID,
		OrderDate:      fo.CreatedAt,
		Status:         fo.Status,
		SubtotalAmount: fo.SubtotalAmount,
		Items:          make([]orderItemView, 0, len(fo.Items)),
	}
	if fo.Order != nil {
		view.OrderDate = fo.Order.CreatedAt
		view.DeliveryDate = fo.Order.DeliveryDate
		if fo.Order.Buyer != nil {
			view.BuyerName = fo.Order.Buyer.FullName()
		}
	}
	for _, item := range fo.Items {
		view.Items = append(view.Items, newItemView(item, ""))
	}
	return view
}

func newFarmerOrderViews(farmerOrders []models.FarmerOrder) []farmerOrderView {
	views := make([]farmerOrderView, 0, len(farmerOrders))
	for _, fo := range farmerOrders {
		views = append(views, newFarmerOrderView(fo))
	}
	return views
}
