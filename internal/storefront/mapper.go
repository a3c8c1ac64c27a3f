package storefront

import (
	"warimas-orderflow/internal/cart"
	"warimas-orderflow/internal/checkout"
	"warimas-orderflow/internal/order"
	"warimas-orderflow/internal/payment"
)

func mapCartResponse(resp cartResponse) []cart.Line {
	var lines []cart.Line
	for _, g := range resp.Sellers {
		for _, it := range g.Items {
			l := mapCartItem(it)
			if l.MerchantID == "" {
				l.MerchantID = g.SellerID
			}
			lines = append(lines, l)
		}
	}
	return lines
}

func mapCartItem(it cartItemDTO) cart.Line {
	return cart.Line{
		ID:         it.CartItemID,
		MerchantID: it.SellerID,
		ProductID:  it.ProductID,
		UnitPrice:  it.ProductPrice,
		Quantity:   it.Quantity,
	}
}

func toDirectItem(d *checkout.DirectItem) *directItemDTO {
	if d == nil {
		return nil
	}
	return &directItemDTO{ProductID: d.ProductID, Quantity: d.Quantity}
}

func mapPrecheck(resp precheckResponse) *checkout.PrecheckResult {
	res := &checkout.PrecheckResult{
		OutOfStock:       resp.Status == "OUT_OF_STOCK" || len(resp.OutOfStockItems) > 0,
		TotalAmount:      resp.TotalPrice,
		DefaultAddressID: resp.DefaultAddressID,
	}
	for _, it := range resp.Items {
		res.Lines = append(res.Lines, checkout.PricedLine{
			LineID:     it.CartItemID,
			ProductID:  it.ProductID,
			MerchantID: it.SellerID,
			UnitPrice:  it.Price,
			Quantity:   it.Quantity,
		})
	}
	for _, it := range resp.OutOfStockItems {
		res.StockIssues = append(res.StockIssues, checkout.StockIssue{
			LineID:    it.CartItemID,
			ProductID: it.ProductID,
			Requested: it.Requested,
			Available: it.Available,
		})
	}
	for _, a := range resp.Addresses {
		res.Addresses = append(res.Addresses, checkout.Address{
			ID:        a.AddressID,
			Name:      a.AddressName,
			Recipient: a.RecipientName,
			Phone:     a.RecipientPhone,
			Detail:    a.Address,
		})
	}
	return res
}

func mapCreatedOrder(resp createOrderResponse, addressID string) *checkout.CreatedOrder {
	o := order.Order{ID: resp.OrderID, AddressID: addressID}
	if resp.CreatedAt != nil {
		o.CreatedAt = *resp.CreatedAt
	}
	for _, it := range resp.Items {
		item := mapOrderItem(it)
		if item.OrderID == "" {
			item.OrderID = resp.OrderID
		}
		o.Items = append(o.Items, item)
	}
	return &checkout.CreatedOrder{Order: o, TotalAmount: resp.TotalPrice}
}

func mapOrderItem(it orderItemDTO) order.Item {
	status := order.Status(it.Status)
	if status == "" {
		status = order.StatusOrdered
	}
	return order.Item{
		ID:           it.OrderItemID,
		OrderID:      it.OrderID,
		ProductID:    it.ProductID,
		PriceAtOrder: it.PriceAtOrder,
		Quantity:     it.Quantity,
		Status:       status,
	}
}

func mapOrder(resp orderDTO) order.Order {
	o := order.Order{ID: resp.OrderID, AddressID: resp.AddressID, Items: make([]order.Item, 0, len(resp.OrderItems))}
	if resp.CreatedAt != nil {
		o.CreatedAt = *resp.CreatedAt
	}
	for _, line := range resp.OrderItems {
		it := mapOrderLine(line)
		if it.OrderID == "" {
			it.OrderID = o.ID
		}
		o.Items = append(o.Items, it)
	}
	return o
}

func mapOrderLine(line orderLineDTO) order.Item {
	return mapOrderItem(orderItemDTO{
		OrderItemID:  line.OrderItemID,
		OrderID:      line.OrderID,
		ProductID:    line.ProductID,
		PriceAtOrder: line.ProductPrice,
		Quantity:     line.ProductQuantity,
		Status:       line.OrderItemStatus,
	})
}

func toVerifyRequest(req payment.VerifyRequest) verifyPaymentRequest {
	ids := req.CartLineIDs
	if ids == nil {
		ids = []string{}
	}
	return verifyPaymentRequest{
		OrderID:             req.OrderID,
		Amount:              req.Amount,
		Method:              string(req.Method),
		PaymentKey:          req.PaymentKey,
		ImpUID:              req.ImpUID,
		CartItemIDsToDelete: ids,
	}
}

func mapVerification(resp verifyPaymentResponse, orderID string) *payment.Verification {
	v := &payment.Verification{OrderID: resp.OrderID}
	if v.OrderID == "" {
		v.OrderID = orderID
	}
	for _, it := range resp.Items {
		v.Items = append(v.Items, payment.ItemStatus{OrderItemID: it.OrderItemID, Status: it.Status})
	}
	return v
}

func mapStatusUpdate(resp statusUpdateDTO, itemID string) *order.StatusUpdate {
	u := &order.StatusUpdate{
		OrderItemID: resp.OrderItemID,
		Status:      order.Status(resp.Status),
		ResolvedAt:  resp.ResolvedAt,
	}
	if u.OrderItemID == "" {
		u.OrderItemID = itemID
	}
	return u
}
