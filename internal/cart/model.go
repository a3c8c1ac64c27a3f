package cart

// Line is one product entry in the cart. UnitPrice is a display snapshot
// only; the order service prices lines authoritatively.
type Line struct {
	ID         string `json:"lineId"`
	MerchantID string `json:"merchantId"`
	ProductID  string `json:"productId"`
	UnitPrice  int64  `json:"unitPrice"`
	Quantity   int    `json:"quantity"`
}

func (l Line) Subtotal() int64 { return l.UnitPrice * int64(l.Quantity) }

// Group is the lines of one merchant, in cart order.
type Group struct {
	MerchantID string `json:"merchantId"`
	Lines      []Line `json:"lines"`
}

func (g Group) Subtotal() int64 {
	var total int64
	for _, l := range g.Lines {
		total += l.Subtotal()
	}
	return total
}
