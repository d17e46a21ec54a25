package stripe

// Payment intent metadata written at checkout and read back by the webhook.
const (
	MetadataKind        = "kind"
	MetadataOrderID     = "order_id"
	MetadataOrderNumber = "order_number"

	KindTradeIn   = "trade_in"
	KindWholesale = "wholesale"
)
