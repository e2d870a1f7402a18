package observability

// Metric name prefixes
const (
	MetricPrefix = "fortune"
)

// Metric names
const (
	// Ticket metrics
	TicketsSoldTotal  = MetricPrefix + ".tickets.sold_total"
	BooksCreatedTotal = MetricPrefix + ".books.created_total"

	// Settlement metrics
	SettlementsRequestedTotal = MetricPrefix + ".settlements.requested_total"
	SettlementsConfirmedTotal = MetricPrefix + ".settlements.confirmed_total"
	TicketsSettledTotal       = MetricPrefix + ".settlements.tickets_settled_total"

	// Wallet metrics
	WalletTransactionsTotal = MetricPrefix + ".wallet.transactions_total"
	ReferralBonusesTotal    = MetricPrefix + ".referrals.bonuses_total"

	// Cancellation metrics
	CancellationTransitionsTotal = MetricPrefix + ".cancellations.transitions_total"
)

// Label keys
const (
	LabelChannel = "channel"
	LabelReason  = "reason"
	LabelStatus  = "status"
)
