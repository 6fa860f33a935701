package enums

// TransactionStatus is the numeric status code reported by the marketplace.
type TransactionStatus int

const (
	TransactionStatusPending  TransactionStatus = 1
	TransactionStatusSuccess  TransactionStatus = 2
	TransactionStatusFailed   TransactionStatus = 3
	TransactionStatusRefunded TransactionStatus = 4
	TransactionStatusDisputed TransactionStatus = 5
)

var transactionStatusLabels = map[TransactionStatus]string{
	TransactionStatusPending:  "Pending",
	TransactionStatusSuccess:  "Success",
	TransactionStatusFailed:   "Failed",
	TransactionStatusRefunded: "Refunded",
	TransactionStatusDisputed: "Disputed",
}

// Label returns the display label, or "Unknown" for unmapped codes.
func (s TransactionStatus) Label() string {
	if label, ok := transactionStatusLabels[s]; ok {
		return label
	}
	return "Unknown"
}
