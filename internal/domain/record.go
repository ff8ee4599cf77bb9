package domain

// Kind identifies which wallet action produced a transaction.
type Kind string

const (
	KindMint     Kind = "mint"
	KindApprove  Kind = "approve"
	KindTransfer Kind = "transfer"
)

// Valid reports whether the kind belongs to the closed set.
func (k Kind) Valid() bool {
	switch k {
	case KindMint, KindApprove, KindTransfer:
		return true
	}
	return false
}

// TransactionRecord is one user-submitted token transaction tracked locally.
// The identifier is the transaction hash and never changes after creation;
// SubmittedAt is milliseconds since epoch and is display-only.
type TransactionRecord struct {
	Identifier           string      `json:"identifier"`
	Kind                 Kind        `json:"kind"`
	TokenContractAddress string      `json:"tokenContractAddress"`
	TokenSymbol          TokenSymbol `json:"tokenSymbol"`
	Amount               string      `json:"amount,omitempty"`
	SubmittedAt          int64       `json:"submittedAt"`
}
