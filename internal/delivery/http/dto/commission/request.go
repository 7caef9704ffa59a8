package commission

type InitiatePayoutRequest struct {
	AffiliateID     string   `json:"affiliate_id" validate:"required"`
	SaleIDs         []string `json:"sale_ids" validate:"required,min=1,dive,required"`
	Method          string   `json:"method" validate:"omitempty,oneof=stripe_transfer"`
	RequestedAmount *string  `json:"requested_amount,omitempty" validate:"omitempty,numeric"`
}

type RunReconciliationRequest struct {
	LookbackHours int `json:"lookback_hours" validate:"omitempty,min=1,max=8760"`
}

type ConnectAccountRequest struct {
	AccountID string `json:"account_id" validate:"required,startswith=acct_"`
}

type RecordRefundRequest struct {
	RefundID string `json:"refund_id" validate:"required"`
}

type CreateRefundRequest struct {
	Amount string `json:"amount" validate:"omitempty,numeric"`
	Reason string `json:"reason" validate:"omitempty,oneof=duplicate fraudulent requested_by_customer"`
}
