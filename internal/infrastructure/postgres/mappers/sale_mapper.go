package mappers

import (
	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/postgres/models"
	"github.com/shopspring/decimal"
)

func ToDomainSale(model *models.SaleModel) *domain.Sale {
	status, ok := domain.ParseCommissionStatus(model.CommissionStatus)
	if !ok {
		status = domain.CommissionStatus(model.CommissionStatus)
	}
	refundStatus := domain.RefundStatus(model.RefundStatus)
	if refundStatus == "" {
		refundStatus = domain.RefundNone
	}
	return &domain.Sale{
		ID:                      model.ID,
		RefID:                   model.RefID,
		OrderID:                 model.OrderID,
		ChargeID:                model.ChargeID,
		Subtotal:                model.Subtotal,
		Discount:                model.Discount,
		AmountOverride:          fromNullDecimal(model.AmountOverride),
		LegacyAmount:            fromNullDecimal(model.LegacyAmount),
		Currency:                model.Currency,
		CommissionRate:          model.CommissionRate,
		CommissionEarned:        model.CommissionEarned,
		CommissionEstablishedAt: model.CommissionEstablishedAt,
		CommissionStatus:        status,
		RefundStatus:            refundStatus,
		RefundedAmount:          model.RefundedAmount,
		TransferID:              model.TransferID,
		PaymentID:               model.PaymentID,
		PaidAt:                  model.PaidAt,
		CreatedAt:               model.CreatedAt,
		UpdatedAt:               model.UpdatedAt,
	}
}

func ToGORMSale(sale *domain.Sale) *models.SaleModel {
	status := sale.CommissionStatus
	if status == "" {
		status = domain.CommissionUnpaid
	}
	refundStatus := sale.RefundStatus
	if refundStatus == "" {
		refundStatus = domain.RefundNone
	}
	return &models.SaleModel{
		ID:                      sale.ID,
		RefID:                   sale.RefID,
		OrderID:                 sale.OrderID,
		ChargeID:                sale.ChargeID,
		Subtotal:                sale.Subtotal,
		Discount:                sale.Discount,
		AmountOverride:          toNullDecimal(sale.AmountOverride),
		LegacyAmount:            toNullDecimal(sale.LegacyAmount),
		Currency:                sale.Currency,
		CommissionRate:          sale.CommissionRate,
		CommissionEarned:        sale.CommissionEarned,
		CommissionEstablishedAt: sale.CommissionEstablishedAt,
		CommissionStatus:        string(status),
		RefundStatus:            string(refundStatus),
		RefundedAmount:          sale.RefundedAmount,
		TransferID:              sale.TransferID,
		PaymentID:               sale.PaymentID,
		PaidAt:                  sale.PaidAt,
		CreatedAt:               sale.CreatedAt,
		UpdatedAt:               sale.UpdatedAt,
	}
}

func fromNullDecimal(v decimal.NullDecimal) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	d := v.Decimal
	return &d
}

func toNullDecimal(v *decimal.Decimal) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*v)
}
