package mappers

import (
	"sort"

	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/postgres/models"
)

func ToDomainPayment(model *models.PaymentModel) *domain.Payment {
	sales := append([]models.PaymentSaleModel(nil), model.Sales...)
	sort.Slice(sales, func(i, j int) bool { return sales[i].Position < sales[j].Position })
	saleIDs := make([]string, len(sales))
	for i, s := range sales {
		saleIDs[i] = s.SaleID
	}
	return &domain.Payment{
		ID:             model.ID,
		AffiliateID:    model.AffiliateID,
		SaleIDs:        saleIDs,
		SaleAmount:     model.SaleAmount,
		PaidCommission: model.PaidCommission,
		Method:         domain.PayoutMethod(model.Method),
		TransactionID:  model.TransactionID,
		Status:         domain.PaymentStatus(model.Status),
		Date:           model.Date,
		PaidAt:         model.PaidAt,
		Currency:       model.Currency,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

func ToGORMPayment(payment *domain.Payment) *models.PaymentModel {
	sales := make([]models.PaymentSaleModel, len(payment.SaleIDs))
	for i, id := range payment.SaleIDs {
		sales[i] = models.PaymentSaleModel{PaymentID: payment.ID, SaleID: id, Position: i}
	}
	return &models.PaymentModel{
		ID:             payment.ID,
		AffiliateID:    payment.AffiliateID,
		SaleAmount:     payment.SaleAmount,
		PaidCommission: payment.PaidCommission,
		Method:         string(payment.Method),
		TransactionID:  payment.TransactionID,
		Status:         string(payment.Status),
		Date:           payment.Date,
		PaidAt:         payment.PaidAt,
		Currency:       payment.Currency,
		Sales:          sales,
		CreatedAt:      payment.CreatedAt,
		UpdatedAt:      payment.UpdatedAt,
	}
}

func ToDomainPaymentHistory(model *models.PaymentHistoryModel) *domain.PaymentHistoryEntry {
	return &domain.PaymentHistoryEntry{
		AffiliateID:   model.AffiliateID,
		TransactionID: model.TransactionID,
		PaymentID:     model.PaymentID,
		Amount:        model.Amount,
		Currency:      model.Currency,
		Status:        domain.PaymentStatus(model.Status),
		Date:          model.Date,
		PaidAt:        model.PaidAt,
		UpdatedAt:     model.UpdatedAt,
	}
}
