package mappers

import (
	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/LavaJover/shvark-commission-service/internal/infrastructure/postgres/models"
)

func ToDomainAffiliate(model *models.AffiliateModel) *domain.Affiliate {
	return &domain.Affiliate{
		ID:              model.ID,
		RefID:           model.RefID,
		Email:           model.Email,
		Name:            model.Name,
		StripeAccountID: model.StripeAccountID,
		TotalCommission: model.TotalCommission,
		PayoutAttempt:   model.PayoutAttempt,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

func ToGORMAffiliate(affiliate *domain.Affiliate) *models.AffiliateModel {
	return &models.AffiliateModel{
		ID:              affiliate.ID,
		RefID:           affiliate.RefID,
		Email:           affiliate.Email,
		Name:            affiliate.Name,
		StripeAccountID: affiliate.StripeAccountID,
		TotalCommission: affiliate.TotalCommission,
		PayoutAttempt:   affiliate.PayoutAttempt,
		CreatedAt:       affiliate.CreatedAt,
		UpdatedAt:       affiliate.UpdatedAt,
	}
}

func ToDomainNotification(model *models.NotificationModel) *domain.Notification {
	n := &domain.Notification{
		ID:          model.ID,
		AffiliateID: model.AffiliateID,
		Title:       model.Title,
		Text:        model.Text,
		Date:        model.Date,
		Read:        model.Read,
	}
	if model.DedupKey != nil {
		n.DedupKey = *model.DedupKey
	}
	return n
}

func ToGORMNotification(n *domain.Notification) *models.NotificationModel {
	m := &models.NotificationModel{
		ID:          n.ID,
		AffiliateID: n.AffiliateID,
		Title:       n.Title,
		Text:        n.Text,
		Date:        n.Date,
		Read:        n.Read,
	}
	if n.DedupKey != "" {
		key := n.DedupKey
		m.DedupKey = &key
	}
	return m
}
