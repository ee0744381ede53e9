// Package model содержит доменные сущности сайта wellnessreal.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProposalStatus описывает этап жизненного цикла коммерческого предложения.
type ProposalStatus string

const (
	ProposalStatusPending        ProposalStatus = "pending"
	ProposalStatusViewed         ProposalStatus = "viewed"
	ProposalStatusSigned         ProposalStatus = "signed"
	ProposalStatusPaymentPending ProposalStatus = "payment_pending"
	ProposalStatusPaid           ProposalStatus = "paid"
	ProposalStatusConfirmed      ProposalStatus = "confirmed"
)

// Rank возвращает позицию статуса в прямом порядке жизненного цикла или -1 для неизвестного статуса.
func (s ProposalStatus) Rank() int {
	switch s {
	case ProposalStatusPending:
		return 0
	case ProposalStatusViewed:
		return 1
	case ProposalStatusSigned:
		return 2
	case ProposalStatusPaymentPending:
		return 3
	case ProposalStatusPaid:
		return 4
	case ProposalStatusConfirmed:
		return 5
	default:
		return -1
	}
}

// Valid сообщает, является ли статус одним из известных.
func (s ProposalStatus) Valid() bool {
	return s.Rank() >= 0
}

// PaymentMethod описывает способ оплаты, выбранный клиентом.
type PaymentMethod string

const (
	PaymentMethodStripe   PaymentMethod = "stripe"
	PaymentMethodTransfer PaymentMethod = "transfer"
)

// ConfirmedBy указывает, кто перевёл предложение в оплаченное состояние.
type ConfirmedBy string

const (
	ConfirmedByStripeWebhook ConfirmedBy = "stripe_webhook"
	ConfirmedByAdminManual   ConfirmedBy = "admin_manual"
)

// ServiceType перечисляет услуги, которые можно предложить клиенту.
type ServiceType string

const (
	ServiceStarter1Mes                 ServiceType = "starter_1mes"
	ServicePack3Meses                  ServiceType = "pack_3meses"
	ServicePremium3Meses               ServiceType = "premium_3meses"
	ServiceSoloEntrenamientoTrimestral ServiceType = "solo_entrenamiento_trimestral"
	ServiceEntrenamientoPresencial     ServiceType = "entrenamiento_presencial"
	ServiceConsultaNutricion           ServiceType = "consulta_nutricion"
	ServiceAnalisisCorporal            ServiceType = "analisis_corporal"
	ServiceSesionOsteopatia            ServiceType = "sesion_osteopatia"
	ServicePackCombinado               ServiceType = "pack_combinado"
	ServicePersonalizado               ServiceType = "personalizado"
)

var serviceLabels = map[ServiceType]string{
	ServiceStarter1Mes:                 "Plan Starter (1 mes)",
	ServicePack3Meses:                  "Pack 3 meses",
	ServicePremium3Meses:               "Premium 3 meses",
	ServiceSoloEntrenamientoTrimestral: "Solo entrenamiento trimestral",
	ServiceEntrenamientoPresencial:     "Entrenamiento presencial",
	ServiceConsultaNutricion:           "Consulta de nutrición",
	ServiceAnalisisCorporal:            "Análisis corporal",
	ServiceSesionOsteopatia:            "Sesión de osteopatía",
	ServicePackCombinado:               "Pack combinado",
	ServicePersonalizado:               "Servicio personalizado",
}

// Label возвращает отображаемое название услуги.
func (t ServiceType) Label() string {
	return serviceLabels[t]
}

// Valid сообщает, известен ли тип услуги.
func (t ServiceType) Valid() bool {
	_, ok := serviceLabels[t]
	return ok
}

// Proposal описывает коммерческое предложение клиенту и состояние его подписания и оплаты.
type Proposal struct {
	ID           uuid.UUID       `json:"id"`
	Token        string          `json:"token"`
	ClientName   string          `json:"clientName"`
	ClientEmail  string          `json:"clientEmail"`
	ClientPhone  string          `json:"clientPhone"`
	ServiceType  ServiceType     `json:"serviceType"`
	ServiceLabel string          `json:"serviceLabel"`
	Price        decimal.Decimal `json:"price"`
	Duration     string          `json:"duration"`
	Description  string          `json:"description"`
	ContractText string          `json:"contractText"`
	Notes        string          `json:"notes"`

	Status                ProposalStatus `json:"status"`
	ViewedAt              *time.Time     `json:"viewedAt"`
	SignedAt              *time.Time     `json:"signedAt"`
	SignatureFullName     *string        `json:"signatureFullName"`
	SignatureIP           *string        `json:"signatureIP"`
	PaymentMethod         *PaymentMethod `json:"paymentMethod"`
	StripeSessionID       *string        `json:"stripeSessionId"`
	StripePaymentIntentID *string        `json:"stripePaymentIntentId"`
	TransferMarkedAt      *time.Time     `json:"transferMarkedAt"`
	PaidAt                *time.Time     `json:"paidAt"`
	ConfirmedAt           *time.Time     `json:"confirmedAt"`
	ConfirmedBy           *ConfirmedBy   `json:"confirmedBy"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ClientView содержит поля предложения, доступные клиенту по токену.
type ClientView struct {
	ClientName        string          `json:"clientName"`
	ServiceType       ServiceType     `json:"serviceType"`
	ServiceLabel      string          `json:"serviceLabel"`
	Price             decimal.Decimal `json:"price"`
	Duration          string          `json:"duration"`
	Description       string          `json:"description"`
	ContractText      string          `json:"contractText"`
	Status            ProposalStatus  `json:"status"`
	SignedAt          *time.Time      `json:"signedAt"`
	SignatureFullName *string         `json:"signatureFullName"`
	PaymentMethod     *PaymentMethod  `json:"paymentMethod"`
	TransferMarkedAt  *time.Time      `json:"transferMarkedAt"`
	PaidAt            *time.Time      `json:"paidAt"`
	ConfirmedAt       *time.Time      `json:"confirmedAt"`
}

// ClientView строит клиентскую проекцию без внутренних полей.
func (p *Proposal) ClientView() ClientView {
	return ClientView{
		ClientName:        p.ClientName,
		ServiceType:       p.ServiceType,
		ServiceLabel:      p.ServiceLabel,
		Price:             p.Price,
		Duration:          p.Duration,
		Description:       p.Description,
		ContractText:      p.ContractText,
		Status:            p.Status,
		SignedAt:          p.SignedAt,
		SignatureFullName: p.SignatureFullName,
		PaymentMethod:     p.PaymentMethod,
		TransferMarkedAt:  p.TransferMarkedAt,
		PaidAt:            p.PaidAt,
		ConfirmedAt:       p.ConfirmedAt,
	}
}

// ProposalPatch содержит частичное изменение предложения. Nil-поля не изменяются.
type ProposalPatch struct {
	Status                *ProposalStatus
	ViewedAt              *time.Time
	SignedAt              *time.Time
	SignatureFullName     *string
	SignatureIP           *string
	PaymentMethod         *PaymentMethod
	StripeSessionID       *string
	StripePaymentIntentID *string
	TransferMarkedAt      *time.Time
	PaidAt                *time.Time
	ConfirmedAt           *time.Time
	ConfirmedBy           *ConfirmedBy
	Notes                 *string

	// IfVersion, если не равен нулю, разрешает обновление только строки с этой версией.
	IfVersion int64
}

// Empty сообщает, что патч не меняет ни одного поля.
func (p ProposalPatch) Empty() bool {
	return p.Status == nil && p.ViewedAt == nil && p.SignedAt == nil &&
		p.SignatureFullName == nil && p.SignatureIP == nil && p.PaymentMethod == nil &&
		p.StripeSessionID == nil && p.StripePaymentIntentID == nil &&
		p.TransferMarkedAt == nil && p.PaidAt == nil && p.ConfirmedAt == nil &&
		p.ConfirmedBy == nil && p.Notes == nil
}

// Apply возвращает копию предложения с применёнными изменениями.
func (p ProposalPatch) Apply(pr Proposal) Proposal {
	if p.Status != nil {
		pr.Status = *p.Status
	}
	if p.ViewedAt != nil {
		pr.ViewedAt = p.ViewedAt
	}
	if p.SignedAt != nil {
		pr.SignedAt = p.SignedAt
	}
	if p.SignatureFullName != nil {
		pr.SignatureFullName = p.SignatureFullName
	}
	if p.SignatureIP != nil {
		pr.SignatureIP = p.SignatureIP
	}
	if p.PaymentMethod != nil {
		pr.PaymentMethod = p.PaymentMethod
	}
	if p.StripeSessionID != nil {
		pr.StripeSessionID = p.StripeSessionID
	}
	if p.StripePaymentIntentID != nil {
		pr.StripePaymentIntentID = p.StripePaymentIntentID
	}
	if p.TransferMarkedAt != nil {
		pr.TransferMarkedAt = p.TransferMarkedAt
	}
	if p.PaidAt != nil {
		pr.PaidAt = p.PaidAt
	}
	if p.ConfirmedAt != nil {
		pr.ConfirmedAt = p.ConfirmedAt
	}
	if p.ConfirmedBy != nil {
		pr.ConfirmedBy = p.ConfirmedBy
	}
	if p.Notes != nil {
		pr.Notes = *p.Notes
	}
	return pr
}
