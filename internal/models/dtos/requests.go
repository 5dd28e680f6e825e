package dtos

import "github.com/shopspring/decimal"

type CreateAssociationReq struct {
	Name          string          `json:"name"`
	MonthlyAmount decimal.Decimal `json:"monthly_amount"`
	Duration      int             `json:"duration"`
	MaxMembers    int             `json:"max_members"`
}

type TopUpReq struct {
	Amount decimal.Decimal `json:"amount"`
}
