package models

import "time"

// Budget item statuses
const (
	BudgetStatusPending  = "PENDING"
	BudgetStatusApproved = "APPROVED"
	BudgetStatusRejected = "REJECTED"
)

// BudgetItem is a proposed line item in a project's ledger.
type BudgetItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"index:idx_budget_project_status;not null" json:"project_id"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	Amount    float64   `gorm:"not null" json:"amount"`
	Status    string    `gorm:"size:20;index:idx_budget_project_status;not null;default:PENDING" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (BudgetItem) TableName() string { return "budget_items" }

func IsValidBudgetStatus(status string) bool {
	switch status {
	case BudgetStatusPending, BudgetStatusApproved, BudgetStatusRejected:
		return true
	}
	return false
}
