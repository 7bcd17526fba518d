package models

import "time"

// Invoice statuses
const (
	InvoiceStatusPending = "PENDING"
	InvoiceStatusPaid    = "PAID"
)

// Invoice is a point-in-time snapshot of a project's approved budget items.
type Invoice struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	ProjectID   uint          `gorm:"index;not null" json:"project_id"`
	Project     *Project      `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	TotalAmount float64       `gorm:"not null" json:"total_amount"`
	Status      string        `gorm:"size:20;not null;default:PENDING" json:"status"`
	DueDate     time.Time     `json:"due_date"`
	CreatedBy   uint          `json:"created_by"`
	Lines       []InvoiceLine `gorm:"foreignKey:InvoiceID" json:"lines,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (Invoice) TableName() string { return "invoices" }

// InvoiceLine copies an approved item at generation time; later edits to the
// item do not change it.
type InvoiceLine struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	InvoiceID    uint    `gorm:"index;not null" json:"invoice_id"`
	BudgetItemID uint    `gorm:"index" json:"budget_item_id"`
	Title        string  `gorm:"size:200" json:"title"`
	Amount       float64 `json:"amount"`
}

func (InvoiceLine) TableName() string { return "invoice_lines" }

func IsValidInvoiceStatus(status string) bool {
	return status == InvoiceStatusPending || status == InvoiceStatusPaid
}
