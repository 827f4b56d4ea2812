package models

import "time"

// SaleSequenceModel holds the last sale number sequence handed out per
// prefix and business day
type SaleSequenceModel struct {
	Prefix    string    `gorm:"type:varchar(10);primaryKey"`
	Day       string    `gorm:"type:char(8);primaryKey"`
	LastValue int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SaleSequenceModel) TableName() string {
	return "sale_number_sequences"
}
