package models

// Supplier sells stock to the business.
type Supplier struct {
	Base
	Name    string  `gorm:"column:name;type:text;not null;index"`
	Phone   *string `gorm:"column:phone"`
	Address *string `gorm:"column:address"`
}
