package models

// Counter backs human-readable sequences such as bill and lot numbers.
type Counter struct {
	Name  string `gorm:"column:name;type:text;primaryKey"`
	Value int64  `gorm:"column:value;not null;default:0"`
}
