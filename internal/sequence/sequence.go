// Package sequence hands out the human-readable document numbers printed on
// bills and lot labels.
package sequence

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
)

const (
	Bill = "bill"
	Lot  = "lot"
)

var formats = map[string]string{
	Bill: "B-%06d",
	Lot:  "L-%06d",
}

// Next increments the named counter and returns the new value. It must run
// inside the transaction that uses the number; the UPDATE holds the row lock
// until commit so concurrent writers never share a value.
func Next(tx *gorm.DB, name string) (int64, error) {
	if tx == nil {
		return 0, errors.New("transaction required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New("sequence name required")
	}

	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Counter{Name: name}).Error; err != nil {
		return 0, fmt.Errorf("ensure sequence %s: %w", name, err)
	}
	if err := tx.Model(&models.Counter{}).
		Where("name = ?", name).
		UpdateColumn("value", gorm.Expr("value + 1")).Error; err != nil {
		return 0, fmt.Errorf("advance sequence %s: %w", name, err)
	}

	var counter models.Counter
	if err := tx.First(&counter, "name = ?", name).Error; err != nil {
		return 0, fmt.Errorf("read sequence %s: %w", name, err)
	}
	return counter.Value, nil
}

// NextNumber returns the next formatted number of the sequence.
func NextNumber(tx *gorm.DB, name string) (string, error) {
	value, err := Next(tx, name)
	if err != nil {
		return "", err
	}
	return Format(name, value), nil
}

// Format renders a counter value, e.g. Format(Bill, 12) == "B-000012".
func Format(name string, value int64) string {
	if layout, ok := formats[name]; ok {
		return fmt.Sprintf(layout, value)
	}
	return fmt.Sprintf("%s-%06d", strings.ToUpper(name), value)
}
