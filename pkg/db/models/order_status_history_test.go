package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// The migrations create order_status_history; the pluralized default would
// point writes at a table that does not exist.
func TestOrderStatusHistoryTableName(t *testing.T) {
	assert.Equal(t, "order_status_history", OrderStatusHistory{}.TableName())
}
