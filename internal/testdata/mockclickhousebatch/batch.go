// Package mockclickhousebatch mocks the driver batch used by event inserts.
package mockclickhousebatch

import (
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/stretchr/testify/mock"
)

type Batch struct {
	mock.Mock
}

var _ driver.Batch = &Batch{}

// Append spreads the row values into the call so expectations can match
// each column.
func (m *Batch) Append(args ...any) error {
	return m.Called(args...).Error(0)
}

func (m *Batch) AppendStruct(v any) error {
	return m.Called(v).Error(0)
}

func (m *Batch) Send() error {
	return m.Called().Error(0)
}

func (m *Batch) Abort() error {
	return m.Called().Error(0)
}

func (m *Batch) Flush() error {
	return m.Called().Error(0)
}

func (m *Batch) IsSent() bool {
	return m.Called().Bool(0)
}

func (m *Batch) Column(id int) driver.BatchColumn {
	column, _ := m.Called(id).Get(0).(driver.BatchColumn)
	return column
}

type BatchColumn struct {
	mock.Mock
}

var _ driver.BatchColumn = &BatchColumn{}

func (m *BatchColumn) Append(v any) error {
	return m.Called(v).Error(0)
}

func (m *BatchColumn) AppendRow(v any) error {
	return m.Called(v).Error(0)
}
