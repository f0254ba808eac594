package bufferpool

import (
	"github.com/stretchr/testify/mock"

	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/recovery"
	"github.com/Blackdeer1524/HeapDB/src/storage/page"
)

type MockTxnLogger struct {
	mock.Mock
}

var _ recovery.TxnLogger = &MockTxnLogger{}

func (m *MockTxnLogger) LogWrite(tid common.TxnID, before, after *page.HeapPage) error {
	args := m.Called(tid, before, after)
	return args.Error(0)
}

func (m *MockTxnLogger) Force() error {
	args := m.Called()
	return args.Error(0)
}
