package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bryanwahyu/unitecon/internal/domain/analysis"
)

func TestObjectKey(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	rec := analysis.DegradedRecord{
		RequestID:  "5f0c0a36-7a53-4a3c-9d7e-1d2f3e4a5b6c",
		ReceivedAt: time.Date(2025, 3, 1, 2, 0, 0, 0, jakarta),
	}
	assert.Equal(t, "degraded/2025/02/28/5f0c0a36-7a53-4a3c-9d7e-1d2f3e4a5b6c.json", ObjectKey(rec))
}
