package cache

import (
	"testing"
	"time"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
	"github.com/stretchr/testify/assert"
)

func TestNewer(t *testing.T) {
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	cur := model.DeliveryTrackingSample{RecordedAt: base}

	assert.True(t, newer(model.DeliveryTrackingSample{RecordedAt: base.Add(time.Second)}, cur))
	assert.True(t, newer(model.DeliveryTrackingSample{RecordedAt: base}, cur))
	assert.False(t, newer(model.DeliveryTrackingSample{RecordedAt: base.Add(-time.Second)}, cur))
}

func TestLocationKey(t *testing.T) {
	assert.Equal(t, "order:42:location", locationKey(42))
}
