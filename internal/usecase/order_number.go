package usecase

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// 時刻 + ランダム部分。衝突はorder_numberのunique indexで弾く
type uuidOrderNumberGenerator struct {
	prefix string
}

func NewOrderNumberGenerator(prefix string) OrderNumberGenerator {
	return &uuidOrderNumberGenerator{prefix: prefix}
}

func (g *uuidOrderNumberGenerator) NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return g.prefix + now.UTC().Format("20060102150405") + "-" + suffix
}
