package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// 一意制約違反（payment_referenceなど）
	ErrDuplicate = errors.New("duplicate")
)
