package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// 一意制約違反
	ErrDuplicate = errors.New("duplicate")
	// 数量上限を超える加算
	ErrQuantityLimit = errors.New("quantity limit exceeded")
)
