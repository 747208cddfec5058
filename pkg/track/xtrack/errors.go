package xtrack

import "errors"

var (
	// ErrNilFunc 表示 Track 收到 nil 执行函数。
	ErrNilFunc = errors.New("xtrack: nil func")
)
