package xres

import "errors"

var (
	// ErrAlreadyStarted 表示采样器已在运行中。
	ErrAlreadyStarted = errors.New("xres: sampler already started")
)
