// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package spsc

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock is returned by the non-blocking operations when they
// cannot make progress: TryPush, TryEmplace and Enqueue on a full queue,
// Dequeue on an empty one.
//
// It is a flow-control signal shared with the rest of the iox ecosystem.
// Retry after a backoff instead of propagating it as a failure.
var ErrWouldBlock = iox.ErrWouldBlock

// Construction failures. Both are fatal: no queue is produced.
var (
	// ErrInvalidCapacity is returned when capacity is not a positive power of 2.
	ErrInvalidCapacity = errors.New("spsc: capacity must be a positive power of 2")

	// ErrAllocation is returned when the allocator cannot provide slot storage.
	// The allocator's own error is wrapped.
	ErrAllocation = errors.New("spsc: slot storage allocation failed")
)

// ErrOutOfMemory is returned by allocators that cannot satisfy a request.
var ErrOutOfMemory = errors.New("spsc: out of memory")

// ErrClosed is returned by Close when the queue was already closed.
var ErrClosed = errors.New("spsc: queue closed")

// Precondition violations. These are programmer errors and panic.
const (
	errPopEmpty           = "spsc: Pop without a preceding successful Front"
	errConcurrentProducer = "spsc: concurrent producer calls on SPSC queue"
	errConcurrentConsumer = "spsc: concurrent consumer calls on SPSC queue"
)

// IsWouldBlock reports whether err is, or wraps, ErrWouldBlock.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a flow-control signal rather than a
// failure.
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err is nil or a flow-control signal.
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
