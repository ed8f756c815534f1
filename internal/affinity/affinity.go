// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package affinity pins the calling goroutine to a CPU core.
//
// A queue endpoint pinned to its own core keeps its index line hot in that
// core's cache; the producer and consumer then only exchange the lines the
// protocol requires.
package affinity

// Pin locks the calling goroutine to its OS thread and restricts that
// thread to cpu. A negative cpu only locks the thread.
//
// The returned function undoes both. On platforms without affinity
// support Pin only locks the thread.
func Pin(cpu int) (unpin func(), err error) {
	return pin(cpu)
}
