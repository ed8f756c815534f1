// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build spscdebug

package spsc

// debugChecks enables SPSC discipline checks on every queue.
const debugChecks = true
