// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !spscdebug

package spsc

// debugChecks is false unless built with -tags spscdebug.
const debugChecks = false
