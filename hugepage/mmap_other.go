// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package hugepage

const supported = false

func systemPageSize() int {
	return 4096
}

func mapRegion(int, Options) ([]byte, bool, error) {
	return nil, false, ErrUnsupported
}

func unmapRegion([]byte) error {
	return ErrUnsupported
}
