// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package hugepage

import (
	"errors"
	"fmt"

	"code.hybscloud.com/spsc"
	"golang.org/x/sys/unix"
)

const supported = true

func systemPageSize() int {
	return unix.Getpagesize()
}

// mapRegion maps length zeroed bytes. It reports whether the mapping is
// backed by MAP_HUGETLB.
func mapRegion(length int, opts Options) ([]byte, bool, error) {
	const prot = unix.PROT_READ | unix.PROT_WRITE
	flags := unix.MAP_PRIVATE | unix.MAP_ANONYMOUS
	if opts.Populate {
		flags |= unix.MAP_POPULATE
	}

	if opts.Huge {
		// Fails with ENOMEM when no huge pages are reserved
		// (vm.nr_hugepages), or EINVAL for an unsupported size.
		mem, err := unix.Mmap(-1, 0, length, prot, flags|unix.MAP_HUGETLB)
		if err == nil {
			if err := lockRegion(mem, opts); err != nil {
				return nil, false, err
			}
			return mem, true, nil
		}
	}

	mem, err := unix.Mmap(-1, 0, length, prot, flags)
	if err != nil {
		if errors.Is(err, unix.ENOMEM) {
			return nil, false, fmt.Errorf("%w: mmap %d bytes: %w", spsc.ErrOutOfMemory, length, err)
		}
		return nil, false, fmt.Errorf("hugepage: mmap %d bytes: %w", length, err)
	}
	if opts.Huge {
		// Transparent huge pages are best effort.
		_ = unix.Madvise(mem, unix.MADV_HUGEPAGE)
	}
	if err := lockRegion(mem, opts); err != nil {
		return nil, false, err
	}
	return mem, false, nil
}

func lockRegion(mem []byte, opts Options) error {
	if !opts.Lock {
		return nil
	}
	if err := unix.Mlock(mem); err != nil {
		_ = unix.Munmap(mem)
		return fmt.Errorf("hugepage: mlock %d bytes: %w", len(mem), err)
	}
	return nil
}

func unmapRegion(mem []byte) error {
	if err := unix.Munmap(mem); err != nil {
		return fmt.Errorf("hugepage: munmap %d bytes: %w", len(mem), err)
	}
	return nil
}
