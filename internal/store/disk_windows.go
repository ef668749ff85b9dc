// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build windows

package store

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// FreeSpace returns the bytes available to the calling user on the volume
// holding path.
func FreeSpace(path string) (uint64, error) {
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}

	var freeBytesAvailable, totalBytes, totalFreeBytes uint64
	if err := windows.GetDiskFreeSpaceEx(pathPtr, &freeBytesAvailable, &totalBytes, &totalFreeBytes); err != nil {
		return 0, fmt.Errorf("GetDiskFreeSpaceEx %s: %w", path, err)
	}
	return freeBytesAvailable, nil
}

// CheckAccess succeeds when path is an existing directory a file can be
// created in. Windows ACLs make a mode check meaningless, so it tries one.
func CheckAccess(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNoStorageAccess, path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrNoStorageAccess, path)
	}
	f, err := os.CreateTemp(path, ".access-")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNoStorageAccess, path, err)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return nil
}
