// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import "fmt"

// BytesPerMB is the binary megabyte used for every size shown to the user.
const BytesPerMB = 1 << 20

// MBToBytes converts whole megabytes to bytes.
func MBToBytes(mb int) int64 {
	return int64(mb) * BytesPerMB
}

// BytesToMB converts bytes to whole megabytes, rounding down.
func BytesToMB[T ~int64 | ~uint64](b T) int {
	return int(b / BytesPerMB)
}

// FormatMB renders a megabyte count the way the model list shows it:
// "547 MB" below a gigabyte, "2.0 GB" above.
func FormatMB(mb int) string {
	if mb >= 1024 {
		return fmt.Sprintf("%.1f GB", float64(mb)/1024)
	}
	return fmt.Sprintf("%d MB", mb)
}
