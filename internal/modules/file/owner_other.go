//go:build !unix

package file

import "io/fs"

func ownedBy(fs.FileInfo, int, int) bool { return false }
