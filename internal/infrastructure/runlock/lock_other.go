//go:build !linux && !darwin

package runlock

import "os"

// Advisory locking is not available here; every caller wins.
func tryLockExclusive(*os.File) (bool, error) { return true, nil }

func unlock(*os.File) {}
