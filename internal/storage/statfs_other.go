//go:build !(linux || darwin || freebsd)

package storage

func availableBytes(string) (int64, error) {
	return 0, errUnsupported
}
