//go:build !linux

package jsproc

// Init is a no-op as hosts are only started on linux
func Init() error {
	return nil
}
