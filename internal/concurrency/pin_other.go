//go:build !linux
// +build !linux

// File: internal/concurrency/pin_other.go
// Author: momentics <momentics@gmail.com>

package concurrency

// PinCurrentThread is not available here.
func PinCurrentThread(int) error { return ErrPinUnsupported }
