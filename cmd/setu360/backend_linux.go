//go:build linux

package main

import "github.com/ardnew/setu360/host/hal/linux"

func init() {
	backends["usbfs"] = linux.Open
}
