//go:build cgo

package main

import "github.com/ardnew/setu360/host/hal/libusb"

func init() {
	backends["libusb"] = libusb.Open
}
