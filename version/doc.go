// Package version carries the build version of streambot.
//
// Version and the commit are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/streambot/version.Version=1.2.0" ./cmd/streambot
//
// Without ldflags the VCS data embedded by the Go toolchain is used.
package version
