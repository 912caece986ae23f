//go:build windows

package discord

import (
	"net"
	"strconv"
	"time"

	npipe "gopkg.in/natefinch/npipe.v2"
)

// dialSlot connects to the discord-ipc-<n> named pipe.
func dialSlot(n int, timeout time.Duration) (net.Conn, error) {
	conn, err := npipe.DialTimeout(`\\.\pipe\discord-ipc-`+strconv.Itoa(n), timeout)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
