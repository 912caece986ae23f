//go:build !windows

package discord

import (
	"net"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hugolgst/rich-go/ipc"
)

// dialSlot connects to discord-ipc-<n> in the runtime directory.
func dialSlot(n int, timeout time.Duration) (net.Conn, error) {
	path := filepath.Join(ipc.GetIpcPath(), "discord-ipc-"+strconv.Itoa(n))
	return net.DialTimeout("unix", path, timeout)
}
