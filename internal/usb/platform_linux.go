//go:build linux

package usb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pilebones/go-udev/netlink"
	"golang.org/x/sys/unix"
)

const defaultSysfsRoot = "/sys/bus/usb/devices"

// NewPlatform returns the sysfs and netlink backed Platform
func NewPlatform() Platform {
	return &linuxPlatform{root: defaultSysfsRoot}
}

type linuxPlatform struct {
	root string
}

// newDeviceMatcher keeps additions and removals of whole USB devices, not
// their interfaces
func newDeviceMatcher() (*netlink.RuleDefinitions, error) {
	action := "^(add|remove)$"
	rules := &netlink.RuleDefinitions{
		Rules: []netlink.RuleDefinition{{
			Action: &action,
			Env: map[string]string{
				"SUBSYSTEM": "^usb$",
				"DEVTYPE":   "^usb_device$",
			},
		}},
	}
	if err := rules.Compile(); err != nil {
		return nil, err
	}
	return rules, nil
}

// Subscribe listens for kernel uevents and forwards USB device add and
// remove messages
func (p *linuxPlatform) Subscribe(ctx context.Context) (<-chan Event, error) {
	matcher, err := newDeviceMatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to compile uevent matcher: %w", err)
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.KernelEvent); err != nil {
		return nil, fmt.Errorf("failed to open uevent socket: %w", err)
	}
	// A receive timeout lets the loop notice cancellation
	timeout := unix.Timeval{Sec: 1}
	if err := unix.SetsockoptTimeval(conn.Fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &timeout); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set uevent socket timeout: %w", err)
	}

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		defer conn.Close()

		for ctx.Err() == nil {
			msg, err := conn.ReadMsg()
			if err != nil {
				if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) || errors.Is(err, unix.ENOBUFS) {
					continue
				}
				return
			}
			event, ok := decodeUevent(matcher, msg)
			if !ok {
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

// Devices lists USB devices (not interfaces or root hubs) in sysfs
func (p *linuxPlatform) Devices() (Iterator, error) {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.Contains(name, ":") || strings.HasPrefix(name, "usb") {
			continue
		}
		paths = append(paths, filepath.Join(p.root, name))
	}
	sort.Strings(paths)
	return &sysfsIterator{paths: paths}, nil
}

// decodeUevent parses a kernel uevent and maps a matching USB device
// addition or removal onto an Event
func decodeUevent(matcher *netlink.RuleDefinitions, msg []byte) (Event, bool) {
	uevent, err := netlink.ParseUEvent(msg)
	if err != nil || uevent == nil || !matcher.Evaluate(*uevent) {
		return Event{}, false
	}

	path := uevent.Env["DEVPATH"]
	if path == "" {
		path = uevent.KObj
	}
	switch uevent.Action {
	case netlink.ADD:
		return Event{Kind: Arrival, Path: path}, true
	case netlink.REMOVE:
		return Event{Kind: Removal, Path: path}, true
	default:
		return Event{}, false
	}
}

type sysfsIterator struct {
	paths []string
}

// Next opens the next device directory that still exists. Devices removed
// since the listing was taken are skipped.
func (it *sysfsIterator) Next() (Handle, bool) {
	for len(it.paths) > 0 {
		path := it.paths[0]
		it.paths = it.paths[1:]

		dir, err := os.Open(path)
		if err != nil {
			continue
		}
		return &sysfsHandle{dir: dir}, true
	}
	return nil, false
}

// sysfsHandle holds the device directory open so every property is read
// from the same device even if the path is reused
type sysfsHandle struct {
	dir *os.File
}

func (h *sysfsHandle) Property(key string) (string, error) {
	if strings.ContainsRune(key, '/') {
		return "", fmt.Errorf("invalid property %q", key)
	}
	fd, err := unix.Openat(int(h.dir.Fd()), key, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", key, err)
	}
	file := os.NewFile(uintptr(fd), key)
	defer file.Close()

	buf := make([]byte, 256)
	n, err := file.Read(buf)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	value := strings.TrimSpace(string(buf[:n]))
	if value == "" {
		return "", fmt.Errorf("%s is empty", key)
	}
	return value, nil
}

func (h *sysfsHandle) Release() error {
	return h.dir.Close()
}
