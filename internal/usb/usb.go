// Package usb keeps the list of attached USB devices current. It
// subscribes to arrival and removal notifications and rebuilds the whole
// device list on every event; nothing is diffed against earlier lists.
package usb

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/monify-labs/hostwatch/pkg/models"
	"github.com/sirupsen/logrus"
)

// Property keys readable from a Handle
const (
	PropertyName      = "product"
	PropertyVendorID  = "idVendor"
	PropertyProductID = "idProduct"
)

// ErrUnsupported is returned by platforms without USB notifications
var ErrUnsupported = errors.New("usb notifications not supported on this platform")

// EventKind distinguishes arrivals from removals
type EventKind int

const (
	Arrival EventKind = iota
	Removal
)

func (k EventKind) String() string {
	if k == Removal {
		return "removal"
	}
	return "arrival"
}

// Event is one hardware notification
type Event struct {
	Kind EventKind
	Path string
}

// Handle is an open reference to one device. The receiver of a Handle
// owns it and must call Release exactly once.
type Handle interface {
	Property(key string) (string, error)
	Release() error
}

// Iterator yields handles for the devices matching at creation time
type Iterator interface {
	Next() (Handle, bool)
}

// Platform is the OS notification and enumeration mechanism
type Platform interface {
	// Subscribe delivers arrival and removal events in the order they
	// occur until ctx is cancelled, then closes the channel
	Subscribe(ctx context.Context) (<-chan Event, error)
	// Devices returns an iterator over currently attached devices
	Devices() (Iterator, error)
}

// Publisher receives every rebuilt device list
type Publisher func(devices []models.USBDevice)

// Subscriber owns the USB subscription lifecycle
type Subscriber struct {
	platform Platform
	publish  Publisher
	log      *logrus.Entry

	mu         sync.Mutex
	subscribed bool
	done       chan struct{}
}

// NewSubscriber creates an unregistered Subscriber
func NewSubscriber(platform Platform, publish Publisher, log *logrus.Entry) *Subscriber {
	return &Subscriber{
		platform: platform,
		publish:  publish,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start registers for notifications, publishes the current device list
// and keeps it current until ctx is cancelled. Calling Start again while
// subscribed does nothing.
func (s *Subscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.subscribed {
		s.mu.Unlock()
		return nil
	}
	s.subscribed = true
	s.mu.Unlock()

	events, err := s.platform.Subscribe(ctx)
	if err != nil {
		s.refresh()
		close(s.done)
		return err
	}

	s.refresh()

	go func() {
		defer close(s.done)
		for event := range events {
			s.log.WithFields(logrus.Fields{
				"event": event.Kind.String(),
				"path":  event.Path,
			}).Debug("USB device event")
			s.refresh()
		}
	}()

	return nil
}

// Done is closed once the event loop has exited
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// refresh drains a fresh iterator and publishes the complete list
func (s *Subscriber) refresh() {
	iterator, err := s.platform.Devices()
	if errors.Is(err, ErrUnsupported) {
		return
	}
	if err != nil {
		s.log.WithError(err).Warn("Failed to enumerate USB devices")
		return
	}

	devices := []models.USBDevice{}
	for {
		handle, ok := iterator.Next()
		if !ok {
			break
		}
		devices = append(devices, s.readDevice(handle))
	}
	s.publish(devices)
}

// readDevice reads one device and releases its handle on every path
func (s *Subscriber) readDevice(handle Handle) (device models.USBDevice) {
	defer func() {
		if err := handle.Release(); err != nil {
			s.log.WithError(err).Debug("Failed to release USB device handle")
		}
	}()

	if name, err := handle.Property(PropertyName); err == nil {
		device.Name = models.StringPtr(strings.TrimSpace(name))
	}
	if raw, err := handle.Property(PropertyVendorID); err == nil {
		device.VendorID = parseID(raw)
	}
	if raw, err := handle.Property(PropertyProductID); err == nil {
		device.ProductID = parseID(raw)
	}
	return device
}

// parseID reads a hexadecimal USB identifier such as "05ac" or "0x05AC"
func parseID(raw string) *int {
	raw = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), "0x")
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseUint(raw, 16, 16)
	if err != nil {
		return nil
	}
	id := int(value)
	return &id
}
