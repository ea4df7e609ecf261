package ledger

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/karalabe/hid"
	"github.com/pkg/errors"
	"github/chapool/ledger-signer/internal/util"
)

const (
	vendorID   uint16 = 0x2c97
	usageID    uint16 = 0xffa0 // macOS and Windows discovery
	endpointID int    = 0      // Linux discovery

	// Minimum time between two USB enumerations.
	refreshThrottling = 500 * time.Millisecond
)

var ErrNoDevice = errors.New("no Ledger device found")

// DefaultProductIDs lists legacy product ids and the model bytes of the `MMII` scheme
// (model, interface bitfield) used by newer firmware.
var DefaultProductIDs = []uint16{
	0x0000, // Ledger Blue
	0x0001, // Ledger Nano S
	0x0004, // Ledger Nano X
	0x0005, // Ledger Nano S Plus
	0x0006, // Ledger Stax
	0x0007, // Ledger Flex

	0x1000, // Ledger Nano S
	0x4000, // Ledger Nano X
	0x5000, // Ledger Nano S Plus
	0x6000, // Ledger Stax
	0x7000, // Ledger Flex
}

// Hub discovers Ledger devices attached over USB.
type Hub struct {
	productIDs []uint16
	enumerate  func(vendorID uint16, productID uint16) ([]hid.DeviceInfo, error)
	clock      time2.Clock

	mu        sync.Mutex
	refreshed time.Time
	infos     []hid.DeviceInfo
}

// NewHub creates a hub matching the given product ids, formatted as hex ("0x4000") or
// decimal. An empty list matches DefaultProductIDs. clock paces USB enumerations.
func NewHub(productIDs []string, clock time2.Clock) (*Hub, error) {
	if !hid.Supported() {
		return nil, errors.New("USB HID is not supported on this platform")
	}

	ids := DefaultProductIDs
	if len(productIDs) > 0 {
		ids = make([]uint16, 0, len(productIDs))
		for _, s := range productIDs {
			id, err := strconv.ParseUint(s, 0, 16)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid Ledger product id %q", s)
			}
			ids = append(ids, uint16(id))
		}
	}

	return &Hub{
		productIDs: ids,
		enumerate:  hid.Enumerate,
		clock:      clock,
	}, nil
}

// Devices returns the currently attached Ledger devices.
func (h *Hub) Devices() ([]hid.DeviceInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.clock.Now()
	if now.Sub(h.refreshed) < refreshThrottling {
		return h.infos, nil
	}

	all, err := h.enumerate(vendorID, 0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate USB devices")
	}

	infos := make([]hid.DeviceInfo, 0, len(all))
	for _, info := range all {
		if h.matches(info) {
			infos = append(infos, info)
		}
	}

	h.refreshed = now
	h.infos = infos

	return infos, nil
}

// Open connects to the first attached Ledger device.
func (h *Hub) Open(ctx context.Context) (*Ledger, error) {
	log := util.LogFromContext(ctx)

	infos, err := h.Devices()
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, ErrNoDevice
	}

	info := infos[0]
	dev, err := info.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open Ledger at %s", info.Path)
	}

	log.Info().
		Str("path", info.Path).
		Str("product", info.Product).
		Str("product_id", strconv.FormatUint(uint64(info.ProductID), 16)).
		Msg("Opened Ledger device")

	return New(info.Path, dev), nil
}

func (h *Hub) matches(info hid.DeviceInfo) bool {
	// Windows and macOS match on the usage page, Linux on the interface
	if info.UsagePage != usageID && info.Interface != endpointID {
		return false
	}

	modelOnly := info.ProductID & 0xff00
	for _, id := range h.productIDs {
		if info.ProductID == id || modelOnly == id {
			return true
		}
	}

	return false
}
