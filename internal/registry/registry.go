package registry

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/smartclass-id/classroom_core_v1/internal/apperrors"
	"github.com/smartclass-id/classroom_core_v1/internal/clock"
	"github.com/smartclass-id/classroom_core_v1/internal/store"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{4}$`)

// Device binds one physical response device to the student who claimed it.
type Device struct {
	Code       string    `json:"code"`
	OwnerNIM   string    `json:"owner_nim"`
	AssignedAt time.Time `json:"assigned_at"`
}

// Inventory answers whether a device code physically exists. Backed by the
// device_inventories table in production, a plain set in tests.
type Inventory interface {
	Contains(code string) (bool, error)
}

// StaticInventory is an Inventory over a fixed code list.
type StaticInventory map[string]struct{}

func NewStaticInventory(codes ...string) StaticInventory {
	inv := make(StaticInventory, len(codes))
	for _, c := range codes {
		inv[c] = struct{}{}
	}
	return inv
}

func (s StaticInventory) Contains(code string) (bool, error) {
	_, ok := s[code]
	return ok, nil
}

const assignPrefix = "device/assign/"

// Registry owns the device-code to student mapping. The mapping is a partial
// bijection: a code has at most one owner, a student holds at most one code.
// All mutations happen under one mutex and hit the persistence port before
// they are visible, so lookups made right after Assign always see it.
type Registry struct {
	mu        sync.Mutex
	inventory Inventory
	port      store.Port
	clk       clock.Clock
	byCode    map[string]*Device
	byOwner   map[string]*Device
}

func New(inventory Inventory, port store.Port, clk clock.Clock) (*Registry, error) {
	r := &Registry{
		inventory: inventory,
		port:      port,
		clk:       clk,
		byCode:    make(map[string]*Device),
		byOwner:   make(map[string]*Device),
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

// load rehydrates assignments persisted by a previous run.
func (r *Registry) load() error {
	entries, err := r.port.List(assignPrefix)
	if err != nil {
		return fmt.Errorf("load assignments: %w", err)
	}
	for key, raw := range entries {
		var d Device
		if err := json.Unmarshal(raw, &d); err != nil {
			return fmt.Errorf("decode assignment %s: %w", key, err)
		}
		dev := d
		r.byCode[dev.Code] = &dev
		r.byOwner[dev.OwnerNIM] = &dev
	}
	return nil
}

// Assign claims code for nim. The code must be well-formed, exist in the
// inventory, and be free; the student must not hold another device.
func (r *Registry) Assign(nim, code string) (*Device, error) {
	if !codePattern.MatchString(code) {
		return nil, fmt.Errorf("device code %q must match [A-Z0-9]{4}: %w", code, apperrors.ErrValidation)
	}
	if nim == "" {
		return nil, fmt.Errorf("student nim is required: %w", apperrors.ErrValidation)
	}
	known, err := r.inventory.Contains(code)
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, fmt.Errorf("device code %s is not in the inventory: %w", code, apperrors.ErrNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byCode[code]; ok && existing.OwnerNIM != nim {
		return nil, fmt.Errorf("device %s already claimed by %s: %w", code, existing.OwnerNIM, apperrors.ErrConflict)
	}
	if existing, ok := r.byOwner[nim]; ok && existing.Code != code {
		return nil, fmt.Errorf("student %s already holds device %s: %w", nim, existing.Code, apperrors.ErrConflict)
	}
	if existing, ok := r.byCode[code]; ok {
		// Same student re-claiming the same device.
		cp := *existing
		return &cp, nil
	}

	dev := &Device{Code: code, OwnerNIM: nim, AssignedAt: r.clk.Now()}
	if err := r.persist(dev); err != nil {
		return nil, err
	}
	r.byCode[code] = dev
	r.byOwner[nim] = dev
	cp := *dev
	return &cp, nil
}

// Reset releases whatever device nim holds. Releasing nothing is success.
func (r *Registry) Reset(nim string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dev, ok := r.byOwner[nim]
	if !ok {
		return nil
	}
	if err := r.port.Delete(assignPrefix + dev.Code); err != nil {
		return fmt.Errorf("delete assignment %s: %w", dev.Code, err)
	}
	delete(r.byOwner, nim)
	delete(r.byCode, dev.Code)
	return nil
}

// LookupOwner returns the NIM holding code, if any.
func (r *Registry) LookupOwner(code string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dev, ok := r.byCode[code]
	if !ok {
		return "", false
	}
	return dev.OwnerNIM, true
}

// LookupDevice returns the device nim holds, if any.
func (r *Registry) LookupDevice(nim string) (*Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dev, ok := r.byOwner[nim]
	if !ok {
		return nil, false
	}
	cp := *dev
	return &cp, true
}

func (r *Registry) persist(dev *Device) error {
	raw, err := json.Marshal(dev)
	if err != nil {
		return err
	}
	if err := r.port.Set(assignPrefix+dev.Code, raw); err != nil {
		return fmt.Errorf("persist assignment %s: %w", dev.Code, err)
	}
	return nil
}
