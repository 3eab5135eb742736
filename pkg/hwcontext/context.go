/*
Copyright © 2024 - 2026 Firmware Tools Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package hwcontext holds the shared hardware state of the firmware update
// daemon: the ESP registry, boot entry enumeration, hardware identity and
// the flag and signal plumbing plugins observe.
package hwcontext

import (
	"sort"
	"strings"

	"github.com/firmware-tools/hwcontext/pkg/constants"
	"github.com/firmware-tools/hwcontext/pkg/efivars"
	fwErr "github.com/firmware-tools/hwcontext/pkg/error"
	"github.com/firmware-tools/hwcontext/pkg/fdt"
	"github.com/firmware-tools/hwcontext/pkg/hwids"
	"github.com/firmware-tools/hwcontext/pkg/types"
	"github.com/firmware-tools/hwcontext/pkg/volume"
)

// ContextFlag is a bit in the context flag set.
type ContextFlag uint64

const (
	// FlagLoadedHwinfo is set once LoadHwinfo ran; the guarded HWID
	// accessors refuse to answer before it
	FlagLoadedHwinfo ContextFlag = 1 << iota
	// FlagInhibitVolumeMount forbids mounting volumes by policy
	FlagInhibitVolumeMount
	// FlagIgnoreEfivarsFreeSpace skips the NVRAM free-space check
	FlagIgnoreEfivarsFreeSpace
	// FlagFdeBitlocker marks a detected BitLocker volume
	FlagFdeBitlocker
	// FlagFdeSnapd marks a detected snapd encrypted data volume
	FlagFdeSnapd
)

// PowerState describes the AC/battery situation.
type PowerState int

const (
	PowerStateUnknown PowerState = iota
	PowerStateAC
	PowerStateBattery
)

func (s PowerState) String() string {
	switch s {
	case PowerStateAC:
		return "ac"
	case PowerStateBattery:
		return "battery"
	}
	return "unknown"
}

// LidState describes the laptop lid.
type LidState int

const (
	LidStateUnknown LidState = iota
	LidStateOpen
	LidStateClosed
)

func (s LidState) String() string {
	switch s {
	case LidStateOpen:
		return "open"
	case LidStateClosed:
		return "closed"
	}
	return "unknown"
}

// DisplayState describes whether a display is connected and active.
type DisplayState int

const (
	DisplayStateUnknown DisplayState = iota
	DisplayStateConnected
	DisplayStateDisconnected
)

func (s DisplayState) String() string {
	switch s {
	case DisplayStateConnected:
		return "connected"
	case DisplayStateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// ChangeEvent is a typed notification about one observable transition,
// carrying the before and after values.
type ChangeEvent interface {
	changeEvent()
}

type FlagsChanged struct{ Old, New ContextFlag }
type PowerStateChanged struct{ Old, New PowerState }
type LidStateChanged struct{ Old, New LidState }
type DisplayStateChanged struct{ Old, New DisplayState }
type BatteryLevelChanged struct{ Old, New uint }
type BatteryThresholdChanged struct{ Old, New uint }

func (FlagsChanged) changeEvent()            {}
func (PowerStateChanged) changeEvent()       {}
func (LidStateChanged) changeEvent()         {}
func (DisplayStateChanged) changeEvent()     {}
func (BatteryLevelChanged) changeEvent()     {}
func (BatteryThresholdChanged) changeEvent() {}

// SignalHandle identifies one registered listener for unregistration.
type SignalHandle int

type notifier[T any] struct {
	next      SignalHandle
	handles   []SignalHandle
	listeners map[SignalHandle]T
}

func newNotifier[T any]() *notifier[T] {
	return &notifier[T]{listeners: map[SignalHandle]T{}}
}

func (n *notifier[T]) register(listener T) SignalHandle {
	n.next++
	n.handles = append(n.handles, n.next)
	n.listeners[n.next] = listener
	return n.next
}

func (n *notifier[T]) unregister(handle SignalHandle) {
	if _, ok := n.listeners[handle]; !ok {
		return
	}
	delete(n.listeners, handle)
	for i, h := range n.handles {
		if h == handle {
			n.handles = append(n.handles[:i], n.handles[i+1:]...)
			break
		}
	}
}

// each invokes the listeners synchronously in registration order.
func (n *notifier[T]) each(fn func(T)) {
	for _, h := range n.handles {
		fn(n.listeners[h])
	}
}

// Firmware is the capability firmware parsers registered on the context
// must implement.
type Firmware interface {
	Parse(data []byte) error
}

// FirmwareFactory yields a fresh parser instance.
type FirmwareFactory func() Firmware

// Backend is a device enumeration source registered by the daemon.
type Backend interface {
	Name() string
}

// Quirks looks up per-GUID quirk values; the context uses it to attach
// vendor supplied flags to matching hardware IDs.
type Quirks interface {
	Lookup(guid, key string) (string, bool)
}

// Context is the shared hardware state. It is not safe for concurrent use;
// the daemon accesses it from its main loop only.
type Context struct {
	logger    types.Logger
	fs        types.FS
	mounter   types.Mounter
	runner    types.Runner
	inventory types.VolumeInventory
	efivars   *efivars.Efivars
	quirks    Quirks

	flags            ContextFlag
	powerState       PowerState
	lidState         LidState
	displayState     DisplayState
	batteryLevel     uint
	batteryThreshold uint

	espVolumes   []*types.Volume
	espPopulated bool
	espLocation  string

	hwids      *hwids.Hwids
	hwidFlags  map[string]bool
	hwidConfig HwidConfig

	fdtImage  *fdt.Image
	fdtLoaded bool

	udevSubsystems map[string][]string

	firmwareFactories map[string]FirmwareFactory
	firmwareTypeTags  map[string]string

	runtimeVersions map[string]string
	compileVersions map[string]string

	backends []Backend

	changed         *notifier[func(ChangeEvent)]
	securityChanged *notifier[func()]
	housekeeping    *notifier[func()]
}

// Option customizes the context at construction time.
type Option func(*Context)

func WithLogger(logger types.Logger) Option {
	return func(c *Context) { c.logger = logger }
}

func WithFs(fs types.FS) Option {
	return func(c *Context) { c.fs = fs }
}

func WithMounter(mounter types.Mounter) Option {
	return func(c *Context) { c.mounter = mounter }
}

func WithRunner(runner types.Runner) Option {
	return func(c *Context) { c.runner = runner }
}

func WithInventory(inventory types.VolumeInventory) Option {
	return func(c *Context) { c.inventory = inventory }
}

func WithVariables(vars efivars.Variables) Option {
	return func(c *Context) { c.efivars = efivars.New(c.logger, vars) }
}

func WithQuirks(quirks Quirks) Option {
	return func(c *Context) { c.quirks = quirks }
}

// New builds a context with host defaults for anything not overridden.
func New(opts ...Option) *Context {
	c := &Context{
		logger:            types.NewLogger(),
		batteryLevel:      constants.BatteryLevelInvalid,
		batteryThreshold:  constants.BatteryLevelInvalid,
		hwids:             hwids.New(),
		hwidFlags:         map[string]bool{},
		udevSubsystems:    map[string][]string{},
		firmwareFactories: map[string]FirmwareFactory{},
		firmwareTypeTags:  map[string]string{},
		runtimeVersions:   map[string]string{},
		compileVersions:   map[string]string{},
		changed:           newNotifier[func(ChangeEvent)](),
		securityChanged:   newNotifier[func()](),
		housekeeping:      newNotifier[func()](),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fs == nil {
		c.fs = types.NewOSFS()
	}
	if c.mounter == nil {
		c.mounter = types.NewMounter(constants.MountBinary)
	}
	if c.runner == nil {
		c.runner = &types.RealRunner{Logger: c.logger}
	}
	if c.inventory == nil {
		c.inventory = volume.NewInventory(c.logger, c.fs, c.runner)
	}
	if c.efivars == nil {
		c.efivars = efivars.New(c.logger, efivars.NewVariablesFromEnv())
	}
	if c.quirks == nil {
		c.quirks = NewQuirkStore()
	}
	return c
}

// Logger returns the context logger.
func (c *Context) Logger() types.Logger {
	return c.logger
}

// Efivars returns the boot variable manager.
func (c *Context) Efivars() *efivars.Efivars {
	return c.efivars
}

// Inventory returns the block volume inventory.
func (c *Context) Inventory() types.VolumeInventory {
	return c.inventory
}

// OnChange registers a listener for typed state change events.
func (c *Context) OnChange(listener func(ChangeEvent)) SignalHandle {
	return c.changed.register(listener)
}

// OffChange removes a change listener.
func (c *Context) OffChange(handle SignalHandle) {
	c.changed.unregister(handle)
}

func (c *Context) emit(ev ChangeEvent) {
	c.changed.each(func(fn func(ChangeEvent)) { fn(ev) })
}

// OnSecurityChanged registers a listener for the security-changed signal.
func (c *Context) OnSecurityChanged(listener func()) SignalHandle {
	return c.securityChanged.register(listener)
}

// OffSecurityChanged removes a security-changed listener.
func (c *Context) OffSecurityChanged(handle SignalHandle) {
	c.securityChanged.unregister(handle)
}

// EmitSecurityChanged fans out the security-changed signal.
func (c *Context) EmitSecurityChanged() {
	c.securityChanged.each(func(fn func()) { fn() })
}

// OnHousekeeping registers a listener for the housekeeping signal.
func (c *Context) OnHousekeeping(listener func()) SignalHandle {
	return c.housekeeping.register(listener)
}

// OffHousekeeping removes a housekeeping listener.
func (c *Context) OffHousekeeping(handle SignalHandle) {
	c.housekeeping.unregister(handle)
}

// EmitHousekeeping fans out the housekeeping signal.
func (c *Context) EmitHousekeeping() {
	c.housekeeping.each(func(fn func()) { fn() })
}

// HasFlag reports whether the given flag bit is set.
func (c *Context) HasFlag(flag ContextFlag) bool {
	return c.flags&flag != 0
}

// AddFlag sets a flag bit, notifying listeners only if it was clear.
func (c *Context) AddFlag(flag ContextFlag) {
	if c.flags&flag == flag {
		return
	}
	old := c.flags
	c.flags |= flag
	c.emit(FlagsChanged{Old: old, New: c.flags})
}

// RemoveFlag clears a flag bit, notifying listeners only if it was set.
func (c *Context) RemoveFlag(flag ContextFlag) {
	if c.flags&flag == 0 {
		return
	}
	old := c.flags
	c.flags &^= flag
	c.emit(FlagsChanged{Old: old, New: c.flags})
}

// PowerState returns the current power state.
func (c *Context) PowerState() PowerState {
	return c.powerState
}

// SetPowerState updates the power state, notifying on a transition.
func (c *Context) SetPowerState(state PowerState) {
	if c.powerState == state {
		return
	}
	old := c.powerState
	c.powerState = state
	c.emit(PowerStateChanged{Old: old, New: state})
}

// LidState returns the current lid state.
func (c *Context) LidState() LidState {
	return c.lidState
}

// SetLidState updates the lid state, notifying on a transition.
func (c *Context) SetLidState(state LidState) {
	if c.lidState == state {
		return
	}
	old := c.lidState
	c.lidState = state
	c.emit(LidStateChanged{Old: old, New: state})
}

// DisplayState returns the current display state.
func (c *Context) DisplayState() DisplayState {
	return c.displayState
}

// SetDisplayState updates the display state, notifying on a transition.
func (c *Context) SetDisplayState(state DisplayState) {
	if c.displayState == state {
		return
	}
	old := c.displayState
	c.displayState = state
	c.emit(DisplayStateChanged{Old: old, New: state})
}

// BatteryLevel returns the battery percentage, or BatteryLevelInvalid.
func (c *Context) BatteryLevel() uint {
	return c.batteryLevel
}

// SetBatteryLevel updates the battery percentage, notifying on a change.
func (c *Context) SetBatteryLevel(level uint) {
	if c.batteryLevel == level {
		return
	}
	old := c.batteryLevel
	c.batteryLevel = level
	c.emit(BatteryLevelChanged{Old: old, New: level})
}

// BatteryThreshold returns the minimum battery percentage for updates, or
// BatteryLevelInvalid.
func (c *Context) BatteryThreshold() uint {
	return c.batteryThreshold
}

// SetBatteryThreshold updates the update threshold, notifying on a change.
func (c *Context) SetBatteryThreshold(threshold uint) {
	if c.batteryThreshold == threshold {
		return
	}
	old := c.batteryThreshold
	c.batteryThreshold = threshold
	c.emit(BatteryThresholdChanged{Old: old, New: threshold})
}

// EspLocation returns the user pinned ESP mount path, or "".
func (c *Context) EspLocation() string {
	return c.espLocation
}

// SetEspLocation pins the ESP to a specific mount path.
func (c *Context) SetEspLocation(path string) {
	c.espLocation = path
}

// RegisterUdevSubsystem records that a plugin wants events for a udev
// subsystem. Keys may be "base" or "base:subkind"; the latter implicitly
// registers the base subsystem too. Plugin lists are deduplicated and kept
// sorted.
func (c *Context) RegisterUdevSubsystem(subsystem, plugin string) {
	if base, _, found := strings.Cut(subsystem, ":"); found {
		c.registerUdevSubsystem(base, plugin)
	}
	c.registerUdevSubsystem(subsystem, plugin)
}

func (c *Context) registerUdevSubsystem(subsystem, plugin string) {
	plugins := c.udevSubsystems[subsystem]
	idx := sort.SearchStrings(plugins, plugin)
	if idx < len(plugins) && plugins[idx] == plugin {
		return
	}
	plugins = append(plugins, "")
	copy(plugins[idx+1:], plugins[idx:])
	plugins[idx] = plugin
	c.udevSubsystems[subsystem] = plugins
}

// UdevSubsystems returns all registered subsystem keys, sorted.
func (c *Context) UdevSubsystems() []string {
	out := make([]string, 0, len(c.udevSubsystems))
	for subsystem := range c.udevSubsystems {
		out = append(out, subsystem)
	}
	sort.Strings(out)
	return out
}

// PluginsForUdevSubsystem returns the plugins interested in a subsystem,
// in lexicographic order.
func (c *Context) PluginsForUdevSubsystem(subsystem string) []string {
	return c.udevSubsystems[subsystem]
}

// RegisterFirmware maps a firmware tag to a parser factory and a type tag
// for reflection style queries.
func (c *Context) RegisterFirmware(tag, typeTag string, factory FirmwareFactory) {
	c.firmwareFactories[tag] = factory
	c.firmwareTypeTags[tag] = typeTag
}

// FirmwareForTag yields a fresh parser for the given tag.
func (c *Context) FirmwareForTag(tag string) (Firmware, error) {
	factory, ok := c.firmwareFactories[tag]
	if !ok {
		return nil, fwErr.NotFound("no firmware parser registered for %q", tag)
	}
	return factory(), nil
}

// FirmwareTypeTag returns the type tag registered for a firmware tag.
func (c *Context) FirmwareTypeTag(tag string) (string, bool) {
	typeTag, ok := c.firmwareTypeTags[tag]
	return typeTag, ok
}

// FirmwareTags returns all registered firmware tags, sorted.
func (c *Context) FirmwareTags() []string {
	out := make([]string, 0, len(c.firmwareFactories))
	for tag := range c.firmwareFactories {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// AddRuntimeVersion records the version of a runtime component.
func (c *Context) AddRuntimeVersion(component, version string) {
	c.runtimeVersions[component] = version
}

// RuntimeVersions returns the recorded runtime component versions.
func (c *Context) RuntimeVersions() map[string]string {
	return c.runtimeVersions
}

// AddCompileVersion records the version a component was built against.
func (c *Context) AddCompileVersion(component, version string) {
	c.compileVersions[component] = version
}

// CompileVersions returns the recorded compile time versions.
func (c *Context) CompileVersions() map[string]string {
	return c.compileVersions
}

// AddBackend registers a device enumeration backend.
func (c *Context) AddBackend(backend Backend) {
	c.backends = append(c.backends, backend)
}

// Backends returns the registered backends in registration order.
func (c *Context) Backends() []Backend {
	return c.backends
}

// HasHwidFlag reports whether a quirk attached the given custom flag to
// one of this machine's hardware IDs.
func (c *Context) HasHwidFlag(flag string) bool {
	return c.hwidFlags[flag]
}

// HwidFlags returns all accumulated HWID custom flags, sorted.
func (c *Context) HwidFlags() []string {
	out := make([]string, 0, len(c.hwidFlags))
	for flag := range c.hwidFlags {
		out = append(out, flag)
	}
	sort.Strings(out)
	return out
}
