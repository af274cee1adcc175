package device

// DriftCorrection holds the engine wide drift correction settings. Drift
// values are in seconds.
type DriftCorrection struct {
	Enabled           bool    `yaml:"enabled"`
	MaxDriftUntilSync float64 `yaml:"maxDriftUntilSync"`
	MaxForwardDrift   float64 `yaml:"maxForwardDrift"`
	MaxBackwardDrift  float64 `yaml:"maxBackwardDrift"`
}

// DefaultDriftCorrection returns the settings the engine starts with.
func DefaultDriftCorrection() DriftCorrection {
	return DriftCorrection{
		Enabled:           true,
		MaxDriftUntilSync: 2,
		MaxForwardDrift:   0.2,
		MaxBackwardDrift:  1.0,
	}
}

// Context is the part of the engine that sensors, devices and the manager
// depend on. The engine implements it, tests can use StaticContext.
type Context interface {
	DriftCorrection() DriftCorrection
	AutoSync() bool
	AutoDetection() bool
	// SyncAsync requests an engine sync on the next tick.
	SyncAsync()
}

// StaticContext is a Context with fixed settings that counts sync
// requests.
type StaticContext struct {
	Drift             DriftCorrection
	AutoSyncEnabled   bool
	AutoDetectEnabled bool
	SyncRequests      int
}

// NewStaticContext returns a context with default engine settings.
func NewStaticContext() *StaticContext {
	return &StaticContext{
		Drift:           DefaultDriftCorrection(),
		AutoSyncEnabled: true,
	}
}

// DriftCorrection implements Context.
func (c *StaticContext) DriftCorrection() DriftCorrection { return c.Drift }

// AutoSync implements Context.
func (c *StaticContext) AutoSync() bool { return c.AutoSyncEnabled }

// AutoDetection implements Context.
func (c *StaticContext) AutoDetection() bool { return c.AutoDetectEnabled }

// SyncAsync implements Context.
func (c *StaticContext) SyncAsync() { c.SyncRequests++ }
