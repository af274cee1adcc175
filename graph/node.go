package graph

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/rs/xid"

	"github.com/neuromore/engine/channel"
	"github.com/neuromore/engine/log"
	"github.com/neuromore/engine/metric"
)

// Kind tags the role of a node in the classifier.
type Kind int

// Node kinds.
const (
	// KindProcessor transforms input channels into output channels.
	KindProcessor Kind = iota
	// KindInput produces channels without inputs.
	KindInput
	// KindDeviceInput exposes sensor channels of a device.
	KindDeviceInput
	// KindOutput consumes channels, files for example.
	KindOutput
	// KindFeedback consumes channels and sends them to the outside world.
	KindFeedback
)

func (k Kind) String() string {
	switch k {
	case KindProcessor:
		return "processor"
	case KindInput:
		return "input"
	case KindDeviceInput:
		return "device input"
	case KindOutput:
		return "output"
	case KindFeedback:
		return "feedback"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsOutput returns true for kinds that end the signal flow.
func (k Kind) IsOutput() bool {
	return k == KindOutput || k == KindFeedback
}

// IsInput returns true for kinds that start the signal flow.
func (k Kind) IsInput() bool {
	return k == KindInput || k == KindDeviceInput
}

// Flags configure the generic node lifecycle.
type Flags uint32

// Node flags.
const (
	// MultiChannelMultiplication repeats single channel inputs to the size
	// of the largest input multichannel.
	MultiChannelMultiplication Flags = 1 << iota
	// NamePropagation copies input channel names to the outputs.
	NamePropagation
	// MetadataPropagation copies names, colors and synchronicity of
	// inputs to the outputs when the node starts.
	MetadataPropagation
	// ChannelColoring colors outputs with the node color.
	ChannelColoring
	// RequireInputConnection keeps the node stopped without a single input
	// channel.
	RequireInputConnection
	// RequireAllInputConnections keeps the node stopped while any input
	// port is empty.
	RequireAllInputConnections
	// RequireConstantSampleRate rejects irregular inputs.
	RequireConstantSampleRate
	// RequireMatchingSampleRates rejects inputs with different rates.
	RequireMatchingSampleRates
	// RequireSyncedInput rejects independent inputs.
	RequireSyncedInput
	// ExternalChannels marks output channels owned by someone else, sensors
	// for example. The node never resets or resizes them.
	ExternalChannels
)

// DefaultFlags are used by processing nodes unless they set their own.
const DefaultFlags = NamePropagation | MetadataPropagation | RequireInputConnection

// Behavior is the node kind specific part of a node. It is extended by
// the optional capability interfaces below.
type Behavior interface {
	Kind() Kind
	TypeName() string
}

// Initializable behaviors create ports and set flags once the node is
// constructed.
type Initializable interface {
	Init(n *Node)
}

// Starter behaviors replace the default channel start. They usually call
// StartChannels first.
type Starter interface {
	Start(n *Node, elapsed float64) error
}

// Updatable behaviors process samples. Update is only called for
// initialized nodes.
type Updatable interface {
	Update(n *Node, elapsed, delta float64)
}

// Resettable behaviors clear their state when the node is reset.
type Resettable interface {
	Reset(n *Node)
}

// Delayer behaviors delay the signal between an input and an output port.
type Delayer interface {
	Delay(n *Node, in, out int) float64
}

// Latencyer behaviors add latency between an input and an output port.
// Source nodes are asked with input -1.
type Latencyer interface {
	Latency(n *Node, in, out int) float64
}

// EpochSampler behaviors need a minimum number of buffered input samples.
type EpochSampler interface {
	NumEpochSamples(n *Node, in int) int
	NumStartupSamples(n *Node, in int) int
}

// Syncer behaviors follow the engine sync point.
type Syncer interface {
	Sync(n *Node, t float64)
}

// Stopper behaviors release resources when the classifier stops.
type Stopper interface {
	Stop(n *Node) error
}

// ReInitChecker behaviors add their own start conditions. ReInit is called
// after all generic requirements passed.
type ReInitChecker interface {
	ReInit(n *Node, elapsed float64) bool
}

const (
	defaultNodeColor     = "#4fc3f7"
	defaultMinBufferSize = 500
	maxReaderSyncOffset  = 5.0
)

// Node is a signal processing vertex of the classifier. It owns the generic
// lifecycle: input collection, requirement checks, start and stop
// transitions and buffer sizing. The kind specific work is done by its
// Behavior.
type Node struct {
	id       string
	name     string
	color    string
	behavior Behavior
	logger   log.Logger
	graph    *Classifier

	inputs  []*Port
	outputs []*Port
	flags   Flags

	inputChannels *channel.MultiChannel
	reader        *channel.MultiReader
	// readerMap maps port*multiplier+channel to a reader, -1 for empty
	// ports. Only kept with multichannel multiplication.
	readerMap  []int
	multiplier int

	enabled         bool
	initialized     bool
	lastInitialized bool
	resetAsync      bool
	resizeReady     bool

	errors   messages
	warnings messages

	meter   metric.ResetFunc
	measure metric.MeasureFunc
}

// NewNode returns a node driven by b.
func NewNode(name string, b Behavior) *Node {
	n := &Node{
		id:            xid.New().String(),
		name:          name,
		color:         defaultNodeColor,
		behavior:      b,
		logger:        log.Silent,
		inputChannels: channel.NewMultiChannel(),
		enabled:       true,
		meter:         metric.Meter(b, 0),
	}
	n.reader = channel.NewMultiReader(n.inputChannels)
	if i, ok := b.(Initializable); ok {
		i.Init(n)
	}
	return n
}

// ID returns unique id of the node.
func (n *Node) ID() string {
	return n.id
}

// Name returns the node name.
func (n *Node) Name() string {
	return n.name
}

// SetName renames the node. Output source names follow on next start.
func (n *Node) SetName(name string) {
	n.name = name
}

// Color returns the node color.
func (n *Node) Color() string {
	return n.color
}

// SetColor sets the node color.
func (n *Node) SetColor(color string) {
	n.color = color
}

// Behavior returns the kind specific part of the node.
func (n *Node) Behavior() Behavior {
	return n.behavior
}

// Kind returns the kind of the node.
func (n *Node) Kind() Kind {
	return n.behavior.Kind()
}

// TypeName returns the name of the node type.
func (n *Node) TypeName() string {
	return n.behavior.TypeName()
}

// Logger returns the node logger.
func (n *Node) Logger() log.Logger {
	return n.logger
}

// Classifier returns the classifier the node belongs to, nil if none.
func (n *Node) Classifier() *Classifier {
	return n.graph
}

// SetFlags replaces all flags.
func (n *Node) SetFlags(f Flags) {
	n.flags = f
}

// SetFlag switches a single flag.
func (n *Node) SetFlag(f Flags, on bool) {
	if on {
		n.flags |= f
		return
	}
	n.flags &^= f
}

// HasFlag checks if all bits of f are set.
func (n *Node) HasFlag(f Flags) bool {
	return n.flags&f == f
}

// IsEnabled returns true unless the node was disabled.
func (n *Node) IsEnabled() bool {
	return n.enabled
}

// SetEnabled enables or disables the node. A disabled node stops on the
// next ReInit.
func (n *Node) SetEnabled(enabled bool) {
	n.enabled = enabled
}

// IsInitialized returns true while the node is running.
func (n *Node) IsInitialized() bool {
	return n.initialized
}

// ResetAsync requests a reset on the next ReInit.
func (n *Node) ResetAsync() {
	n.resetAsync = true
}

// IsResizeBuffersReady returns true if buffers were resized in the
// current pass.
func (n *Node) IsResizeBuffersReady() bool {
	return n.resizeReady
}

// SetResizeBuffersReady sets the resize flag.
func (n *Node) SetResizeBuffersReady(ready bool) {
	n.resizeReady = ready
}

// AddInputPort appends an input port.
func (n *Node) AddInputPort(name string) *Port {
	p := newPort(n, name, len(n.inputs), true)
	n.inputs = append(n.inputs, p)
	return p
}

// AddOutputPort appends an output port holding channels.
func (n *Node) AddOutputPort(name string, channels ...channel.Base) *Port {
	p := newPort(n, name, len(n.outputs), false)
	for _, c := range channels {
		p.output.AddChannel(c)
	}
	n.outputs = append(n.outputs, p)
	return p
}

// TruncateOutputPorts removes output ports from index size on. Their
// connections are removed from the classifier.
func (n *Node) TruncateOutputPorts(size int) {
	if size >= len(n.outputs) {
		return
	}
	for _, p := range n.outputs[size:] {
		for len(p.conns) > 0 {
			c := p.conns[0]
			if n.graph != nil {
				n.graph.removeConnection(c)
				continue
			}
			p.disconnect(c)
			c.Target.InputPort(c.TargetPort).disconnect(c)
		}
	}
	n.outputs = n.outputs[:size]
}

// NumInputPorts returns the number of input ports.
func (n *Node) NumInputPorts() int {
	return len(n.inputs)
}

// NumOutputPorts returns the number of output ports.
func (n *Node) NumOutputPorts() int {
	return len(n.outputs)
}

// InputPort returns the i-th input port.
func (n *Node) InputPort(i int) *Port {
	return n.inputs[i]
}

// OutputPort returns the i-th output port.
func (n *Node) OutputPort(i int) *Port {
	return n.outputs[i]
}

// InputChannels returns all input channels in port order, single channels
// multiplied if the node does multichannel multiplication.
func (n *Node) InputChannels() *channel.MultiChannel {
	return n.inputChannels
}

// Reader returns the reader over all input channels.
func (n *Node) Reader() *channel.MultiReader {
	return n.reader
}

// InputReader returns the reader of the c-th channel of input port p, nil
// if there is none.
func (n *Node) InputReader(p, c int) *channel.Reader {
	if n.HasFlag(MultiChannelMultiplication) {
		i := p*n.multiplier + c
		if c >= n.multiplier || i >= len(n.readerMap) || n.readerMap[i] < 0 {
			return nil
		}
		return n.reader.Reader(n.readerMap[i])
	}
	offset := 0
	for i := 0; i < p && i < len(n.inputs); i++ {
		offset += n.inputs[i].Channels().NumChannels()
	}
	if p >= len(n.inputs) || c >= n.inputs[p].Channels().NumChannels() {
		return nil
	}
	return n.reader.Reader(offset + c)
}

// Multiplier returns the size single channels are multiplied to.
func (n *Node) Multiplier() int {
	return n.multiplier
}

// SetError sets an error code with a message.
func (n *Node) SetError(c Code, text string) {
	if !n.errors.has(c) {
		n.logger.Warn(fmt.Sprintf("%s: %s", n.name, text))
	}
	n.errors.set(c, text)
}

// ClearError removes an error code.
func (n *Node) ClearError(c Code) {
	n.errors.clear(c)
}

// HasError checks if the error code is set.
func (n *Node) HasError(c Code) bool {
	return n.errors.has(c)
}

// Errors returns the errors set on the node.
func (n *Node) Errors() []Message {
	return n.errors
}

// SetWarning sets a warning code with a message.
func (n *Node) SetWarning(c Code, text string) {
	n.warnings.set(c, text)
}

// ClearWarning removes a warning code.
func (n *Node) ClearWarning(c Code) {
	n.warnings.clear(c)
}

// HasWarning checks if the warning code is set.
func (n *Node) HasWarning(c Code) bool {
	return n.warnings.has(c)
}

// Warnings returns the warnings set on the node.
func (n *Node) Warnings() []Message {
	return n.warnings
}

// ReInit re-evaluates the inputs of the node, decides if it can run and
// starts or stops it. Called once per tick before any update.
func (n *Node) ReInit(elapsed, delta float64) {
	n.lastInitialized = n.initialized
	n.initialized = true

	n.collectInputChannels()
	n.reader.SetInput(n.inputChannels)
	n.reader.DetectInputChanges()

	reset := true
	switch {
	case n.reader.HasInputChanged(channel.ChangeReference):
		n.logger.Debug("input channel reference change detected")
	case n.reader.HasInputChanged(channel.ChangeReset):
		n.logger.Debug("input channel reset detected")
	case n.reader.HasInputChanged(channel.ChangeSampleRate):
		n.logger.Debug("input channel sample rate change detected")
	case n.resetAsync:
		n.logger.Debug("async reset requested")
	default:
		reset = false
	}
	if reset {
		wasRunning := n.lastInitialized
		n.Reset()
		n.reader.DetectInputChanges()
		// a running node is stopped here and started again by PostReInit
		if wasRunning {
			n.graph.nodeStopped(n)
		}
	}

	n.initialized = n.checkInputs(elapsed)
	n.PostReInit(elapsed, delta)
}

// requirementErrors are set by checkInputs only.
var requirementErrors = []Code{
	ErrorInputConstantSampleRate,
	ErrorInputMatchingSampleRates,
	ErrorInputSynchronized,
	ErrorInputIncompatible,
	ErrorInputIncompatibleMultichannels,
}

// checkInputs applies the requirement flags. Requirement errors are set on
// the node and keep it stopped, they are cleared once resolved.
func (n *Node) checkInputs(elapsed float64) bool {
	ok, code, text := n.checkRequirements()
	for _, c := range requirementErrors {
		if c != code {
			n.ClearError(c)
		}
	}
	if code != 0 {
		n.SetError(code, text)
	}
	if !ok {
		n.ClearWarning(WarningInputTimingMismatch)
		return false
	}

	if n.reader.NumReaders() > 1 && n.reader.CalcReaderSyncOffset() > maxReaderSyncOffset {
		n.SetWarning(WarningInputTimingMismatch, "Input timing mismatch.")
	} else {
		n.ClearWarning(WarningInputTimingMismatch)
	}

	if c, ok := n.behavior.(ReInitChecker); ok {
		return c.ReInit(n, elapsed)
	}
	return true
}

// checkRequirements returns false if the node can't run, along with the
// requirement error if one applies.
func (n *Node) checkRequirements() (bool, Code, string) {
	if !n.enabled {
		return false, 0, ""
	}
	if n.HasFlag(RequireInputConnection) && len(n.inputs) > 0 && !HasIncomingChannel(n) {
		return false, 0, ""
	}
	if n.HasFlag(RequireAllInputConnections) {
		for _, p := range n.inputs {
			if p.Channels().NumChannels() == 0 {
				return false, 0, ""
			}
		}
	}

	channels := n.inputChannels.Channels()
	if n.HasFlag(RequireConstantSampleRate) {
		for _, c := range channels {
			if c.SampleRate() <= 0 {
				return false, ErrorInputConstantSampleRate, "Input must have a valid sample rate."
			}
		}
	}
	if n.HasFlag(RequireMatchingSampleRates) && !n.reader.HasUniformSampleRate() {
		return false, ErrorInputMatchingSampleRates, "Input sample rates are incompatible."
	}

	if n.HasFlag(RequireSyncedInput) {
		for _, c := range channels {
			if c.IsIndependent() {
				return false, ErrorInputSynchronized, "Input channel is not synchronized to engine."
			}
		}
	} else {
		allSynced, allIndependent := true, true
		for _, c := range channels {
			if c.IsIndependent() {
				allSynced = false
			} else {
				allIndependent = false
			}
		}
		if !allSynced && !allIndependent {
			return false, ErrorInputIncompatible, "Input channels are incompatible. Must be either synced or independent."
		}
	}

	if n.HasFlag(MultiChannelMultiplication) {
		maxSize := FindMaxInputMultiChannelSize(n)
		for _, p := range n.inputs {
			size := p.Channels().NumChannels()
			if size > 1 && size != maxSize {
				return false, ErrorInputIncompatibleMultichannels, "Sizes of input multichannels are incompatible."
			}
		}
	}
	return true, 0, ""
}

// PostReInit starts or stops the node if its state changed during ReInit.
func (n *Node) PostReInit(elapsed, delta float64) {
	if n.initialized == n.lastInitialized {
		return
	}
	if !n.initialized {
		n.logger.Debug("stopping node")
		n.Reset()
		n.graph.nodeStopped(n)
		return
	}

	n.logger.Debug("starting node")
	if err := n.Start(elapsed); err != nil {
		n.Reset()
		n.SetError(ErrorStart, err.Error())
		return
	}
	n.ClearError(ErrorStart)
	if n.HasFlag(MetadataPropagation) {
		n.propagateChannelMetadata()
	}
	if n.HasFlag(ChannelColoring) {
		n.updateOutputChannelColors()
	}
	n.updateOutputChannelSourceNames()
	n.graph.nodeStarted(n)
}

// Start is called on the transition to the running state.
func (n *Node) Start(elapsed float64) error {
	n.measure = n.meter()
	if s, ok := n.behavior.(Starter); ok {
		return s.Start(n, elapsed)
	}
	n.StartChannels(elapsed)
	return nil
}

// StartChannels starts the input readers at the time all inputs reached,
// or at elapsed for irregular inputs, and restarts owned output channels
// at that time. It returns the start time.
func (n *Node) StartChannels(elapsed float64) float64 {
	startTime := elapsed
	if n.inputChannels.SampleRate() > 0 {
		startTime = n.readerStartTime()
	}
	n.reader.Start(startTime)
	if n.HasFlag(ExternalChannels) {
		return startTime
	}
	for _, p := range n.outputs {
		for _, c := range p.output.Channels() {
			c.Reset()
			c.SetStartTime(startTime)
		}
	}
	return startTime
}

// readerStartTime returns the time all input channels reached. Sensor
// channels whose device started streaming on the last update are read from
// their first sample.
func (n *Node) readerStartTime() float64 {
	first := map[channel.Base]bool{}
	for _, p := range n.inputs {
		conn := p.Connection()
		if conn == nil || conn.Source.Kind() != KindDeviceInput {
			continue
		}
		for _, c := range p.Channels().Channels() {
			if c.SampleCounter() > 0 && int64(c.NumNewSamples()) == c.SampleCounter() {
				first[c] = true
			}
		}
	}

	t := 0.0
	for i := 0; i < n.reader.NumReaders(); i++ {
		c := n.reader.Reader(i).Channel()
		ct := c.LastSampleTime()
		if first[c] {
			ct = c.StartTime()
		}
		if i == 0 || ct < t {
			t = ct
		}
	}
	return t
}

// Update reads new input samples and lets the behavior process them.
// Inputs of stopped nodes are discarded.
func (n *Node) Update(elapsed, delta float64) {
	n.reader.Update()
	if !n.initialized {
		n.reader.Flush(true)
	}
	if !n.HasFlag(ExternalChannels) {
		for _, p := range n.outputs {
			for _, c := range p.output.Channels() {
				c.BeginAddSamples()
				c.SetElapsedTime(elapsed)
				c.UpdateLatency()
			}
		}
	}
	if !n.initialized {
		return
	}

	numSamples := n.reader.MinNumNewSamples()
	if u, ok := n.behavior.(Updatable); ok {
		u.Update(n, elapsed, delta)
	}
	if len(n.inputs) == 0 && len(n.outputs) > 0 && n.outputs[0].output.NumChannels() > 0 {
		numSamples = n.outputs[0].output.Channel(0).NumNewSamples()
	}
	if n.measure != nil {
		n.measure(int64(numSamples))
	}
}

// Reset stops the node and clears the input readers.
func (n *Node) Reset() {
	n.reader.Reset()
	if r, ok := n.behavior.(Resettable); ok {
		r.Reset(n)
	}
	n.initialized = false
	n.lastInitialized = false
	n.resetAsync = false
}

// Stop releases behavior resources.
func (n *Node) Stop() error {
	if s, ok := n.behavior.(Stopper); ok {
		return s.Stop(n)
	}
	return nil
}

// Sync moves the node to the engine sync point t.
func (n *Node) Sync(t float64) {
	if s, ok := n.behavior.(Syncer); ok {
		s.Sync(n, t)
	}
}

// UpdateChannelActivity ages all output channels by delta seconds.
func (n *Node) UpdateChannelActivity(delta float64) {
	for _, p := range n.outputs {
		for _, c := range p.output.Channels() {
			c.UpdateActivity(delta)
		}
	}
}

// ResizeBuffers resizes owned output buffers so they hold seconds of
// signal and at least the epochs all children need. Parents are resized
// first, each node only once until the ready flag is cleared.
func (n *Node) ResizeBuffers(seconds float64) {
	if n.resizeReady {
		return
	}
	n.resizeReady = true

	for _, p := range n.inputs {
		if c := p.Connection(); c != nil {
			c.Source.ResizeBuffers(seconds)
		}
	}
	if n.HasFlag(ExternalChannels) {
		return
	}

	for _, p := range n.outputs {
		channels := p.output
		if channels.NumChannels() == 0 || !channels.IsBuffer() {
			continue
		}
		minSize := 1
		for _, c := range p.conns {
			if es, ok := c.Target.behavior.(EpochSampler); ok {
				minSize = max(minSize, es.NumEpochSamples(c.Target, c.TargetPort))
			}
		}
		size := defaultMinBufferSize
		if rate := channels.SampleRate(); rate > 0 {
			size = int(seconds * rate)
		}
		channels.SetBufferSize(max(minSize, size), false)
	}
}

// ResetBuffers clears all owned output channels.
func (n *Node) ResetBuffers() {
	if n.HasFlag(ExternalChannels) {
		return
	}
	for _, p := range n.outputs {
		p.output.Reset()
	}
}

// NumEpochSamples returns how many samples the node needs on input port i.
func (n *Node) NumEpochSamples(i int) int {
	if es, ok := n.behavior.(EpochSampler); ok {
		return es.NumEpochSamples(n, i)
	}
	return 0
}

// NumStartupSamples returns how many samples the node consumes on input
// port i before producing output.
func (n *Node) NumStartupSamples(i int) int {
	if es, ok := n.behavior.(EpochSampler); ok {
		return es.NumStartupSamples(n, i)
	}
	return 0
}

// CalculateBufferMemoryAllocated returns the memory allocated by owned
// output channels.
func (n *Node) CalculateBufferMemoryAllocated() int {
	if n.HasFlag(ExternalChannels) {
		return 0
	}
	size := 0
	for _, p := range n.outputs {
		size += p.output.MemoryAllocated()
	}
	return size
}

// CalculateBufferMemoryUsed returns the memory used by owned output
// channels.
func (n *Node) CalculateBufferMemoryUsed() int {
	if n.HasFlag(ExternalChannels) {
		return 0
	}
	size := 0
	for _, p := range n.outputs {
		size += p.output.MemoryUsed()
	}
	return size
}

// collectInputChannels merges the channels of all connected input ports.
// Readers only restart for references that actually changed.
func (n *Node) collectInputChannels() {
	n.multiplier = FindMaxInputMultiChannelSize(n)
	multiply := n.HasFlag(MultiChannelMultiplication)

	n.inputChannels.Clear()
	for _, p := range n.inputs {
		channels := p.Channels()
		if channels.NumChannels() == 0 {
			continue
		}
		if multiply && channels.NumChannels() == 1 {
			for i := 0; i < n.multiplier; i++ {
				n.inputChannels.AddChannel(channels.Channel(0))
			}
			continue
		}
		n.inputChannels.AddMultiChannel(channels)
	}

	if !multiply {
		n.readerMap = n.readerMap[:0]
		return
	}
	n.readerMap = n.readerMap[:0]
	reader := 0
	for _, p := range n.inputs {
		if p.Channels().NumChannels() == 0 {
			for i := 0; i < n.multiplier; i++ {
				n.readerMap = append(n.readerMap, -1)
			}
			continue
		}
		for i := 0; i < n.multiplier; i++ {
			n.readerMap = append(n.readerMap, reader)
			reader++
		}
	}
}

type debugChannel struct {
	Name          string
	SampleRate    float64
	NumSamples    int
	NumNewSamples int
	SampleCounter int64
	Independent   bool
}

type debugPort struct {
	Name     string
	Channels []debugChannel
}

type debugNode struct {
	ID          string
	Name        string
	Type        string
	Kind        string
	Enabled     bool
	Initialized bool
	Errors      []Message
	Warnings    []Message
	Inputs      []debugPort
	Outputs     []debugPort
}

func debugPorts(ports []*Port) []debugPort {
	result := make([]debugPort, 0, len(ports))
	for _, p := range ports {
		dp := debugPort{Name: p.name}
		if p.Channels() == nil {
			result = append(result, dp)
			continue
		}
		for _, c := range p.Channels().Channels() {
			dp.Channels = append(dp.Channels, debugChannel{
				Name:          c.Name(),
				SampleRate:    c.SampleRate(),
				NumSamples:    c.NumSamples(),
				NumNewSamples: c.NumNewSamples(),
				SampleCounter: c.SampleCounter(),
				Independent:   c.IsIndependent(),
			})
		}
		result = append(result, dp)
	}
	return result
}

// DebugString dumps the node state.
func (n *Node) DebugString() string {
	cfg := spew.ConfigState{
		Indent:                  "  ",
		DisablePointerAddresses: true,
		DisableCapacities:       true,
		SortKeys:                true,
	}
	return cfg.Sdump(debugNode{
		ID:          n.id,
		Name:        n.name,
		Type:        n.TypeName(),
		Kind:        n.Kind().String(),
		Enabled:     n.enabled,
		Initialized: n.initialized,
		Errors:      n.errors,
		Warnings:    n.warnings,
		Inputs:      debugPorts(n.inputs),
		Outputs:     debugPorts(n.outputs),
	})
}

func (n *Node) String() string {
	return fmt.Sprintf("%s (%s)", n.name, n.TypeName())
}
