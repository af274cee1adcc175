package graph

import (
	"errors"
	"fmt"

	"github.com/neuromore/engine/device"
	"github.com/neuromore/engine/internal/multierr"
	"github.com/neuromore/engine/log"
)

var (
	// ErrCycle is returned when a connection would close a loop.
	ErrCycle = errors.New("connection creates a cycle")
	// ErrPortOccupied is returned when an input port already has a
	// connection.
	ErrPortOccupied = errors.New("input port already connected")
	// ErrInvalidPort is returned for port indexes a node doesn't have.
	ErrInvalidPort = errors.New("invalid port")
	// ErrUnknownNode is returned for nodes that are not part of the
	// classifier.
	ErrUnknownNode = errors.New("node is not part of the classifier")
	// ErrDuplicateNode is returned when a node is added twice.
	ErrDuplicateNode = errors.New("node already added")
)

// DefaultBufferDuration is the signal duration node buffers hold.
const DefaultBufferDuration = 10.0

// Observer receives node transitions. Nil fields are skipped.
type Observer struct {
	NodeStarted func(*Node)
	NodeStopped func(*Node)
}

// Option provides a way to set functional parameters to classifier.
type Option func(*Classifier)

// WithLogger sets logger to classifier and its nodes.
func WithLogger(l log.Logger) Option {
	return func(c *Classifier) {
		c.logger = l
	}
}

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(c *Classifier) {
		c.observers = append(c.observers, o)
	}
}

// WithBufferDuration sets the signal duration buffers hold, in seconds.
func WithBufferDuration(seconds float64) Option {
	return func(c *Classifier) {
		c.bufferDuration = seconds
	}
}

// WithDeviceManager provides the device manager device input nodes bind
// their devices from.
func WithDeviceManager(m *device.Manager) Option {
	return func(c *Classifier) {
		c.manager = m
	}
}

// sensorUser is implemented by behaviors reading sensor channels.
type sensorUser interface {
	UsedSensors(n *Node) []*device.Sensor
}

// Classifier is a directed acyclic graph of nodes. It re-initializes and
// updates its nodes in topological order once per engine tick.
type Classifier struct {
	name      string
	logger    log.Logger
	manager   *device.Manager
	observers []Observer

	nodes       []*Node
	connections []*Connection
	dirty       bool

	sorted      []*Node
	inputs      []*Node
	deviceNodes []*Node
	outputs     []*Node
	feedback    []*Node
	fileWriters []*Node
	endNodes    []*Node
	usedSensors []*device.Sensor

	bufferDuration float64
	state          state
}

// NewClassifier returns an empty running classifier.
func NewClassifier(name string, options ...Option) *Classifier {
	c := &Classifier{
		name:           name,
		logger:         log.Silent,
		bufferDuration: DefaultBufferDuration,
		state:          running,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Name returns the classifier name.
func (c *Classifier) Name() string {
	return c.name
}

// DeviceManager returns the device manager, nil if none was provided.
func (c *Classifier) DeviceManager() *device.Manager {
	return c.manager
}

// AddObserver adds an observer.
func (c *Classifier) AddObserver(o Observer) {
	c.observers = append(c.observers, o)
}

// AddNode adds a node to the classifier.
func (c *Classifier) AddNode(n *Node) error {
	if n.graph != nil {
		return fmt.Errorf("%v: %w", n, ErrDuplicateNode)
	}
	n.graph = c
	n.logger = log.WithComponent(c.logger, n.name)
	c.nodes = append(c.nodes, n)
	c.dirty = true
	return nil
}

// RemoveNode stops the node and removes it with all its connections.
func (c *Classifier) RemoveNode(n *Node) error {
	if n.graph != c {
		return fmt.Errorf("%v: %w", n, ErrUnknownNode)
	}
	for i := len(c.connections) - 1; i >= 0; i-- {
		conn := c.connections[i]
		if conn.Source == n || conn.Target == n {
			c.removeConnection(conn)
		}
	}
	if n.initialized {
		n.Reset()
		c.nodeStopped(n)
	}
	for i := range c.nodes {
		if c.nodes[i] == n {
			c.nodes = append(c.nodes[:i], c.nodes[i+1:]...)
			break
		}
	}
	n.graph = nil
	c.dirty = true
	return nil
}

// Nodes returns all nodes in the order they were added.
func (c *Classifier) Nodes() []*Node {
	return c.nodes
}

// NumNodes returns the number of nodes.
func (c *Classifier) NumNodes() int {
	return len(c.nodes)
}

// FindNodeByName returns the first node with the name.
func (c *Classifier) FindNodeByName(name string) *Node {
	for _, n := range c.nodes {
		if n.name == name {
			return n
		}
	}
	return nil
}

// FindNodeByID returns the node with the id.
func (c *Classifier) FindNodeByID(id string) *Node {
	for _, n := range c.nodes {
		if n.id == id {
			return n
		}
	}
	return nil
}

// Connect connects an output port of src to an input port of dst.
func (c *Classifier) Connect(src *Node, srcPort int, dst *Node, dstPort int) (*Connection, error) {
	if src.graph != c || dst.graph != c {
		return nil, ErrUnknownNode
	}
	if srcPort < 0 || srcPort >= len(src.outputs) || dstPort < 0 || dstPort >= len(dst.inputs) {
		return nil, fmt.Errorf("%v:%d -> %v:%d: %w", src, srcPort, dst, dstPort, ErrInvalidPort)
	}
	if dst.inputs[dstPort].HasConnection() {
		return nil, fmt.Errorf("%v:%d: %w", dst, dstPort, ErrPortOccupied)
	}
	if src == dst || reachable(dst, src) {
		return nil, fmt.Errorf("%v -> %v: %w", src, dst, ErrCycle)
	}
	conn := &Connection{
		Source:     src,
		SourcePort: srcPort,
		Target:     dst,
		TargetPort: dstPort,
	}
	src.outputs[srcPort].connect(conn)
	dst.inputs[dstPort].connect(conn)
	c.connections = append(c.connections, conn)
	c.dirty = true
	return conn, nil
}

// reachable checks if to can be reached from from following connections.
func reachable(from, to *Node) bool {
	visited := make(map[*Node]bool)
	stack := []*Node{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == to {
			return true
		}
		if visited[n] {
			continue
		}
		visited[n] = true
		for _, p := range n.outputs {
			for _, conn := range p.conns {
				stack = append(stack, conn.Target)
			}
		}
	}
	return false
}

// Disconnect removes the connection.
func (c *Classifier) Disconnect(conn *Connection) error {
	for _, existing := range c.connections {
		if existing == conn {
			c.removeConnection(conn)
			return nil
		}
	}
	return ErrUnknownNode
}

func (c *Classifier) removeConnection(conn *Connection) {
	conn.Source.outputs[conn.SourcePort].disconnect(conn)
	conn.Target.inputs[conn.TargetPort].disconnect(conn)
	for i := range c.connections {
		if c.connections[i] == conn {
			c.connections = append(c.connections[:i], c.connections[i+1:]...)
			break
		}
	}
	c.dirty = true
}

// Connections returns all connections.
func (c *Classifier) Connections() []*Connection {
	return c.connections
}

// CollectNodes sorts the nodes topologically and sorts them into the
// lists by kind.
func (c *Classifier) CollectNodes() {
	c.sorted = c.sorted[:0]
	c.inputs = c.inputs[:0]
	c.deviceNodes = c.deviceNodes[:0]
	c.outputs = c.outputs[:0]
	c.feedback = c.feedback[:0]
	c.fileWriters = c.fileWriters[:0]
	c.endNodes = c.endNodes[:0]

	// Kahn's algorithm, ties keep the insertion order
	inDegree := make(map[*Node]int, len(c.nodes))
	for _, conn := range c.connections {
		inDegree[conn.Target]++
	}
	queue := make([]*Node, 0, len(c.nodes))
	for _, n := range c.nodes {
		if inDegree[n] == 0 {
			queue = append(queue, n)
		}
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		c.sorted = append(c.sorted, n)
		for _, p := range n.outputs {
			for _, conn := range p.conns {
				inDegree[conn.Target]--
				if inDegree[conn.Target] == 0 {
					queue = append(queue, conn.Target)
				}
			}
		}
	}

	for _, n := range c.sorted {
		switch n.Kind() {
		case KindInput:
			c.inputs = append(c.inputs, n)
		case KindDeviceInput:
			c.inputs = append(c.inputs, n)
			c.deviceNodes = append(c.deviceNodes, n)
		case KindOutput:
			c.outputs = append(c.outputs, n)
		case KindFeedback:
			c.outputs = append(c.outputs, n)
			c.feedback = append(c.feedback, n)
		}
		if _, ok := n.behavior.(*FileWriter); ok {
			c.fileWriters = append(c.fileWriters, n)
		}
		if !hasOutputConnection(n) {
			c.endNodes = append(c.endNodes, n)
		}
	}
	c.dirty = false
}

func hasOutputConnection(n *Node) bool {
	for _, p := range n.outputs {
		if len(p.conns) > 0 {
			return true
		}
	}
	return false
}

// SortedNodes returns the nodes in topological order.
func (c *Classifier) SortedNodes() []*Node {
	return c.sorted
}

// InputNodes returns input and device input nodes.
func (c *Classifier) InputNodes() []*Node {
	return c.inputs
}

// DeviceInputNodes returns device input nodes.
func (c *Classifier) DeviceInputNodes() []*Node {
	return c.deviceNodes
}

// OutputNodes returns output and feedback nodes.
func (c *Classifier) OutputNodes() []*Node {
	return c.outputs
}

// FeedbackNodes returns feedback nodes.
func (c *Classifier) FeedbackNodes() []*Node {
	return c.feedback
}

// FileWriterNodes returns file writer nodes.
func (c *Classifier) FileWriterNodes() []*Node {
	return c.fileWriters
}

// EndNodes returns nodes without outgoing connections.
func (c *Classifier) EndNodes() []*Node {
	return c.endNodes
}

// Update finalizes the classifier and updates all nodes if it's running.
// Channel activity is always updated.
func (c *Classifier) Update(elapsed, delta float64) {
	c.Finalize(elapsed, delta)

	if c.state == running {
		for _, n := range c.sorted {
			n.Update(elapsed, delta)
		}
	}

	for _, n := range c.nodes {
		n.UpdateChannelActivity(delta)
	}
}

// Finalize re-initializes all nodes and resizes their buffers. File
// writers stay closed while the classifier is stopped.
func (c *Classifier) Finalize(elapsed, delta float64) {
	if c.dirty {
		c.CollectNodes()
	}
	for _, n := range c.sorted {
		if c.state == stopped {
			if _, ok := n.behavior.(*FileWriter); ok {
				continue
			}
		}
		n.ReInit(elapsed, delta)
	}
	c.ResizeBuffers(c.bufferDuration)
	c.CollectUsedSensors()
}

// ReInitAsync makes the next update collect the nodes again.
func (c *Classifier) ReInitAsync() {
	c.dirty = true
}

// Reset stops all nodes, they restart on the next update.
func (c *Classifier) Reset() {
	for _, n := range c.nodes {
		n.Reset()
	}
	c.dirty = true
}

// Start runs a stopped classifier again.
func (c *Classifier) Start() error {
	return c.transition(start)
}

// Pause suspends node updates. Nodes are still re-initialized.
func (c *Classifier) Pause() error {
	return c.transition(pause)
}

// Continue resumes a paused classifier.
func (c *Classifier) Continue() error {
	return c.transition(resume)
}

// Stop closes all file writers and suspends node updates.
func (c *Classifier) Stop() error {
	return c.transition(stop)
}

func (c *Classifier) transition(e event) error {
	s, err := c.state.transition(c, e)
	if errors.Is(err, ErrInvalidState) {
		return fmt.Errorf("%s classifier %s: %w", c.state, e, err)
	}
	c.logger.Debug(fmt.Sprintf("classifier %s is %s", c.name, s))
	c.state = s
	return err
}

// stopNodes stops all nodes holding resources.
func (c *Classifier) stopNodes() error {
	var errs multierr.Errors
	for _, n := range c.nodes {
		if err := n.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("%v: %w", n, err))
		}
	}
	return errs.Ret()
}

// IsRunning returns true if nodes are updated.
func (c *Classifier) IsRunning() bool {
	return c.state == running
}

// IsPaused returns true if the classifier is paused.
func (c *Classifier) IsPaused() bool {
	return c.state == paused
}

// IsStopped returns true if the classifier is stopped.
func (c *Classifier) IsStopped() bool {
	return c.state == stopped
}

// State returns the name of the current state.
func (c *Classifier) State() string {
	return c.state.String()
}

// BufferDuration returns the signal duration buffers hold.
func (c *Classifier) BufferDuration() float64 {
	return c.bufferDuration
}

// SetBufferDuration sets the signal duration buffers hold, buffers are
// resized on the next update.
func (c *Classifier) SetBufferDuration(seconds float64) {
	c.bufferDuration = seconds
}

// ResetResizeBuffersReadyFlags allows all nodes to resize again.
func (c *Classifier) ResetResizeBuffersReadyFlags() {
	for _, n := range c.nodes {
		n.SetResizeBuffersReady(false)
	}
}

// ResizeBuffers resizes all buffers to hold at least seconds of signal.
func (c *Classifier) ResizeBuffers(seconds float64) {
	c.ResetResizeBuffersReadyFlags()
	for _, n := range c.endNodes {
		n.ResizeBuffers(seconds)
	}
}

// ResetBuffers clears all node buffers.
func (c *Classifier) ResetBuffers() {
	for _, n := range c.nodes {
		n.ResetBuffers()
	}
}

// FindMaximumInputLatency returns the largest latency of all inputs.
func (c *Classifier) FindMaximumInputLatency() float64 {
	f := newFinder()
	maxLatency := 0.0
	for _, n := range c.inputs {
		maxLatency = max(maxLatency, f.maxLatency(n))
	}
	return maxLatency
}

// FindMaximumLatency returns the largest latency over all outputs,
// including the input latency.
func (c *Classifier) FindMaximumLatency() float64 {
	f := newFinder()
	maxLatency := 0.0
	for _, n := range c.outputs {
		maxLatency = max(maxLatency, f.maxLatency(n))
	}
	return maxLatency
}

// FindMaximumPathDelay returns the largest delay over all outputs.
func (c *Classifier) FindMaximumPathDelay() float64 {
	f := newFinder()
	maxDelay := 0.0
	for _, n := range c.outputs {
		maxDelay = max(maxDelay, f.maxDelay(n))
	}
	return maxDelay
}

// FindMaximumStartupDelay returns the largest startup delay over all
// outputs.
func (c *Classifier) FindMaximumStartupDelay() float64 {
	f := newFinder()
	maxDelay := 0.0
	for _, n := range c.outputs {
		maxDelay = max(maxDelay, f.startupDelay(n))
	}
	return maxDelay
}

// Sync moves all nodes to the sync point t.
func (c *Classifier) Sync(t float64) {
	for _, n := range c.nodes {
		n.Sync(t)
	}
}

// CollectUsedSensors collects the sensors read by device input nodes.
func (c *Classifier) CollectUsedSensors() {
	c.usedSensors = c.usedSensors[:0]
	for _, n := range c.deviceNodes {
		if u, ok := n.behavior.(sensorUser); ok {
			c.usedSensors = append(c.usedSensors, u.UsedSensors(n)...)
		}
	}
}

// UsedSensors returns the sensors collected on the last update.
func (c *Classifier) UsedSensors() []*device.Sensor {
	return c.usedSensors
}

// CalcNumBufferChannelsUsed returns the number of output channels.
func (c *Classifier) CalcNumBufferChannelsUsed() int {
	num := 0
	for _, n := range c.nodes {
		for _, p := range n.outputs {
			num += p.output.NumChannels()
		}
	}
	return num
}

// CalculateBufferMemoryAllocated returns the memory allocated by all node
// buffers.
func (c *Classifier) CalculateBufferMemoryAllocated() int {
	size := 0
	for _, n := range c.nodes {
		size += n.CalculateBufferMemoryAllocated()
	}
	return size
}

// CalculateBufferMemoryUsed returns the memory used by all node buffers.
func (c *Classifier) CalculateBufferMemoryUsed() int {
	size := 0
	for _, n := range c.nodes {
		size += n.CalculateBufferMemoryUsed()
	}
	return size
}

// CalculateInputMemoryUsed returns the memory used by used sensor channels.
func (c *Classifier) CalculateInputMemoryUsed() int {
	size := 0
	for _, s := range c.usedSensors {
		size += s.Output().MemoryUsed()
	}
	return size
}

// CalculateOutputMemoryUsed returns the memory used by the channels
// flowing into outputs.
func (c *Classifier) CalculateOutputMemoryUsed() int {
	size := 0
	for _, n := range c.outputs {
		size += n.inputChannels.MemoryUsed()
	}
	return size
}

func (c *Classifier) nodeStarted(n *Node) {
	if c == nil {
		return
	}
	for _, o := range c.observers {
		if o.NodeStarted != nil {
			o.NodeStarted(n)
		}
	}
}

func (c *Classifier) nodeStopped(n *Node) {
	if c == nil {
		return
	}
	for _, o := range c.observers {
		if o.NodeStopped != nil {
			o.NodeStopped(n)
		}
	}
}
