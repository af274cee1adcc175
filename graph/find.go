package graph

type portKey struct {
	node *Node
	port int
}

// finder walks the graph upstream and remembers results per output port,
// so nodes reachable over several paths are only evaluated once.
type finder struct {
	delays    map[portKey]float64
	latencies map[portKey]float64
	startups  map[*Node]float64
}

func newFinder() *finder {
	return &finder{
		delays:    make(map[portKey]float64),
		latencies: make(map[portKey]float64),
		startups:  make(map[*Node]float64),
	}
}

// nodeDelay returns the delay of the node between in and out.
func nodeDelay(n *Node, in, out int) float64 {
	if d, ok := n.behavior.(Delayer); ok {
		return d.Delay(n, in, out)
	}
	return 0
}

// nodeLatency returns the latency of the node between in and out.
func nodeLatency(n *Node, in, out int) float64 {
	if l, ok := n.behavior.(Latencyer); ok {
		return l.Latency(n, in, out)
	}
	return 0
}

func (f *finder) delayForInput(n *Node, in int) float64 {
	c := n.inputs[in].Connection()
	if c == nil {
		return 0
	}
	return f.delayForOutput(c.Source, c.SourcePort)
}

// delayForOutput returns the largest delay of any path ending at output
// port out. Nodes without outputs are evaluated with out 0.
func (f *finder) delayForOutput(n *Node, out int) float64 {
	key := portKey{n, out}
	if d, ok := f.delays[key]; ok {
		return d
	}
	maxDelay := 0.0
	if len(n.inputs) == 0 {
		maxDelay = nodeDelay(n, -1, out)
	}
	for i, p := range n.inputs {
		if !p.HasConnection() {
			continue
		}
		maxDelay = max(maxDelay, f.delayForInput(n, i)+nodeDelay(n, i, out))
	}
	f.delays[key] = maxDelay
	return maxDelay
}

func (f *finder) maxDelay(n *Node) float64 {
	if len(n.outputs) == 0 {
		return f.delayForOutput(n, 0)
	}
	maxDelay := 0.0
	for i := range n.outputs {
		maxDelay = max(maxDelay, f.delayForOutput(n, i))
	}
	return maxDelay
}

func (f *finder) latencyForInput(n *Node, in int) float64 {
	c := n.inputs[in].Connection()
	if c == nil {
		return 0
	}
	return f.latencyForOutput(c.Source, c.SourcePort)
}

// latencyForOutput returns the largest latency of any path ending at
// output port out. Source nodes report their own latency.
func (f *finder) latencyForOutput(n *Node, out int) float64 {
	key := portKey{n, out}
	if l, ok := f.latencies[key]; ok {
		return l
	}
	maxLatency := 0.0
	if len(n.inputs) == 0 {
		maxLatency = nodeLatency(n, -1, out)
	}
	for i, p := range n.inputs {
		if !p.HasConnection() {
			continue
		}
		maxLatency = max(maxLatency, f.latencyForInput(n, i)+nodeLatency(n, i, out))
	}
	f.latencies[key] = maxLatency
	return maxLatency
}

func (f *finder) maxLatency(n *Node) float64 {
	if len(n.outputs) == 0 {
		return f.latencyForOutput(n, 0)
	}
	maxLatency := 0.0
	for i := range n.outputs {
		maxLatency = max(maxLatency, f.latencyForOutput(n, i))
	}
	return maxLatency
}

// startupDelay returns the time until the first output sample, the
// startup samples of all nodes on the slowest path.
func (f *finder) startupDelay(n *Node) float64 {
	if d, ok := f.startups[n]; ok {
		return d
	}
	maxDelay := 0.0
	for i, p := range n.inputs {
		c := p.Connection()
		if c == nil {
			continue
		}
		d := f.startupDelay(c.Source)
		if rate := p.Channels().SampleRate(); rate > 0 {
			d += float64(n.NumStartupSamples(i)) / rate
		}
		maxDelay = max(maxDelay, d)
	}
	f.startups[n] = maxDelay
	return maxDelay
}

// FindMaximumDelayForInput returns the largest delay of the signal arriving
// at input port i.
func (n *Node) FindMaximumDelayForInput(i int) float64 {
	return newFinder().delayForInput(n, i)
}

// FindMaximumDelayForOutput returns the largest delay of the signal leaving
// output port i.
func (n *Node) FindMaximumDelayForOutput(i int) float64 {
	return newFinder().delayForOutput(n, i)
}

// FindMaximumDelay returns the largest delay over all outputs.
func (n *Node) FindMaximumDelay() float64 {
	return newFinder().maxDelay(n)
}

// FindMaximumLatencyForInput returns the largest latency of the signal
// arriving at input port i.
func (n *Node) FindMaximumLatencyForInput(i int) float64 {
	return newFinder().latencyForInput(n, i)
}

// FindMaximumLatencyForOutput returns the largest latency of the signal
// leaving output port i.
func (n *Node) FindMaximumLatencyForOutput(i int) float64 {
	return newFinder().latencyForOutput(n, i)
}

// FindMaximumLatency returns the largest latency over all outputs.
func (n *Node) FindMaximumLatency() float64 {
	return newFinder().maxLatency(n)
}

// FindStartupDelay returns the time the graph upstream of the node needs
// before the first sample reaches it.
func (n *Node) FindStartupDelay() float64 {
	return newFinder().startupDelay(n)
}
