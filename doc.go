/*
Package engine runs biosignal processing graphs on live device data.

Concept

The engine has two halves that share one timeline:

    Devices - sensors of EEG headsets, heart rate monitors and other
    hardware, fed by drivers and protocol messages;
    Classifier - a directed acyclic graph of nodes that reads the
    sensors, processes the signal and writes it to outputs.

Every tick the engine advances its elapsed time, updates the device
manager and then the classifier. Drivers and network servers may receive
data on their own goroutines, but they only queue it; sensors, devices and
nodes are touched by the tick alone.

Channels

Signal flows through channel.Channel values: ring buffers of samples with
a sample rate and a running sample counter. Readers keep their own read
position, so any number of nodes can consume one channel.

Synchronization

Devices have different latencies. When a device is added or a sync is
requested, the engine resets the classifier and the device data and
aligns all sensors at the highest latency:

    e := engine.New(engine.WithSettings(settings))
    c := e.NewClassifier("alpha")
    // add and connect nodes
    e.LoadClassifier(c)
    err := e.Run(ctx)

Sync requests are ignored while a recording session runs.
*/
package engine
