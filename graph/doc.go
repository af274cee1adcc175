/*
Package graph implements classifiers: directed acyclic graphs of signal
processing nodes.

A Node is a generic shell around a Behavior. The node owns ports, error
and warning state and the lifecycle, the behavior implements the kind
specific parts. Behaviors opt into the lifecycle by implementing small
interfaces such as Starter, Updatable or Resettable.

Every tick the classifier re-initializes its nodes in topological order.
A node only runs if all its requirements are met: connected inputs with
constant and matching sample rates, a started upstream and behavior
specific checks. A node that fails them is reset and reports an error code
instead of returning an error:

    c.Update(elapsed, delta)
    if n.HasError(graph.ErrorDeviceNotFound) {
        // the device input waits for its device
    }

Latencies, delays and startup delays are found by walking the graph
upstream from the outputs. Results are cached per query, so diamonds are
not counted twice.
*/
package graph
