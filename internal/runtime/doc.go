// Package runtime implements the function execution and message routing
// core: it hosts exactly one user module, feeds it messages from the
// configured source topics, and routes results to a sink topic or back to
// the original requester.
//
// The runtime is built around a Watermill router. Continuous sources become
// consume-and-publish handlers, the request source becomes a handler that
// replies through the publisher using the requester's correlation id and
// reply destination. A message is acknowledged to the broker only after its
// outcome is determined, so delivery is at least once end to end.
//
// Within a single subscription messages are processed in broker order only
// because the router runs a single worker per handler; scaling out workers
// or service replicas trades that ordering away. The module itself never
// sees concurrent Process calls regardless: the runtime serializes them per
// instance.
package runtime
