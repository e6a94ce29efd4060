/*
Package transport carries envelopes out of the process and onto a streaming
backend. It owns the producer-side policy that every backend shares: route by
event type (system.* to the system topic, the rest to domain), partition by
tenant id, serialize to the stable envelope wire shape, then hand the placed
record to the configured backend.

Construction is strict: connect the backend, provision topology, and only then
return a usable transport. A half-initialized transport is never handed out;
any failed step surfaces a coded error and releases what was acquired.
*/
package transport
