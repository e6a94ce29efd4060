/*
Package events defines the platform's closed set of domain events: content
nodes, commerce facts and system module lifecycle. Each variant validates its
own payload and carries a stable dot-namespaced type tag; the package also owns
the type registry used to decode envelopes coming back off the wire.
*/
package events
