/*
Package eventbus provides the in-process event fabric: a lossy broadcast Bus
with independently buffered subscriptions, a Dispatcher that routes envelopes
to registered handlers, and a Forwarder that bridges the bus onto an external
transport. Publishers are never blocked by slow consumers; a subscriber that
falls behind loses its oldest envelopes and is told how many it missed.
*/
package eventbus
