/*
Package rabbitmq provides the AMQP streaming backend. Each stream maps to one
durable topic exchange and records are published with "<topic>.<partition>"
routing keys, so consumers bind queues per topic or per partition. The bundled
publisher redials dropped connections with backoff.

AMQP gives no partition-level ordering fences, so this backend reports
ReliabilityNone at the transport layer.
*/
package rabbitmq
