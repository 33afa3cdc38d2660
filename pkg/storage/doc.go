// Package storage adapts a raw ports.KVStore into the ports.Storage contract
// used by reactive containers, routing every write and removal through an
// Operation Queue so they land in call order. Reads bypass the queue.
package storage
