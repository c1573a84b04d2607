// Package service implements the optional HTTP API of a node.
//
// Routes:
//
//	/stats   node and handler counters, as a JSON object of strings
//	/values  values known to a broadcast node, as a JSON array
//	/metrics prometheus metrics
package service
