// Package workload contains the small request/response handlers that run on
// the node runtime besides the gossip engine: Echo, which returns what it is
// sent, and UniqueIDs, which hands out cluster-wide unique identifiers without
// coordination.
package workload
