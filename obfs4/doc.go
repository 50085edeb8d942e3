// Package obfs4 describes obfs4 bridges from the point of view of a client.
// A [ProxyNode] can be parsed from an obfs4:// URI or built from a bridge
// address and certificate, and [CheckNode] verifies that an obfs4 client
// would accept the node's arguments, without connecting anywhere.
package obfs4
