// Package collector owns the server side of the koala transfer
// protocol: the TCP listener, one handler goroutine per accepted
// connection, and tag-based dispatch of decoded envelopes to the
// record store and file sink collaborators.
//
// Error policy: anything scoped to one frame is logged and skipped;
// anything scoped to a connection tears down only that connection;
// nothing here is fatal to the process.
package collector
