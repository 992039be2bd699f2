// Package flows contains the orchestration for every Engine operation.
//
// Each flow function (RunRegister, RunLogin, RunRefresh, etc.) accepts a typed
// dependency struct of functions and returns results without side effects beyond
// those dependencies. The Engine builds the deps and stays thin.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the identity store, refresh store, hashing
// pool, token manager, audit dispatcher, and metrics. They do NOT own any of these
// resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authcore (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
package flows
