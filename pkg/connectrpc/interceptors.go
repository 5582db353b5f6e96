// Package connectrpc provides interceptors for Connect RPC services.
//
// Subpackages cover panic recovery, deadlines, request IDs, structured
// logging, per-procedure authorization, request validation and error
// mapping. Package interceptor assembles them into the default chain.
package connectrpc
