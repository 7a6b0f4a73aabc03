// Package memory persists conversation turns into a vector store and
// reconstructs ordered history from unordered chunk matches.
//
// The pipeline is chunk -> embed -> store -> retrieve -> reconstruct:
//   - ChunkText splits turn text along paragraph then sentence boundaries.
//   - Embedder produces a fixed-length vector per chunk. The shipped
//     implementation (embedder/pseudo) is a deterministic fingerprint,
//     not a semantic embedding; retrieval is pure metadata filtering.
//   - Store is the vector backend (Pinecone over raw HTTP in production,
//     embedded chromem-go for local runs and tests).
//   - Manager composes the three, saving turns fire-and-forget friendly
//     and rebuilding history by (role, timestamp) grouping.
//
// The store is best-effort state: every failure degrades to an empty
// history or a no-op save and is never surfaced to the request path.
package memory
