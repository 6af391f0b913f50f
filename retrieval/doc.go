// Package retrieval finds candidate passages for a question.
//
// VectorRetriever embeds the question, searches a storage.ChunkRepository and
// optionally diversifies the hits with maximal marginal relevance (MMR).
// StaticRetriever serves a fixed list and is used in tests and dry runs.
//
//	r, err := retrieval.NewVectorRetriever(provider.Embedder(), repo)
//	candidates, err := r.Retrieve(ctx, "How much PTO do I get?", 20, retrieval.WithMMR(false))
package retrieval
