// Package reembed embeds policy chunks and rewrites stored chunk vectors.
//
// EmbedChunks is the shared embedding step used by ingestion: it batches
// chunk text through an ai.Embedder with retry and stores L2-normalized
// vectors on the chunks. Reembedder walks every chunk in a repository and
// replaces its vector, which is needed whenever the embedding model changes
// since vectors from different models are not comparable.
package reembed
