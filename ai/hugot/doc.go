// Package hugot embeds text locally with an ONNX sentence-transformers model.
//
// The default model, all-MiniLM-L6-v2, is downloaded into ./models on first use
// and produces 384-dimensional vectors.
package hugot
