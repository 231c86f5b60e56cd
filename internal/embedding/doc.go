// Package embedding turns text into fixed-length, L2-normalized vectors.
//
// A Provider owns one FeatureExtractor (a remote feature-extraction or
// embeddings API) and adds lifecycle, mean pooling, normalization, dimension
// checks and a query cache on top of it. The Provider must be initialized once
// with Init before Embed is called; concurrent first callers share a single
// initialization.
package embedding
