// Package eval measures answer quality over a fixed question set.
//
// A dataset of questions with ground-truth answers and expected source
// documents is run through an answer pipeline one question at a time. Each
// Result records the composed answer and its latency. AutoScore then marks
// groundedness, citation accuracy and exact match heuristically, and the
// manual scoring workflow exports the same results to CSV for a human pass.
//
// Ablation repeats the run for several answer.Config variants (no MMR, no
// n-grams, small k, no weighting) and Summarize compares them.
package eval
