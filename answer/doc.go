// Package answer turns a question into a cited answer.
//
// Pipeline retrieves candidate passages, refuses immediately when there are
// none, re-ranks them with package search and hands the selected passage to
// a Composer. The Composer picks a prompt template by context length, calls
// the generator and appends a "**Sources:**" footer naming the passage's
// source document.
//
//	p, err := answer.NewPipeline(retriever, provider.Generator())
//	ans, err := p.Answer(ctx, "What is the PTO accrual rate?")
//	text, sources := answer.SplitSources(ans.Text)
//
// Config switches individual features off for ablation runs.
package answer
