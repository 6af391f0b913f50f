// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package eval

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/poiesic/policyqa/answer"
)

// DefaultFuzzyThreshold is the similarity at which an answer counts as
// grounded without containing the ground truth verbatim.
const DefaultFuzzyThreshold = 0.40

const policyDocumentPrefix = "policies/Policy Document "

// PolicyTitles maps policy document numbers to the titles expected in
// dataset source_document fields.
var PolicyTitles = map[string]string{
	"1": "Policy Document 1: The Snug-O-Nauts Celestial Comfort & Plush Integrity Act of 2025",
	"2": "Policy Document 2: The Snug-O-Nauts Orbital De-Stressing & Re-Entry Protocol",
	"3": "Policy Document 3: The Snug-O-Nauts Inter-Species & Interspecies Communication Guidelines",
	"4": "Policy Document 4: The Great Cosmic Cuddler's Code of Conduct",
	"5": "Policy Document 5: The Snug-O-Nauts Space Junk & Plush Debris Containment Protocol",
	"6": "Policy Document 6: The Snug-O-Nauts Fiscal & Ethical Responsibility Act",
	"7": "Policy Document 7: The Snug-O-Nauts Material & Safety Protocols Act",
	"8": "Policy Document 8: The Snug-O-Nauts Employee Wellness & Sentient Support Protocol",
	"9": "Policy Document 9: The Snug-O-Nauts Foundational Principles & Charter",
}

// NormalizeSource maps a stored source path such as
// "policies/Policy Document 3.pdf" to its document title. Other sources
// are returned unchanged.
func NormalizeSource(source string) string {
	if !strings.HasPrefix(source, policyDocumentPrefix) {
		return source
	}
	num := strings.TrimSuffix(strings.TrimPrefix(source, policyDocumentPrefix), ".pdf")
	if title, ok := PolicyTitles[num]; ok {
		return title
	}
	return source
}

// Similarity returns 1 - editDistance/maxLen over runes, in [0,1].
// Empty input on either side scores 0.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// ScoreResult fills the auto score fields of r.
func ScoreResult(r Result, threshold float64) Result {
	text, sources := answer.SplitSources(r.RAGAnswer)
	for i, s := range sources {
		sources[i] = NormalizeSource(s)
	}

	truth := strings.ToLower(strings.TrimSpace(r.GroundTruth))
	ans := strings.ToLower(strings.TrimSpace(text))

	substring := truth != "" && strings.Contains(ans, truth)
	similarity := Similarity(truth, ans)
	grounded := boolScore(substring || similarity >= threshold)

	expected := strings.ToLower(strings.TrimSpace(r.ExpectedSource))
	joined := strings.ToLower(strings.Join(sources, answer.SourceSeparator))
	citation := boolScore(expected != "" && strings.Contains(joined, expected))

	exact := boolScore(truth != "" && ans == truth)

	similarity = roundTo(similarity, 4)
	r.AutoGroundedness = &grounded
	r.AutoCitation = &citation
	r.AutoExactMatch = &exact
	r.GroundednessSimilarity = &similarity
	r.ParsedAnswer = text
	r.ParsedSources = sources
	return r
}

// AutoScore scores every result and returns the scored copies.
func AutoScore(results []Result, threshold float64) []Result {
	scored := make([]Result, len(results))
	for i, r := range results {
		scored[i] = ScoreResult(r, threshold)
	}
	return scored
}

// AutoTotals counts positive auto scores.
type AutoTotals struct {
	Total        int
	Grounded     int
	Citation     int
	ExactMatches int
}

// Rate returns n/Total, or 0 for an empty set.
func (t AutoTotals) Rate(n int) float64 {
	if t.Total == 0 {
		return 0
	}
	return float64(n) / float64(t.Total)
}

// TotalAutoScores sums the auto scores of scored results.
func TotalAutoScores(results []Result) AutoTotals {
	totals := AutoTotals{Total: len(results)}
	for _, r := range results {
		totals.Grounded += deref(r.AutoGroundedness)
		totals.Citation += deref(r.AutoCitation)
		totals.ExactMatches += deref(r.AutoExactMatch)
	}
	return totals
}

func boolScore(b bool) int {
	if b {
		return 1
	}
	return 0
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
