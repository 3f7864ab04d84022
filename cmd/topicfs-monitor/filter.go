// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"sort"
	"strings"
	"unicode"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// fuzzyResult is a scored match against one topic path.
type fuzzyResult struct {
	Topic     string
	Score     int
	Positions []int
}

// fuzzyFilter scores every candidate topic path against pattern using
// fzf's own matching algorithm and returns the matches in
// descending-score order, highest first. Candidates that do not match
// at all are dropped. An empty pattern matches everything with a
// score of zero, preserving the input order.
func fuzzyFilter(candidates []string, pattern string, slab *util.Slab) []fuzzyResult {
	if pattern == "" {
		results := make([]fuzzyResult, len(candidates))
		for i, c := range candidates {
			results[i] = fuzzyResult{Topic: c}
		}
		return results
	}

	runes := []rune(pattern)
	results := make([]fuzzyResult, 0, len(candidates))
	for _, candidate := range candidates {
		if r, ok := fuzzyMatch(candidate, runes, slab); ok {
			results = append(results, r)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// fuzzyMatch scores a single candidate against pattern, both
// lowercased first so the match is case-insensitive the way a
// filter-as-you-type input is expected to behave. slab may be nil; in
// that case the matcher allocates its own scratch buffers.
func fuzzyMatch(candidate string, pattern []rune, slab *util.Slab) (fuzzyResult, bool) {
	if len(pattern) == 0 {
		return fuzzyResult{Topic: candidate}, true
	}

	lowered := lowerRunes(pattern)
	chars := util.ToChars([]byte(strings.ToLower(candidate)))
	result, positions := algo.FuzzyMatchV2(false, true, true, &chars, lowered, true, slab)
	if result.Score <= 0 {
		return fuzzyResult{}, false
	}

	out := fuzzyResult{Topic: candidate, Score: result.Score}
	if positions != nil {
		out.Positions = *positions
	}
	return out, true
}

func lowerRunes(runes []rune) []rune {
	out := make([]rune, len(runes))
	for i, r := range runes {
		out[i] = unicode.ToLower(r)
	}
	return out
}
