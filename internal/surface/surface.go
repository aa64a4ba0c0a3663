// Package surface compares API reports by their exported signature.
//
// An API report is markdown: a prose header followed by fenced code blocks
// holding the declarations. Only the fenced blocks form the surface, so edits
// to the prose never count as an API change.
package surface

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// DefaultContext is the number of context lines in unified hunks.
const DefaultContext = 3

// Diff is the result of comparing two API reports.
type Diff struct {
	Changed bool
	// Added and Removed hold signature lines present in only one side.
	Added   []string
	Removed []string
	// Unified is a unified patch of baseline -> candidate signatures.
	Unified string
}

// Signature returns the concatenated fenced code blocks of an API report.
func Signature(report []byte) string {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(report))

	var b strings.Builder
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		block, ok := n.(*gmast.FencedCodeBlock)
		if !ok {
			return gmast.WalkContinue, nil
		}
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			line := bytes.TrimRight(seg.Value(report), " \t\r\n")
			b.Write(line)
			b.WriteByte('\n')
		}
		return gmast.WalkSkipChildren, nil
	})
	return b.String()
}

// Compare diffs the signatures of a baseline and a candidate report.
func Compare(baseline, candidate []byte) Diff {
	return compare("baseline", "candidate", baseline, candidate)
}

// CompareFiles diffs the reports stored at baselinePath and candidatePath.
// A missing baseline is treated as an empty surface so every export shows as added.
func CompareFiles(baselinePath, candidatePath string) (Diff, error) {
	// #nosec G304 -- paths come from the build layout
	candidate, err := os.ReadFile(candidatePath)
	if err != nil {
		return Diff{}, fmt.Errorf("read candidate report: %w", err)
	}
	// #nosec G304 -- paths come from the build layout
	baseline, err := os.ReadFile(baselinePath)
	if err != nil && !os.IsNotExist(err) {
		return Diff{}, fmt.Errorf("read baseline report: %w", err)
	}
	return compare(baselinePath, candidatePath, baseline, candidate), nil
}

func compare(aName, bName string, baseline, candidate []byte) Diff {
	a := Signature(baseline)
	b := Signature(candidate)
	if a == b {
		return Diff{}
	}

	ua := splitLinesKeepNL(a)
	ub := splitLinesKeepNL(b)

	d := Diff{Changed: true}
	matcher := difflib.NewMatcher(ua, ub)
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'r':
			d.Removed = append(d.Removed, trimAll(ua[op.I1:op.I2])...)
			d.Added = append(d.Added, trimAll(ub[op.J1:op.J2])...)
		case 'd':
			d.Removed = append(d.Removed, trimAll(ua[op.I1:op.I2])...)
		case 'i':
			d.Added = append(d.Added, trimAll(ub[op.J1:op.J2])...)
		}
	}

	unified, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        ua,
		B:        ub,
		FromFile: aName,
		ToFile:   bName,
		Context:  DefaultContext,
	})
	if err != nil {
		unified = fmt.Sprintf("--- %s\n+++ %s\n@@ diff unavailable: %v @@\n", aName, bName, err)
	}
	d.Unified = unified
	return d
}

// splitLinesKeepNL splits s into lines, preserving trailing newlines.
func splitLinesKeepNL(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func trimAll(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, strings.TrimRight(l, "\n"))
	}
	return out
}
