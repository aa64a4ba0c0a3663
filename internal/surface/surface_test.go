package surface

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baselineReport = "## API Report File for \"widgets\"\n\n" +
	"> Do not edit this file. It is a report generated by API Extractor.\n\n" +
	"```ts\n\n" +
	"// @public (undocumented)\n" +
	"export function createWidget(name: string): Widget;\n\n" +
	"// @public (undocumented)\n" +
	"export interface Widget {\n" +
	"    name: string;\n" +
	"}\n\n" +
	"```\n"

func TestSignature_KeepsOnlyCodeBlocks(t *testing.T) {
	sig := Signature([]byte(baselineReport))

	assert.Contains(t, sig, "export function createWidget(name: string): Widget;")
	assert.Contains(t, sig, "export interface Widget {")
	assert.NotContains(t, sig, "API Report File")
	assert.NotContains(t, sig, "Do not edit")
}

func TestSignature_NoCodeBlocks(t *testing.T) {
	assert.Empty(t, Signature([]byte("# Title\n\nJust prose.\n")))
}

func TestCompare_UnchangedSurface(t *testing.T) {
	d := Compare([]byte(baselineReport), []byte(baselineReport))

	assert.False(t, d.Changed)
	assert.Empty(t, d.Unified)
	assert.Empty(t, d.Added)
	assert.Empty(t, d.Removed)
}

func TestCompare_HeaderOnlyChangeIgnored(t *testing.T) {
	candidate := "## API Report File for \"widgets.v2\"\n\nSome new prose.\n\n" +
		baselineReport[len("## API Report File for \"widgets\"\n\n"):]

	d := Compare([]byte(baselineReport), []byte(candidate))
	assert.False(t, d.Changed)
}

func TestCompare_AddedExportDetected(t *testing.T) {
	candidate := "## API Report File for \"widgets\"\n\n" +
		"```ts\n\n" +
		"// @public (undocumented)\n" +
		"export function createWidget(name: string): Widget;\n\n" +
		"// @public (undocumented)\n" +
		"export function destroyWidget(w: Widget): void;\n\n" +
		"// @public (undocumented)\n" +
		"export interface Widget {\n" +
		"    name: string;\n" +
		"}\n\n" +
		"```\n"

	d := Compare([]byte(baselineReport), []byte(candidate))

	require.True(t, d.Changed)
	assert.Contains(t, d.Added, "export function destroyWidget(w: Widget): void;")
	assert.Empty(t, d.Removed)
	assert.Contains(t, d.Unified, "--- baseline")
	assert.Contains(t, d.Unified, "+++ candidate")
	assert.Contains(t, d.Unified, "+export function destroyWidget(w: Widget): void;")
}

func TestCompare_RemovedExportDetected(t *testing.T) {
	candidate := "```ts\n" +
		"// @public (undocumented)\n" +
		"export interface Widget {\n" +
		"    name: string;\n" +
		"}\n" +
		"```\n"

	d := Compare([]byte(baselineReport), []byte(candidate))

	require.True(t, d.Changed)
	assert.Contains(t, d.Removed, "export function createWidget(name: string): Widget;")
}

func TestCompareFiles(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "widgets.api.md")
	cand := filepath.Join(dir, "staging.api.md")
	require.NoError(t, os.WriteFile(base, []byte(baselineReport), 0o600))
	require.NoError(t, os.WriteFile(cand, []byte(baselineReport), 0o600))

	d, err := CompareFiles(base, cand)
	require.NoError(t, err)
	assert.False(t, d.Changed)
}

func TestCompareFiles_MissingBaselineIsAChange(t *testing.T) {
	dir := t.TempDir()
	cand := filepath.Join(dir, "staging.api.md")
	require.NoError(t, os.WriteFile(cand, []byte(baselineReport), 0o600))

	d, err := CompareFiles(filepath.Join(dir, "missing.api.md"), cand)
	require.NoError(t, err)
	require.True(t, d.Changed)
	assert.Contains(t, d.Added, "export interface Widget {")
}

func TestCompareFiles_MissingCandidate(t *testing.T) {
	dir := t.TempDir()
	_, err := CompareFiles(filepath.Join(dir, "a.md"), filepath.Join(dir, "b.md"))
	require.Error(t, err)
}
