package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nexconsult/tracuunnt-api/internal/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sweepResult(name string) scraper.Result {
	return scraper.Result{
		Command: scraper.CommandSweep,
		Result:  map[string]interface{}{"outer": []map[string]string{{"Tên người nộp thuế": name}}},
	}
}

func TestMergeResultsCreatesAndMerges(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")

	first := scraper.Envelope{}
	first.Add(scraper.TaxNumber("0301"), sweepResult("Công ty A"))
	path, err := mergeResults(dir, first)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "result.json"), path)

	second := scraper.Envelope{}
	second.Add(scraper.TaxNumber("0302"), sweepResult("Công ty B"))
	second.Add(scraper.TaxNumber("0301"), sweepResult("Công ty A2"))
	_, err = mergeResults(dir, second)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Công ty B", "non-ASCII text is written unescaped")
	assert.True(t, strings.HasPrefix(string(data), "{\n  \""))

	var merged map[string]scraper.Result
	require.NoError(t, json.Unmarshal(data, &merged))
	require.Len(t, merged, 2)
	assert.Contains(t, merged, "{'taxnum': '0302'}")
	assert.Contains(t, string(data), "Công ty A2")
	assert.NotContains(t, string(data), `"Công ty A"`)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestMergeResultsRejectsForeignFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "result.json"), []byte("[1,2]"), 0o644))

	env := scraper.Envelope{}
	env.Add(scraper.TaxNumber("1"), sweepResult("x"))
	_, err := mergeResults(dir, env)
	assert.Error(t, err)
}

func TestCriteriaListFromFlags(t *testing.T) {
	name, taxnum, empty := "acme", "0301", ""
	flags := &lookupFlags{terms: map[scraper.Field]*string{
		scraper.FieldTaxNum:  &taxnum,
		scraper.FieldName:    &name,
		scraper.FieldAddress: &empty,
		scraper.FieldIDNum:   &empty,
	}}

	items, err := criteriaList(flags)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "{'taxnum': '0301', 'name': 'acme'}", items[0].String())

	taxnum, name = "", ""
	_, err = criteriaList(flags)
	assert.ErrorIs(t, err, scraper.ErrEmptyCriteria)
}

func TestCriteriaListFromInputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(path, []byte("0301\n\n# comment\n 0302 \n"), 0o644))

	items, err := criteriaList(&lookupFlags{input: path})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "{'taxnum': '0302'}", items[1].String())

	require.NoError(t, os.WriteFile(path, []byte("\n# nothing\n"), 0o644))
	_, err = criteriaList(&lookupFlags{input: path})
	assert.ErrorIs(t, err, scraper.ErrEmptyCriteria)
}

func TestLoadConfigOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracuu.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scraper:\n  output_dir: /tmp/out\nstorage:\n  driver: none\n"), 0o644))

	c, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out", c.Scraper.OutputDir)
	assert.Equal(t, "none", c.Storage.Driver)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "tracuu "))
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"pinpoint", "sweep", "scrape-all", "version"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	cmd, _, err := rootCmd.Find([]string{"sweep"})
	require.NoError(t, err)
	for _, flag := range []string{"site", "output", "input", "taxnum", "name", "address", "idnum", "max-attempts"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), flag)
	}
}
