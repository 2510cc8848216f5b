package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func executeCommand(cmd *cobra.Command, args ...string) (string, error) {
	cmd.SetArgs(args)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	err := cmd.Execute()
	return buf.String(), err
}

// writeRunSettings writes a valid run settings file exporting into a fresh
// temp folder and returns the file and folder paths.
func writeRunSettings(t *testing.T, pattern string, maxLength int) (string, string) {
	t.Helper()
	dir := t.TempDir()
	folder := filepath.Join(dir, "out")
	contents := fmt.Sprintf(`version: "1.0"
name: products
folder: %q
file_name_pattern: %q
file_extension: ".csv"
max_file_name_length: %d
logging:
  level: error
`, folder, pattern, maxLength)

	path := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path, folder
}
