package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypogate/internal/errors"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestClassifyOverride(t *testing.T) {
	out, err := execute(t, "classify", "--domain", "radiative_forcing", "anything at all")
	require.NoError(t, err)
	assert.Contains(t, out, "domain: radiative_forcing")
	assert.Contains(t, out, "overridden")

	_, err = execute(t, "classify", "--domain", "astrology", "anything")
	assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))
}

func TestDomainsListsRanges(t *testing.T) {
	out, err := execute(t, "domains")
	require.NoError(t, err)
	assert.Contains(t, out, "chemical_composition")
	assert.Contains(t, out, "concentration")
	assert.Contains(t, out, "trap floor: -20 dB")
}

func TestValidateRejectsBadRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hypothesis: short\n"), 0o644))
	_, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))
}
