package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"marshal-planner/internal/plan"
)

const (
	interopPkg   = "marshal-planner/examples/interop"
	brokenPkg    = "marshal-planner/examples/broken"
	interopDecls = "../../examples/interop/interop.yaml"
)

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	rootOpts.decls, rootOpts.workers, rootOpts.strict, rootOpts.verbose = "", 0, false, false
	planOpts.output = ""

	var out, errOut bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)

	err = rootCmd.ExecuteContext(context.Background())

	return out.String(), errOut.String(), err
}

func TestCheck_Clean(t *testing.T) {
	stdout, stderr, err := execute(t, "check", "--decls", interopDecls, interopPkg)
	require.NoError(t, err, stderr)
	assert.Contains(t, stdout, "ok:")
	assert.NotContains(t, stderr, "error:")
}

func TestCheck_WithoutDeclarationFile(t *testing.T) {
	_, stderr, err := execute(t, "check", interopPkg)
	require.ErrorIs(t, err, errCheckFailed)

	// ext.Handle has an unexported field and no declaration.
	assert.Contains(t, stderr, "not_eligible")
	assert.Contains(t, stderr, "ext.Handle")
}

func TestCheck_Broken(t *testing.T) {
	_, stderr, err := execute(t, "check", brokenPkg)
	require.ErrorIs(t, err, errCheckFailed)

	for _, code := range []string{
		plan.CodeDeclaredNotBlittable,
		plan.CodeInstantiationNotBlittable,
		plan.CodeUnsupportedDirection,
		plan.CodeNotEligible,
	} {
		assert.Contains(t, stderr, code)
	}
}

func TestPlan_Stdout(t *testing.T) {
	stdout, _, err := execute(t, "plan", "--decls", interopDecls, "--workers", "2", interopPkg)
	require.NoError(t, err)

	var pf plan.PlanFile
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &pf))
	assert.Equal(t, plan.ExportVersion, pf.Version)

	byKey := make(map[string]plan.PlanEntry)
	for _, p := range pf.Plans {
		byKey[p.Type+"|"+p.Site] = p
	}

	send, ok := byKey[interopPkg+".Blob|interop.Send#b"]
	require.True(t, ok)
	assert.True(t, send.Valid)
	require.NotNil(t, send.Buffer)
	assert.Equal(t, "optional_stack", send.Buffer.Kind)
	assert.Equal(t, int64(256), send.Buffer.Size)
	assert.Equal(t, interopPkg+".BlobNative", send.Pinning)

	poll, ok := byKey[interopPkg+".Blob|interop.Poll#buf"]
	require.True(t, ok)
	assert.Equal(t, "reverse", poll.Context)

	balance, ok := byKey[interopPkg+".Money|interop.ReadBalance#m"]
	require.True(t, ok)
	assert.Equal(t, "int64", balance.Native)
	assert.True(t, balance.Unwraps)

	label, ok := byKey[interopPkg+".Label|interop.OnLabel#l"]
	require.True(t, ok)
	assert.True(t, label.Synthesized)
	assert.Equal(t, interopPkg+".LabelNative", label.Shadow)

	stamp, ok := byKey[interopPkg+".Ticket|interop.Stamp#t"]
	require.True(t, ok)
	assert.Equal(t, "use_site", stamp.Source)
	assert.Equal(t, []string{"managed_to_native"}, stamp.Directions)
}

func TestPlan_OutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans", "interop.yaml")

	_, _, err := execute(t, "plan", "--decls", interopDecls, "--out", path, interopPkg)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), interopPkg+".Point")
}

func TestPlan_Strict(t *testing.T) {
	stdout, stderr, err := execute(t, "plan", "--strict", brokenPkg)
	require.ErrorIs(t, err, plan.ErrStrict)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "error:")
}
