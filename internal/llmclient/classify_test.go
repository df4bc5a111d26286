package llmclient

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseClassifyResponse_Valid(t *testing.T) {
	raw := `Sure, here you go: {"resume": 0.9, "capability_statement": 0.1}`
	out := parseClassifyResponse(raw, []string{"resume", "capability_statement", "other"})
	require.Equal(t, 0.9, out["resume"])
	require.Equal(t, 0.1, out["capability_statement"])
	require.Equal(t, 0.0, out["other"])
}

func TestParseClassifyResponse_Malformed(t *testing.T) {
	out := parseClassifyResponse("not json at all", []string{"resume"})
	require.Equal(t, 0.0, out["resume"])
}

func TestParseClassifyResponse_ClampsOutOfRange(t *testing.T) {
	raw := `{"resume": 1.5, "other": -0.2}`
	out := parseClassifyResponse(raw, []string{"resume", "other"})
	require.Equal(t, 1.0, out["resume"])
	require.Equal(t, 0.0, out["other"])
}
