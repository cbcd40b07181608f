package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMCPServeCmd_Flags(t *testing.T) {
	port := mcpServeCmd.Flags().Lookup("port")
	require.NotNil(t, port)
	assert.Equal(t, "p", port.Shorthand)
	assert.Equal(t, "0", port.DefValue)

	host := mcpServeCmd.Flags().Lookup("host")
	require.NotNil(t, host)
	assert.Equal(t, "localhost", host.DefValue)
}

func TestMCPServeCmd_RequiresRetrieval(t *testing.T) {
	SetServices(Services{})
	t.Cleanup(resetFlags)

	_, err := execute(t, "mcp", "serve", "--port", "0")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "retrieval service not configured")
}

func TestMCPServeCmd_RejectsArgs(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "mcp", "serve", "extra")

	assert.Error(t, err)
}
