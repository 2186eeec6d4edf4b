package main

import (
	"github.com/spf13/cobra"

	regsmcp "github.com/hyperengineering/regs/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for coding agent integration",
	Long: `Start a Model Context Protocol (MCP) server over stdio.

This lets agents list, create, measure and sync records directly.

Example agent configuration:

  {
    "mcpServers": {
      "regs": {
        "command": "regs",
        "args": ["mcp"],
        "env": {
          "REGS_PROFILE": "default",
          "REGS_OWNER": "alice"
        }
      }
    }
  }

Environment variables:
  REGS_DB_PATH     Path to local SQLite database (default: profile database)
  REGS_OWNER       Signed-in account id (empty works offline)
  REGS_REMOTE_URL  Remote record service URL (optional, enables sync)
  REGS_API_KEY     API key (required if REGS_REMOTE_URL is set)

With a remote configured the server also syncs in the background.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	sess, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	if !sess.cfg.IsOffline() {
		sess.client.StartAutoSync(sess.client.Owner())
	}
	return regsmcp.NewServer(sess.client, version).Run()
}
