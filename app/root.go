// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "go-asset-desk",
	Short: "GoAssetDesk is a web-based IT asset and access management console",
	Long: `GoAssetDesk is a web-based IT asset and access management console
that tracks hardware assets, virtual machines and IAM access grants,
with role-based permissions and mandatory MFA for every account.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
