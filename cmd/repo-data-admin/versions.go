package main

import (
	"github.com/spf13/cobra"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "Query ingested versions",
}

var versionsListCmd = &cobra.Command{
	Use:   "list [repo id or name]",
	Short: "List repositories, or the versions of one repository",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(false)
		if err != nil {
			return err
		}
		if len(args) == 0 {
			repos, err := a.versions.ListRepos()
			if err != nil {
				return err
			}
			return printJSON(cmd, repos)
		}
		repo, err := a.versions.GetRepo(args[0])
		if err != nil {
			return err
		}
		versions, err := a.versions.ListVersions(repo.Id)
		if err != nil {
			return err
		}
		return printJSON(cmd, versions)
	},
}

var versionsShowCmd = &cobra.Command{
	Use:   "show <repo id or name> <version id or number>",
	Short: "Show one version and its bundles",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(false)
		if err != nil {
			return err
		}
		repo, err := a.versions.GetRepo(args[0])
		if err != nil {
			return err
		}
		version, err := a.versions.GetVersion(repo.Id, args[1])
		if err != nil {
			return err
		}
		language, _ := cmd.Flags().GetString("language")
		brand, _ := cmd.Flags().GetString("brand")
		bundles, err := a.versions.GetBundles(repo.Id, version.Id, language, brand)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]interface{}{
			"version": version,
			"bundles": bundles,
		})
	},
}

func init() {
	versionsShowCmd.Flags().String("language", "", "only bundles of this language (js, css)")
	versionsShowCmd.Flags().String("brand", "", `only bundles of this brand, "none" for unbranded`)
	versionsCmd.AddCommand(versionsListCmd, versionsShowCmd)
	rootCmd.AddCommand(versionsCmd)
}
