package main

import (
	"github.com/spf13/cobra"

	"github.com/origami/repo-data/db"
	"github.com/origami/repo-data/service"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Queue an ingestion",
}

func submit(cmd *cobra.Command, s service.Submission) error {
	a, err := loadApp(false)
	if err != nil {
		return err
	}
	ingestion, err := a.ingestions.Submit(s)
	if err != nil {
		return err
	}
	return printJSON(cmd, ingestion)
}

var ingestGithubCmd = &cobra.Command{
	Use:   "github <repository url> <tag>",
	Short: "Queue a tagged GitHub repository",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submit(cmd, service.Submission{Type: string(db.IngestionTypeVersion), Url: args[0], Tag: args[1]})
	},
}

var ingestNpmCmd = &cobra.Command{
	Use:   "npm <package name> <version>",
	Short: "Queue a published npm package",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submit(cmd, service.Submission{Type: string(db.IngestionTypeNpm), PackageName: args[0], Version: args[1]})
	},
}

var ingestBundleCmd = &cobra.Command{
	Use:   "bundle <repository url> <tag>",
	Short: "Queue a bundle size refresh of an ingested version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submit(cmd, service.Submission{Type: string(db.IngestionTypeBundle), Url: args[0], Tag: args[1]})
	},
}

func init() {
	ingestCmd.AddCommand(ingestGithubCmd, ingestNpmCmd, ingestBundleCmd)
	rootCmd.AddCommand(ingestCmd)
}
