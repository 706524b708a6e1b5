package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/probelab/discovery-cli/internal/model"
)

var (
	startupName       string
	startupProfileURL string
	startupWebsite    string
	startupStage      string
	startupLimit      int
)

var startupCmd = &cobra.Command{
	Use:   "startup",
	Short: "Manage startup anchor records",
	Long:  "Persisted problems attach to a startup record; at least one must exist before a discovery run can save its output.",
}

var startupAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a startup record",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		existing, err := st.FindStartupByProfileURL(ctx, startupProfileURL)
		if err != nil {
			return eris.Wrap(err, "startup add")
		}
		if existing != nil {
			return eris.Errorf("startup with profile URL %s already exists", startupProfileURL)
		}

		id, err := st.CreateStartup(ctx, model.Startup{
			Name:         startupName,
			ProfileURL:   startupProfileURL,
			Website:      startupWebsite,
			FundingStage: model.ParseFundingStage(startupStage),
		})
		if err != nil {
			return eris.Wrap(err, "startup add")
		}

		fmt.Println(id)
		return nil
	},
}

var startupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List startup records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		startups, err := st.ListStartups(ctx, startupLimit)
		if err != nil {
			return eris.Wrap(err, "startup list")
		}
		if len(startups) == 0 {
			fmt.Fprintln(os.Stderr, "No startups found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSTAGE\tPROFILE URL")
		for _, s := range startups {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.Name, s.FundingStage, s.ProfileURL)
		}
		return w.Flush()
	},
}

func init() {
	startupAddCmd.Flags().StringVar(&startupName, "name", "", "startup name")
	startupAddCmd.Flags().StringVar(&startupProfileURL, "profile-url", "", "canonical profile URL")
	startupAddCmd.Flags().StringVar(&startupWebsite, "website", "", "company website")
	startupAddCmd.Flags().StringVar(&startupStage, "stage", "", "funding stage")
	_ = startupAddCmd.MarkFlagRequired("name")
	_ = startupAddCmd.MarkFlagRequired("profile-url")

	startupListCmd.Flags().IntVar(&startupLimit, "limit", 100, "maximum startups to list")

	startupCmd.AddCommand(startupAddCmd)
	startupCmd.AddCommand(startupListCmd)
	rootCmd.AddCommand(startupCmd)
}
