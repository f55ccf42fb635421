package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// NewRootCommand creates the seeder command. Run without a subcommand it
// creates the admin account from ADMIN_NAME, ADMIN_EMAIL and ADMIN_PASSWORD.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "seeder",
		Short: "Seed or reset the clinic content database",
		Long: `Seed or reset the clinic content database.

Without a subcommand, creates the admin account configured through
ADMIN_NAME, ADMIN_EMAIL and ADMIN_PASSWORD unless an admin already exists.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := newSeederFromEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			return s.SeedAdmin(cmd.Context(), cmd.OutOrStdout())
		},
	}

	rootCmd.AddCommand(NewResetCommand())

	return rootCmd
}

// NewResetCommand creates the reset command
func NewResetCommand() *cobra.Command {
	var opts ResetOptions

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete stored data",
		Long: `Delete users, posts and/or testimonials.

Resetting users re-creates the configured admin account. Resetting posts
also removes their hosted images. Each step asks for confirmation unless
--yes is given.`,
		Example: `  seeder reset --posts --testimonials
  seeder reset -r --yes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Any() {
				return fmt.Errorf("nothing to reset: pass --all, --users, --posts or --testimonials")
			}

			s, cleanup, err := newSeederFromEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			return s.Reset(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&opts.All, "all", "r", false, "reset users, posts and testimonials")
	cmd.Flags().BoolVarP(&opts.Users, "users", "u", false, "delete every account and re-seed the admin")
	cmd.Flags().BoolVarP(&opts.Posts, "posts", "b", false, "delete every blog post and its images")
	cmd.Flags().BoolVarP(&opts.Testimonials, "testimonials", "t", false, "delete every testimonial")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "do not ask for confirmation")

	return cmd
}
