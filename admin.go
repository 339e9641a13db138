package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"warbler/internal/seed"
	"warbler/internal/store"
)

var (
	initdbReset bool
	seedOpts    = seed.DefaultOptions()
)

var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Create the database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		_, logger, st, err := setup(ctx)
		if err != nil {
			return err
		}
		defer logger.Sync()
		defer st.Close()

		if initdbReset {
			return st.Reset(ctx)
		}
		return st.Migrate(ctx)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with generated users, messages and follows",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		_, logger, st, err := setup(ctx)
		if err != nil {
			return err
		}
		defer logger.Sync()
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}
		res, err := seed.Run(ctx, st, seedOpts, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d users, %d messages, %d follows\n", res.Users, res.Messages, res.Follows)
		return nil
	},
}

var messagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "Dump all messages and their authors to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		_, logger, st, err := setup(ctx)
		if err != nil {
			return err
		}
		defer logger.Sync()
		defer st.Close()

		messages, err := st.AllMessages(ctx)
		if err != nil {
			return err
		}
		return dumpMessages(cmd.OutOrStdout(), messages)
	},
}

// dumpMessages writes one line per message: id,author_id,author,timestamp,text.
func dumpMessages(w io.Writer, messages []*store.Message) error {
	for _, m := range messages {
		text := strings.ReplaceAll(m.Text, "\n", " ")
		_, err := fmt.Fprintf(w, "%d,%d,%s,%s,%s\n",
			m.ID, m.UserID, m.Author.Username, m.Timestamp.UTC().Format(time.RFC3339), text)
		if err != nil {
			return err
		}
	}
	return nil
}

func init() {
	initdbCmd.Flags().BoolVar(&initdbReset, "reset", false, "Drop all tables before creating them")

	seedCmd.Flags().IntVar(&seedOpts.Users, "users", seedOpts.Users, "Number of users to create")
	seedCmd.Flags().IntVar(&seedOpts.MessagesPerUser, "messages", seedOpts.MessagesPerUser, "Messages per user")
	seedCmd.Flags().IntVar(&seedOpts.FollowsPerUser, "follows", seedOpts.FollowsPerUser, "Users each user follows")
	seedCmd.Flags().StringVar(&seedOpts.Password, "password", seedOpts.Password, "Password for every seeded user")
	seedCmd.Flags().Uint64Var(&seedOpts.Seed, "seed", seedOpts.Seed, "Random seed")

	rootCmd.AddCommand(initdbCmd, seedCmd, messagesCmd)
}
