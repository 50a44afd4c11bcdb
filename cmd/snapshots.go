package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/memclaw/internal/config"
	"github.com/nextlevelbuilder/memclaw/internal/session"
	"github.com/nextlevelbuilder/memclaw/internal/store"
)

func snapshotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Manage persisted conversation snapshots",
	}
	cmd.AddCommand(snapshotsListCmd())
	cmd.AddCommand(snapshotsDeleteCmd())
	return cmd
}

func snapshotsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		Run: func(cmd *cobra.Command, args []string) {
			s := openSnapshotStore()
			defer s.Close()

			infos, err := s.List()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error listing snapshots: %v\n", err)
				os.Exit(1)
			}
			if len(infos) == 0 {
				fmt.Println("no snapshots")
				return
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "name\tturns\tupdated\n")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", info.Name, info.Turns,
					info.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			tw.Flush()
		},
	}
}

func snapshotsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored snapshot",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			s := openSnapshotStore()
			defer s.Close()

			name := config.NormalizeConversationName(args[0])
			if err := s.Delete(name); err != nil {
				fmt.Fprintf(os.Stderr, "Error deleting snapshot %q: %v\n", name, err)
				os.Exit(1)
			}
			fmt.Printf("deleted %q\n", name)
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <name>",
		Short: "Show memory statistics for a stored snapshot",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			s := openSnapshotStore()
			defer s.Close()

			name := config.NormalizeConversationName(args[0])
			snap, err := s.Load(name)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading snapshot %q: %v\n", name, err)
				os.Exit(1)
			}

			sess, err := session.New(sessionOptions(loadConfig()))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if err := sess.Restore(snap); err != nil {
				fmt.Fprintf(os.Stderr, "Error restoring snapshot %q: %v\n", name, err)
				os.Exit(1)
			}
			printStats(os.Stdout, sess.Stats())
		},
	}
}

func openSnapshotStore() *store.SnapshotStore {
	s, err := store.NewSnapshotStore(resolveSnapshotDBPath(loadConfig()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening snapshot store: %v\n", err)
		os.Exit(1)
	}
	return s
}
