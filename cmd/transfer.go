package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/memclaw/internal/config"
	"github.com/nextlevelbuilder/memclaw/internal/memory"
)

func exportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <name>",
		Short: "Export a stored snapshot as JSON",
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

			data, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error encoding snapshot: %v\n", err)
				os.Exit(1)
			}

			if output == "" || output == "-" {
				fmt.Println(string(data))
				return
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", output, err)
				os.Exit(1)
			}
			fmt.Printf("exported %q to %s\n", name, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <name> <file>",
		Short: "Import a JSON snapshot into the store",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			data, err := os.ReadFile(args[1])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", args[1], err)
				os.Exit(1)
			}

			var snap memory.Snapshot
			if err := json.Unmarshal(data, &snap); err != nil {
				fmt.Fprintf(os.Stderr, "Error decoding snapshot: %v\n", err)
				os.Exit(1)
			}

			s := openSnapshotStore()
			defer s.Close()

			name := config.NormalizeConversationName(args[0])
			if err := s.Save(name, &snap); err != nil {
				fmt.Fprintf(os.Stderr, "Error saving snapshot %q: %v\n", name, err)
				os.Exit(1)
			}
			fmt.Printf("imported %q (%d turns)\n", name, len(snap.Turns))
		},
	}
}
