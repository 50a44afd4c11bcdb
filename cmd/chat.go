package cmd

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/memclaw/internal/config"
	"github.com/nextlevelbuilder/memclaw/internal/memory"
	"github.com/nextlevelbuilder/memclaw/internal/retrieval"
	"github.com/nextlevelbuilder/memclaw/internal/session"
	"github.com/nextlevelbuilder/memclaw/internal/store"
)

func chatCmd() *cobra.Command {
	var (
		name  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive memory-backed chat demo",
		Long: `Start an interactive REPL backed by the tiered memory engine.
Without a model backend the reply is a deterministic echo of the
assembled prompt, which makes the memory behavior observable.

In-chat commands:
  /stats           show tier and token statistics
  /search <term>   list turns mentioning an entity term
  /save            persist the conversation snapshot
  /exit            save (if named) and quit

Examples:
  memclaw chat                      # throwaway conversation
  memclaw chat --name quarterly     # resumes and persists "quarterly"`,
		Run: func(cmd *cobra.Command, args []string) {
			runChat(name, watch)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "conversation name for snapshot persistence")
	cmd.Flags().BoolVar(&watch, "watch", false, "hot-reload retrieval weights when the config file changes")
	return cmd
}

// echoResponder is the zero-dependency reply backend: it reports what
// the memory engine assembled instead of calling a model.
type echoResponder struct{}

func (echoResponder) Generate(_ context.Context, prompt string) (string, error) {
	lines := strings.Count(prompt, "\n") + 1
	return fmt.Sprintf("(no model configured; assembled %d prompt lines from memory)", lines), nil
}

func runChat(name string, watch bool) {
	cfg := loadConfig()
	ctx := context.Background()

	sess, err := session.New(sessionOptions(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating session: %v\n", err)
		os.Exit(1)
	}

	var snapStore *store.SnapshotStore
	if name != "" {
		name = config.NormalizeConversationName(name)
		snapStore, err = store.NewSnapshotStore(resolveSnapshotDBPath(cfg))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening snapshot store: %v\n", err)
			os.Exit(1)
		}
		defer snapStore.Close()

		if snap, err := snapStore.Load(name); err == nil {
			if err := sess.Restore(snap); err != nil {
				fmt.Fprintf(os.Stderr, "Error restoring snapshot %q: %v\n", name, err)
				os.Exit(1)
			}
			fmt.Printf("Resumed conversation %q (%d turns seen)\n", name, snap.CurrentTurn)
		} else if !errors.Is(err, sql.ErrNoRows) {
			fmt.Fprintf(os.Stderr, "Error loading snapshot %q: %v\n", name, err)
			os.Exit(1)
		}
	}

	if watch {
		watcher, err := config.NewWatcher(resolveConfigPath())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating config watcher: %v\n", err)
			os.Exit(1)
		}
		watcher.OnChange(func(cfg *config.Config) {
			sess.ApplyWeights(retrieval.Weights{
				Semantic: cfg.Retrieval.SemanticWeight,
				Entity:   cfg.Retrieval.EntityWeight,
				Recency:  cfg.Retrieval.RecencyWeight,
			})
		})
		if err := watcher.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error watching config: %v\n", err)
			os.Exit(1)
		}
		defer watcher.Stop()
	}

	save := func() {
		if snapStore == nil {
			return
		}
		if err := snapStore.Save(name, sess.Snapshot()); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving snapshot: %v\n", err)
			return
		}
		fmt.Printf("Saved conversation %q\n", name)
	}

	fmt.Println("memclaw chat (type /exit to quit, /stats for memory state)")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if done := runChatCommand(sess, line, save); done {
				return
			}
			continue
		}

		reply, err := sess.Respond(ctx, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		fmt.Println(reply)
	}

	save()
}

// runChatCommand handles slash commands. Returns true when the REPL
// should exit.
func runChatCommand(sess *session.Session, line string, save func()) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/exit", "/quit":
		save()
		return true

	case "/save":
		save()

	case "/stats":
		printStats(os.Stdout, sess.Stats())

	case "/search":
		if len(fields) < 2 {
			fmt.Println("usage: /search <term>")
			break
		}
		term := strings.ToLower(strings.Join(fields[1:], " "))
		turns := sess.SearchEntity(term)
		if len(turns) == 0 {
			fmt.Printf("no turns mention %q\n", term)
			break
		}
		for _, t := range turns {
			fmt.Printf("  [turn %d · %s · %s] %s\n", t.ID, t.Role, t.Tier, turnText(t))
		}

	default:
		fmt.Printf("unknown command %q\n", fields[0])
	}
	return false
}

func turnText(t *memory.Turn) string {
	if t.Tier == memory.TierSensory {
		return t.RawText
	}
	return t.CompressedText
}
