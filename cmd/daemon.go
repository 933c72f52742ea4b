package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/stasher/pkg/ui"
)

var (
	daemonQuiet bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Stash files dropped into the inbox and expire old entries",
	Long: `Run a background daemon that watches the inbox directory.

Every regular file that lands in the inbox is stashed once writes to it have
settled, and its token is printed. The stash is garbage collected on a fixed
interval (daemon_gc_interval seconds, 0 disables it).

Use --quiet to suppress notifications.`,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().BoolVarP(&daemonQuiet, "quiet", "q", false, "Suppress notifications")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(getContext(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := appFS.MkdirAll(inbox.Dir(), 0o755); err != nil {
		return fmt.Errorf("failed to create inbox: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(inbox.Dir()); err != nil {
		return fmt.Errorf("failed to watch inbox: %w", err)
	}

	if !daemonQuiet {
		fmt.Println(ui.FormatStash("Starting stasher daemon..."))
		fmt.Println(ui.FormatMuted("Watching: " + inbox.Dir()))
		fmt.Println(ui.FormatMuted("Press Ctrl+C to stop"))
		fmt.Println()
	}

	var gcTick <-chan time.Time
	if appConfig.DaemonGCInterval > 0 {
		ticker := time.NewTicker(time.Duration(appConfig.DaemonGCInterval) * time.Second)
		defer ticker.Stop()
		gcTick = ticker.C
	}

	debounce := time.Duration(appConfig.DaemonDebounceMS) * time.Millisecond
	var debounceTimer *time.Timer
	flush := make(chan struct{}, 1)
	pending := make(map[string]bool)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !inboxCandidate(event.Name) {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}

			pending[event.Name] = true
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounce, func() {
				select {
				case flush <- struct{}{}:
				default:
				}
			})

		case <-flush:
			stashPending(ctx, pending)
			pending = make(map[string]bool)

		case <-gcTick:
			result, err := stashService.GarbageCollect(ctx)
			if err != nil {
				appLogger.Error("garbage collection failed", "err", err)
				continue
			}
			if !daemonQuiet && result.Removed > 0 {
				fmt.Println(ui.FormatTrash(fmt.Sprintf("Expired %d stash files", result.Removed)))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			appLogger.Error("watcher error", "err", err)

		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			if !daemonQuiet {
				fmt.Println()
				fmt.Println(ui.FormatMuted("Daemon stopped"))
			}
			return nil
		}
	}
}

// inboxCandidate filters out hidden files, editor leftovers and the staging
// files of an in-flight receive.
func inboxCandidate(path string) bool {
	base := filepath.Base(path)
	return !strings.HasPrefix(base, ".") &&
		!strings.HasPrefix(base, "~") &&
		!strings.HasPrefix(base, "upload-") &&
		!strings.HasSuffix(base, ".part")
}

func stashPending(ctx context.Context, pending map[string]bool) {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if !inbox.IsUpload(path) {
			continue
		}
		info, err := appFS.Stat(path)
		if err != nil {
			continue
		}

		upload, err := inbox.Describe(path, filepath.Base(path), info.Size())
		if err != nil {
			appLogger.Warn("failed to read inbox file", "file", path, "err", err)
			continue
		}
		token, err := stashService.Save(ctx, upload)
		if err != nil {
			appLogger.Error("failed to stash inbox file", "file", path, "err", err)
			continue
		}

		if !daemonQuiet {
			fmt.Println(ui.FormatSuccess("Stashed " + upload.Name))
			fmt.Println(ui.FormatMuted("  " + token))
		}
	}
}
