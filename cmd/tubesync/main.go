package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/handiism/tubesync/internal/config"
	"github.com/handiism/tubesync/internal/download"
	"github.com/handiism/tubesync/internal/model"
)

func main() {
	os.Exit(run())
}

// run returns the exit code so that deferred cleanup happens before exit.
func run() int {
	// Command line flags
	var (
		urlFlag      = flag.String("url", "", "YouTube video or playlist URL")
		configFlag   = flag.String("config", "", "Path to config file (.json, .yaml or .yml)")
		serverFlag   = flag.String("server", "", "TubeSync server URL (overrides config)")
		formatFlag   = flag.String("format", "", "Format ID to download")
		typeFlag     = flag.String("type", "", "Download type: video or audio (overrides config)")
		pathFlag     = flag.String("path", "", "Download directory on the server (overrides config)")
		playlistFlag = flag.Bool("playlist", false, "Download the whole playlist")
		maxFlag      = flag.Int("max", 0, "Maximum playlist videos to download")
		fetchFlag    = flag.Bool("fetch", false, "Copy finished files to the local fetch path")
		outputFlag   = flag.String("output", "", "Local fetch path (overrides config)")
		listFlag     = flag.Bool("list", false, "List finished downloads on the server and exit")
		verboseFlag  = flag.Bool("verbose", false, "Show verbose output")
		dryRunFlag   = flag.Bool("dry-run", false, "Show video info and formats without downloading")
	)

	flag.Parse()

	rawURL := *urlFlag
	if rawURL == "" && flag.NArg() > 0 {
		rawURL = flag.Arg(0)
	}

	if rawURL == "" && !*listFlag {
		fmt.Println("TubeSync - Download YouTube videos through a TubeSync server")
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  tubesync -url <URL> [options]")
		fmt.Println("  tubesync <URL> [options]")
		fmt.Println("  tubesync -list")
		fmt.Println()
		fmt.Println("For interactive mode, use: tubesync-tui")
		fmt.Println()
		flag.PrintDefaults()
		return 1
	}

	// Load config
	settings := config.DefaultSettings()
	if *configFlag != "" {
		var err error
		settings, err = config.Load(*configFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			return 1
		}
	}
	settings.ApplyEnv()

	// Apply flags
	if *serverFlag != "" {
		settings.ServerURL = *serverFlag
	}
	if *typeFlag != "" {
		settings.DownloadType = *typeFlag
	}
	if *pathFlag != "" {
		settings.DownloadPath = *pathFlag
	}
	if *outputFlag != "" {
		settings.FetchPath = *outputFlag
	}

	// Handle interrupts
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted, stopping...")
		cancel()
	}()

	// Create manager with progress callbacks
	progress := newProgressPrinter(os.Stdout)
	manager, err := download.NewManager(settings, func(event model.Event) {
		if event.Level == model.LevelVerbose && !*verboseFlag {
			return
		}
		fmt.Println(prefix(event.Level) + event.Message)
	}, progress.update)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer manager.Close()

	fmt.Println("▶ TubeSync")
	fmt.Println(strings.Repeat("━", 40))
	fmt.Println()

	if *listFlag {
		printDownloads(manager.RefreshDownloads(ctx), manager.FileURL)
		return 0
	}

	info, err := manager.Analyze(ctx, rawURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	printInfo(info)

	if *dryRunFlag {
		fmt.Println("\n[Dry run - not downloading]")
		return 0
	}

	var id string
	switch {
	case *playlistFlag:
		id, err = manager.StartPlaylist(ctx, *formatFlag, *maxFlag)
	case *formatFlag == "":
		fmt.Fprintln(os.Stderr, "\nPick a format with -format, or use -playlist for playlists.")
		return 2
	default:
		id, err = manager.StartDownload(ctx, *formatFlag)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	// Wait for the tracked job
	var job model.DownloadJob
	select {
	case job = <-manager.Finished():
	case <-ctx.Done():
		fmt.Printf("\nStopped tracking %s; the server keeps downloading.\n", id)
		return 130
	}

	fmt.Println()
	fmt.Println(strings.Repeat("━", 40))
	if job.State != model.JobCompleted {
		fmt.Printf("✗ %s failed: %s\n", job.ID, job.Message)
		return 1
	}
	fmt.Printf("✓ %s completed\n", job.ID)

	if !*fetchFlag {
		return 0
	}

	names := manager.SessionFiles()
	if len(names) == 0 {
		fmt.Println("No finished files matched this download.")
		return 0
	}
	set, err := manager.Fetch(ctx, names)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return 130
		}
		fmt.Fprintf(os.Stderr, "Error fetching files: %v\n", err)
		return 1
	}

	var total int64
	for _, f := range set.Files {
		total += f.Size
	}
	fmt.Printf("✨ Saved %d/%d files (%s) to %s\n", len(set.Files), len(names), model.FormatFileSize(total), set.Dir)
	return 0
}

func prefix(level model.Level) string {
	switch level {
	case model.LevelError:
		return "✗ "
	case model.LevelWarning:
		return "! "
	case model.LevelSuccess:
		return "✓ "
	case model.LevelInfo:
		return "› "
	}
	return "  "
}

func printInfo(info *model.VideoInfo) {
	fmt.Println()
	fmt.Println(info.Title)
	if info.IsPlaylist {
		fmt.Printf("Playlist by %s, %d videos\n", info.Uploader, info.PlaylistCount)
		for i, e := range info.PlaylistEntries {
			fmt.Printf("  %3d. %s (%s)\n", i+1, e.Title, model.FormatDuration(e.Duration))
		}
	} else {
		fmt.Printf("%s | %s | %s views\n", info.Uploader, model.FormatDuration(info.Duration), model.FormatCount(info.ViewCount))
	}
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEXT\tQUALITY\tSIZE\tDESCRIPTION")
	for _, f := range info.Formats {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", f.FormatID, f.Ext, f.Quality, model.FormatFileSize(f.Filesize), f.Description)
	}
	w.Flush()
	fmt.Println()
}

func printDownloads(files []model.DownloadedFile, fileURL func(string) string) {
	if len(files) == 0 {
		fmt.Println("No downloads yet")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tMODIFIED\tURL")
	for _, f := range files {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.Name, model.FormatFileSize(f.Size), f.ModTime().Format("2006-01-02 15:04"), fileURL(f.Name))
	}
	w.Flush()
}
