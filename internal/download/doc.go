// Package download is the client session against a TubeSync backend.
//
// # Manager
//
// The Manager coordinates one user's session:
//
//  1. Analyze a video or playlist URL
//  2. Pick a format and start a backend job
//  3. Track the job's progress until it completes or fails
//  4. Reload the list of finished files
//  5. Copy finished files to the local machine, tag MP3s, write a playlist
//  6. Archive the copies to a blob bucket (optional), skipping files that
//     are already stored
//
// # Basic Usage
//
//	manager, err := download.NewManager(settings, func(event model.Event) {
//	    fmt.Println(event.Message)
//	}, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer manager.Close()
//
//	info, err := manager.Analyze(ctx, "https://www.youtube.com/watch?v=...")
//	id, err := manager.StartDownload(ctx, info.Formats[0].FormatID)
//	job := <-manager.Finished()
//	set, err := manager.Fetch(ctx, manager.SessionFiles())
//
// # Progress Tracking
//
// Only one job is tracked at a time; starting another one supersedes it.
// The tracked job is shown through manager.Indicator(). Jobs started with
// StartSelected are not tracked.
//
// # Concurrency
//
// The Manager uses configurable concurrency limits:
//   - MaxConcurrentStarts: selected playlist entries started in parallel
//   - MaxConcurrentFetches: files copied from the backend in parallel
package download
