// Package model defines the data structures shared by the tubesync client.
//
// # Jobs
//
// DownloadJob is the client-side view of a backend download job. It is built
// from the wire Status returned by the progress endpoint:
//
//	var st model.Status
//	json.Unmarshal(body, &st)
//	job := st.Job("download_1700000000")
//	if job.State.IsTerminal() {
//	    // stop polling
//	}
//
// The backend's "status" strings map onto JobState as follows:
//   - "pending", "starting" and unknown values: JobPending
//   - "downloading": JobDownloading
//   - "completed": JobCompleted
//   - "error": JobFailed
//
// Playlist jobs carry an Aggregate with completed/failed/total item counts.
//
// # Videos and formats
//
// VideoInfo, Format and PlaylistEntry mirror the video-info endpoint.
// FilterFormatsByQuality and Qualities back the quality filter, and
// Format.ResolveDownloadType decides between audio and video requests.
//
// # Local files
//
// LocalFile and LocalSet describe finished downloads copied to local disk,
// which are then tagged and collected into playlist files.
package model
