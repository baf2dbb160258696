// Package monitor tracks the progress of one backend download job at a time.
//
// A Monitor polls the backend's progress endpoint on a fixed interval
// (500ms by default), projects every status onto a View, and stops on its
// own once the job completes or fails:
//
//	ind := monitor.NewIndicator(nil)
//	mon := monitor.New(apiClient, ind, monitor.Options{
//	    Interval: 500 * time.Millisecond,
//	    Refresh:  func() { reloadDownloads() },
//	})
//	mon.Start(ctx, "download_1700000000")
//
// # States
//
//	Idle --Start--> Polling --completed/error--> Terminal
//	  ^               |                             |
//	  +-----Stop------+------------Stop-------------+
//
// Start while Polling supersedes the current job: its loop is cancelled,
// its control is restored and the new job takes over.
//
// # Failures
//
// A failed status request is reported as a *TransportError event and
// retried on the next tick. After Options.MaxConsecutiveFailures failures in
// a row the job is shown as failed with LostConnectionMessage. Responses
// for a superseded job are discarded (ErrStaleResponse).
package monitor
