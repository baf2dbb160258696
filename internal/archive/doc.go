// Package archive copies fetched files into a blob bucket.
//
// The bucket is named by a Go CDK URL, so the same code writes to a local
// directory, S3, GCS, or to memory in tests:
//
//	arc, err := archive.Open(ctx, "file:///srv/tubesync-archive")
//	defer arc.Close()
//	key, err := arc.Upload(ctx, "Road Trip", file)
//
// Objects are stored under "<set>/<file name>" and carry the title and
// uploader as metadata. Archived lets callers skip files that are already
// stored with the same size.
package archive
