// Package ioutils provides file system and image processing utilities.
//
// This package contains functions for:
//   - Atomic file writes
//   - Mapping backend file names to safe local paths
//   - Filename sanitization for cross-platform compatibility
//   - Turning video thumbnails into JPEG cover art
//
// # File Operations
//
//	dst, err := ioutils.LocalPath("/music/TubeSync", "Song [abc123].mp3")
//	err = ioutils.WriteFile(ctx, "/music/TubeSync/list.m3u", data)
//	err = ioutils.EnsureDir("/path/to/new/directory")
//
// # Image Processing
//
// The ImageService decodes WebP, JPEG and PNG thumbnails:
//
//	svc := ioutils.NewImageService()
//	cover, _ := svc.CoverArt(ctx, thumbnail, 1000)
package ioutils
