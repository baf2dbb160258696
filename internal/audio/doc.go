// Package audio post-processes files fetched from the backend: ID3 tags
// for MP3s and playlist files for fetched sets.
//
// # ID3 Tagging
//
//	tagger := audio.NewTagger(audio.DefaultTagConfig())
//	err := tagger.SaveTags(file, set, coverJPEG)
//
// The video title becomes the title, the uploader the artist, and the
// playlist title the album. A thumbnail converted to JPEG is embedded as
// the front cover. Non-MP3 files are left alone.
//
// # Playlist Generation
//
//	creator := audio.NewPlaylistCreator(model.PlaylistFormatM3U, true) // extended M3U
//	content := creator.CreatePlaylist(set)
//
// Supported formats:
//   - M3U (with optional extended info)
//   - PLS
//   - WPL (Windows Media Player)
//   - ZPL (Zune Media Player)
package audio
