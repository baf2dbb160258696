package audio

import (
	"bytes"
	"os"

	"github.com/bogem/id3v2"

	"github.com/handiism/tubesync/internal/model"
)

// TagEditAction defines how to handle individual ID3 tags.
type TagEditAction int

const (
	// TagEmpty clears the tag value.
	TagEmpty TagEditAction = iota

	// TagModify updates the tag with the video's metadata.
	TagModify

	// TagDoNotModify leaves the existing tag value unchanged.
	TagDoNotModify
)

// TagConfig holds tagging configuration for each ID3 field.
//
// Example:
//
//	cfg := &TagConfig{
//	    ModifyTags: true,
//	    Title:      TagModify,      // Video or playlist entry title
//	    Artist:     TagModify,      // Channel / uploader
//	    Album:      TagModify,      // Playlist title
//	    Comment:    TagDoNotModify, // Keep whatever the backend wrote
//	}
type TagConfig struct {
	// ModifyTags is a master switch. If false, no text frames are modified.
	ModifyTags bool

	// Title controls the TIT2 frame.
	Title TagEditAction

	// Artist controls the TPE1 frame.
	Artist TagEditAction

	// AlbumArtist controls the TPE2 frame; it gets the uploader too.
	AlbumArtist TagEditAction

	// Album controls the TALB frame. Single downloads have no album.
	Album TagEditAction

	// Comment controls the COMM frame.
	Comment TagEditAction
}

// DefaultTagConfig returns the default tag configuration: everything is set
// from the video, comments are cleared.
func DefaultTagConfig() *TagConfig {
	return &TagConfig{
		ModifyTags:  true,
		Title:       TagModify,
		Artist:      TagModify,
		AlbumArtist: TagModify,
		Album:       TagModify,
		Comment:     TagEmpty,
	}
}

// tagHeaderSize is the length of an ID3v2 tag header.
const tagHeaderSize = 10

// Tagger writes ID3 tags to fetched MP3 files.
//
// Example:
//
//	tagger := NewTagger(DefaultTagConfig())
//	err := tagger.SaveTags(file, set, coverJPEG)
type Tagger struct {
	config *TagConfig
}

// NewTagger creates a new Tagger with the given configuration.
//
// If config is nil, DefaultTagConfig() is used.
func NewTagger(config *TagConfig) *Tagger {
	if config == nil {
		config = DefaultTagConfig()
	}
	return &Tagger{config: config}
}

// SaveTags writes ID3 tags to file.Path.
//
// set may be nil for a single download; its Title becomes the album.
// artwork is a JPEG embedded as the front cover, or nil to leave pictures
// untouched. Files that are not MP3 are skipped without error.
func (t *Tagger) SaveTags(file *model.LocalFile, set *model.LocalSet, artwork []byte) error {
	if !file.IsMP3() {
		return nil
	}

	info, err := os.Stat(file.Path)
	if err != nil {
		return err
	}
	if info.Size() < tagHeaderSize {
		return t.prependTags(file, set, artwork, info.Mode())
	}

	tag, err := id3v2.Open(file.Path, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer tag.Close()

	t.apply(tag, file, set, artwork)
	return tag.Save()
}

// prependTags writes a new tag in front of a file too short for id3v2 to
// open. Such a file cannot already carry a tag.
func (t *Tagger) prependTags(file *model.LocalFile, set *model.LocalSet, artwork []byte, mode os.FileMode) error {
	data, err := os.ReadFile(file.Path)
	if err != nil {
		return err
	}

	tag := id3v2.NewEmptyTag()
	t.apply(tag, file, set, artwork)

	var buf bytes.Buffer
	if _, err := tag.WriteTo(&buf); err != nil {
		return err
	}
	buf.Write(data)
	return os.WriteFile(file.Path, buf.Bytes(), mode)
}

func (t *Tagger) apply(tag *id3v2.Tag, file *model.LocalFile, set *model.LocalSet, artwork []byte) {
	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	if t.config.ModifyTags {
		album := ""
		if set != nil {
			album = set.Title
		}
		t.updateTextTags(tag, file, album)
	}

	if artwork != nil {
		updateArtwork(tag, artwork)
	}
}

func (t *Tagger) updateTextTags(tag *id3v2.Tag, file *model.LocalFile, album string) {
	switch t.config.Title {
	case TagEmpty:
		tag.SetTitle("")
	case TagModify:
		tag.SetTitle(file.DisplayTitle())
	}

	switch t.config.Artist {
	case TagEmpty:
		tag.SetArtist("")
	case TagModify:
		if file.Uploader != "" {
			tag.SetArtist(file.Uploader)
		}
	}

	switch t.config.AlbumArtist {
	case TagEmpty:
		tag.DeleteFrames("TPE2")
	case TagModify:
		if file.Uploader != "" {
			tag.DeleteFrames("TPE2")
			tag.AddTextFrame("TPE2", id3v2.EncodingUTF8, file.Uploader)
		}
	}

	switch t.config.Album {
	case TagEmpty:
		tag.SetAlbum("")
	case TagModify:
		if album != "" {
			tag.SetAlbum(album)
		}
	}

	if t.config.Comment == TagEmpty {
		tag.DeleteFrames(tag.CommonID("Comments"))
	}
}

// updateArtwork replaces any attached pictures with a front cover.
func updateArtwork(tag *id3v2.Tag, artwork []byte) {
	tag.DeleteFrames(tag.CommonID("Attached picture"))
	tag.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    "image/jpeg",
		PictureType: id3v2.PTFrontCover,
		Description: "Cover",
		Picture:     artwork,
	})
}
