package model

import (
	"strings"
	"time"
)

// FileType is the closed set of evidence media kinds.  Values outside the
// known set are carried verbatim as an "other" type so that records with an
// unrecognised file_type are still listed and searchable.
type FileType struct {
	kind fileKind
	raw  string
}

type fileKind uint8

const (
	kindOther fileKind = iota
	kindImage
	kindVideo
	kindAudio
	kindDocument
	kindText
)

var (
	FileImage    = FileType{kind: kindImage, raw: "image"}
	FileVideo    = FileType{kind: kindVideo, raw: "video"}
	FileAudio    = FileType{kind: kindAudio, raw: "audio"}
	FileDocument = FileType{kind: kindDocument, raw: "document"}
	FileText     = FileType{kind: kindText, raw: "text"}
)

// KnownFileTypes lists the named types in filter-bar order.
var KnownFileTypes = []FileType{FileImage, FileVideo, FileAudio, FileText, FileDocument}

// ParseFileType maps a stored file_type value onto the variant.  Matching is
// exact: "Image" is not "image" and becomes an Other.
func ParseFileType(s string) FileType {
	switch s {
	case "image":
		return FileImage
	case "video":
		return FileVideo
	case "audio":
		return FileAudio
	case "document":
		return FileDocument
	case "text":
		return FileText
	}
	return FileType{kind: kindOther, raw: s}
}

// String returns the stored value.
func (t FileType) String() string { return t.raw }

// Known reports whether t is one of the named types.
func (t FileType) Known() bool { return t.kind != kindOther }

func (t FileType) IsImage() bool    { return t.kind == kindImage }
func (t FileType) IsVideo() bool    { return t.kind == kindVideo }
func (t FileType) IsAudio() bool    { return t.kind == kindAudio }
func (t FileType) IsDocument() bool { return t.kind == kindDocument }
func (t FileType) IsText() bool     { return t.kind == kindText }

// Label is the display label shown on grid cards and in the detail header.
func (t FileType) Label() string {
	switch t.kind {
	case kindImage:
		return "PHOTOGRAPH"
	case kindVideo:
		return "VIDEO EVIDENCE"
	case kindAudio:
		return "AUDIO RECORDING"
	case kindDocument:
		return "DOCUMENT"
	case kindText:
		return "TEXT FILE"
	default:
		return t.raw
	}
}

// MarshalText lets FileType travel as a plain JSON string.
func (t FileType) MarshalText() ([]byte, error) { return []byte(t.raw), nil }

// UnmarshalText parses the JSON string form.
func (t *FileType) UnmarshalText(b []byte) error {
	*t = ParseFileType(strings.TrimSpace(string(b)))
	return nil
}

// CaseFile represents one evidence record as stored in the
// `case_files` table.
//
// Fields:
//  ID           – opaque unique identifier (uuid string).
//  Title        – non-empty title.
//  Description  – optional free text.
//  FileType     – media kind.
//  TextContent  – optional text body, meaningful for text records.
//  FileURL      – optional public URL of the stored attachment.
//  DisplayOrder – sort key, not guaranteed unique or contiguous.
//  CreatedAt    – creation timestamp, immutable.
type CaseFile struct {
	ID           string    `json:"id"`            // case_files.id
	Title        string    `json:"title"`         // case_files.title
	Description  *string   `json:"description"`   // case_files.description (nullable)
	FileType     FileType  `json:"file_type"`     // case_files.file_type
	TextContent  *string   `json:"text_content"`  // case_files.text_content (nullable)
	FileURL      *string   `json:"file_url"`      // case_files.file_url (nullable)
	DisplayOrder int       `json:"display_order"` // case_files.display_order
	CreatedAt    time.Time `json:"created_at"`    // case_files.created_at
}

// CaseFilePhoto is one photo attached to a case file.
type CaseFilePhoto struct {
	ID           string    `json:"id"`            // case_file_photos.id
	CaseFileID   string    `json:"case_file_id"`  // case_file_photos.case_file_id
	PhotoURL     string    `json:"photo_url"`     // case_file_photos.photo_url
	DisplayOrder int       `json:"display_order"` // case_file_photos.display_order
	CreatedAt    time.Time `json:"created_at"`    // case_file_photos.created_at
}
