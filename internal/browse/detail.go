package browse

import (
	"fmt"
	"strings"

	"github.com/iliyamo/casefiles/internal/model"
)

// BlockKind names one section of the detail view body.
type BlockKind string

const (
	BlockDescription BlockKind = "description"
	BlockDivider     BlockKind = "divider"
	BlockText        BlockKind = "text"
	BlockPhotos      BlockKind = "photos"
	BlockImage       BlockKind = "image"
	BlockVideo       BlockKind = "video"
	BlockAudio       BlockKind = "audio"
	BlockDocument    BlockKind = "document"
)

// Block is one rendered section.
type Block struct {
	Kind    BlockKind `json:"kind"`
	Heading string    `json:"heading,omitempty"`
	Text    string    `json:"text,omitempty"`
	URL     string    `json:"url,omitempty"`
	Caption string    `json:"caption,omitempty"`
}

// Detail is the full-content view of one case file.
type Detail struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Label      string  `json:"label"`
	Date       string  `json:"date"`
	CaseNumber string  `json:"case_number"`
	Blocks     []Block `json:"blocks"`
}

// BuildDetail lays out a case file.  The body is, in order: description,
// a divider when at least one content block follows it, the text body, the
// photo set, then the media block chosen by file type.  A non-empty photo set
// replaces the single-image fallback of an image record.
func BuildDetail(f model.CaseFile, photos []model.CaseFilePhoto) Detail {
	d := Detail{
		ID:         f.ID,
		Title:      f.Title,
		Label:      f.FileType.Label(),
		Date:       f.CreatedAt.Format("January 2, 2006"),
		CaseNumber: "Case #" + shortID(f.ID, 8),
		Blocks:     make([]Block, 0, 4),
	}

	desc := nonEmpty(f.Description)
	text := nonEmpty(f.TextContent)
	url := nonEmpty(f.FileURL)

	content := make([]Block, 0, 3)
	if text != "" {
		content = append(content, Block{Kind: BlockText, Heading: "Content", Text: text})
	}
	if len(photos) > 0 {
		content = append(content, Block{
			Kind:    BlockPhotos,
			Heading: fmt.Sprintf("Photographic Evidence (%d)", len(photos)),
		})
	}
	if b, ok := mediaBlock(f, url, len(photos) > 0); ok {
		content = append(content, b)
	}

	// The divider only separates the description from content that follows it.
	if desc != "" {
		d.Blocks = append(d.Blocks, Block{Kind: BlockDescription, Heading: "Description", Text: desc})
		if len(content) > 0 {
			d.Blocks = append(d.Blocks, Block{Kind: BlockDivider})
		}
	}
	d.Blocks = append(d.Blocks, content...)
	return d
}

func mediaBlock(f model.CaseFile, url string, hasPhotos bool) (Block, bool) {
	if url == "" {
		return Block{}, false
	}
	ft := f.FileType
	switch {
	case ft.IsImage():
		if hasPhotos {
			return Block{}, false
		}
		return Block{
			Kind:    BlockImage,
			Heading: "Photographic Evidence",
			URL:     url,
			Caption: fmt.Sprintf("EV-%s • %s", shortID(f.ID, 6), f.CreatedAt.Format("1/2/2006")),
		}, true
	case ft.IsVideo():
		return Block{Kind: BlockVideo, Heading: "Video Evidence", URL: url}, true
	case ft.IsAudio():
		return Block{Kind: BlockAudio, Heading: "Audio Recording", URL: url}, true
	case ft.IsDocument():
		return Block{Kind: BlockDocument, Heading: "Attached Document", Text: "Open Document", URL: url}, true
	case ft.IsText():
		return Block{}, false
	default:
		return Block{}, false
	}
}

func shortID(id string, n int) string {
	if len(id) > n {
		id = id[:n]
	}
	return strings.ToUpper(id)
}

func nonEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
