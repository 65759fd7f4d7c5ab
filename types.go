package ondevice

import "fmt"

// Role constants for conversation turns
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Block type constants
const (
	BlockTypeText = "text"
	BlockTypeFile = "file" // Attachment (image, document) supplied by the user
)

// Block represents a single piece of message content.
//
// Text blocks carry TextContent. File blocks carry File; the model adapter
// decides how (and whether) an attachment reaches the model.
type Block struct {
	// BlockType indicates the type of block
	// Values: "text", "file"
	BlockType string `json:"block_type"`

	// TextContent contains the text for text blocks
	TextContent *string `json:"text_content,omitempty"`

	// File contains the attachment for file blocks
	File *File `json:"file,omitempty"`
}

// File is an attachment on a user turn.
type File struct {
	// Name is the original file name (may be empty)
	Name string `json:"name,omitempty"`

	// MediaType is the IANA media type (e.g., "image/png", "application/pdf")
	MediaType string `json:"media_type"`

	// Data holds the base64-encoded file content
	Data string `json:"data,omitempty"`

	// URL references remote content when Data is empty
	URL string `json:"url,omitempty"`
}

// NewTextBlock returns a text block with the given content.
func NewTextBlock(text string) *Block {
	return &Block{BlockType: BlockTypeText, TextContent: &text}
}

// NewFileBlock returns a file block for the given attachment.
func NewFileBlock(file File) *Block {
	return &Block{BlockType: BlockTypeFile, File: &file}
}

// IsText returns true if this is a text block with content
func (b *Block) IsText() bool {
	return b.BlockType == BlockTypeText && b.TextContent != nil
}

// IsFile returns true if this is a file block with an attachment
func (b *Block) IsFile() bool {
	return b.BlockType == BlockTypeFile && b.File != nil
}

// IsImage returns true if the block is an image attachment
func (b *Block) IsImage() bool {
	if !b.IsFile() {
		return false
	}
	mt := b.File.MediaType
	return len(mt) > 6 && mt[:6] == "image/"
}

// Availability is the readiness of a model as reported by the capability.
type Availability string

// Availability states
const (
	AvailabilityAvailable    Availability = "available"
	AvailabilityDownloadable Availability = "downloadable"
	AvailabilityDownloading  Availability = "downloading"
	AvailabilityUnavailable  Availability = "unavailable"
)

// NeedsProvisioning returns true if the model can become available by provisioning.
func (a Availability) NeedsProvisioning() bool {
	return a == AvailabilityDownloadable || a == AvailabilityDownloading
}

// ProvisioningPhase is a step of the provisioning state machine.
type ProvisioningPhase int

// Provisioning phases, in forward order.
const (
	PhaseUnknown ProvisioningPhase = iota
	PhaseUnavailable
	PhaseReadyToProvision
	PhaseProvisioning
	PhaseReady
)

func (p ProvisioningPhase) String() string {
	switch p {
	case PhaseUnknown:
		return "unknown"
	case PhaseUnavailable:
		return "unavailable"
	case PhaseReadyToProvision:
		return "ready-to-provision"
	case PhaseProvisioning:
		return "provisioning"
	case PhaseReady:
		return "ready"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ProvisioningState is a snapshot of the provisioning state machine.
// Percent is only meaningful in PhaseProvisioning.
type ProvisioningState struct {
	Phase   ProvisioningPhase
	Percent int
}

func (s ProvisioningState) String() string {
	if s.Phase == PhaseProvisioning {
		return fmt.Sprintf("provisioning(%d%%)", s.Percent)
	}
	return s.Phase.String()
}
