package tryon

import (
	"fitting-room-server/modules/session"
)

// User-facing messages
const (
	GenericFailureMessage = "Image generation failed. Please try again."
	MissingInputMessage   = "Please upload both a person photo and an outfit photo first."
	UploadReadNotice      = "The selected file could not be read. Please choose another file."
)

// GenerateRequest - one exchange with the generation service
type GenerateRequest struct {
	AttemptID   string
	Person      session.EncodedImage
	Outfit      session.EncodedImage
	Instruction string
}

// ResponsePart - one content part of a candidate; either Image or Text is set
type ResponsePart struct {
	Image *session.EncodedImage
	Text  string
}

// Candidate - one generated alternative
type Candidate struct {
	Parts []ResponsePart
}

// GenerateResponse - SDK-neutral view of the service response
type GenerateResponse struct {
	Candidates []Candidate
}

// GenerationResult - an image on success, a user-facing message otherwise
type GenerationResult struct {
	Image   *session.EncodedImage
	Message string
}

func (r GenerationResult) Succeeded() bool {
	return r.Image != nil
}

// UploadResponse - JSON body of the upload endpoint
type UploadResponse struct {
	Success      bool              `json:"success"`
	Slot         string            `json:"slot,omitempty"`
	State        *session.Snapshot `json:"state,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

// GenerateResponseBody - JSON body of the generate endpoint
type GenerateResponseBody struct {
	Success      bool              `json:"success"`
	State        *session.Snapshot `json:"state,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
}
