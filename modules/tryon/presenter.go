package tryon

import (
	"fmt"
	"time"

	"fitting-room-server/modules/common/utils"
	"fitting-room-server/modules/session"
)

// Present builds the complete result display for one attempt. The returned
// value replaces whatever was shown before.
func Present(result GenerationResult, at time.Time) session.Display {
	if !result.Succeeded() {
		message := result.Message
		if message == "" {
			message = GenericFailureMessage
		}
		return session.Display{
			ErrorVisible: true,
			ErrorMessage: message,
		}
	}

	src := result.Image.DataURI()
	return session.Display{
		ImageVisible: true,
		ImageSrc:     src,
		DownloadHref: src,
		DownloadName: DownloadName(result.Image.MediaType, at),
	}
}

// DownloadName - tryon-result-<unix millis>.<ext>
func DownloadName(mediaType string, at time.Time) string {
	return fmt.Sprintf("tryon-result-%d.%s", at.UnixMilli(), utils.FileExtension(mediaType))
}
