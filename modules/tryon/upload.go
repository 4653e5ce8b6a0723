package tryon

import (
	"fmt"
	"io"

	"fitting-room-server/modules/common/utils"
	"fitting-room-server/modules/session"
)

// ReadUpload encodes a file as-is. There is no type or size check here; the
// only failure is the read itself.
func ReadUpload(r io.Reader, declared string) (session.EncodedImage, session.Preview, error) {
	if r == nil {
		return session.EncodedImage{}, session.Preview{}, fmt.Errorf("no file provided")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return session.EncodedImage{}, session.Preview{}, fmt.Errorf("failed to read upload: %w", err)
	}

	img := session.EncodedImage{
		MediaType: utils.ResolveMediaType(declared, data),
		Content:   utils.ConvertImageToBase64(data),
	}

	preview := session.Preview{Src: img.DataURI()}
	if w, h, ok := utils.ImageDimensions(data); ok {
		preview.Width, preview.Height = w, h
	}
	return img, preview, nil
}
