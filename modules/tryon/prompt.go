package tryon

import "strings"

// Instruction sent with every attempt. The person image is sent first and
// the outfit image second; the wording relies on that order.
var Instruction = strings.Join([]string{
	"You are an expert fashion photo editor.",
	"The first image shows a person. The second image shows an outfit.",
	"Edit the first image so the person wears the outfit from the second image.",
	"Preserve the person's identity exactly: face, hair, skin tone, body shape and pose must not change.",
	"Replace the person's current clothing with the outfit, with a realistic fit, natural folds, and lighting and shading consistent with the person's pose.",
	"Replace the background with a new, clean background that complements the outfit.",
	"Return only the edited image. Do not return any text.",
}, " ")
