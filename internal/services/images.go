package services

import (
	"log/slog"
	"strings"
)

// URLSigner turns an object name in the image bucket into a fetchable URL.
type URLSigner func(objectName string) (string, error)

// ResolveImages maps each image slot to a URL the renderer and the PDF can
// use. Values that are already http(s) URLs pass through; gs:// URIs and bare
// object names are signed. A slot that cannot be signed is dropped and logged
// so its field is left blank rather than failing the report.
func ResolveImages(images map[string]string, sign URLSigner, logger *slog.Logger) map[string]string {
	out := make(map[string]string, len(images))
	for slot, ref := range images {
		ref = strings.TrimSpace(ref)
		switch {
		case ref == "":
			continue
		case strings.HasPrefix(ref, "https://"), strings.HasPrefix(ref, "http://"):
			out[slot] = ref
			continue
		}
		u, err := sign(objectName(ref))
		if err != nil {
			logger.Warn("Failed to sign image URL, leaving slot empty.", "slot", slot, "object", ref, "error", err)
			continue
		}
		out[slot] = u
	}
	return out
}

// objectName strips a gs://bucket/ prefix.
func objectName(ref string) string {
	if rest, ok := strings.CutPrefix(ref, "gs://"); ok {
		if _, obj, found := strings.Cut(rest, "/"); found {
			return obj
		}
		return ""
	}
	return strings.TrimPrefix(ref, "/")
}
