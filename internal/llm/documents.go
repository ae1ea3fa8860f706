package llm

import (
	"context"
	"fmt"

	"buildmycv-backend/internal/extract"
)

// InlineDocumentsAsText replaces media parts that keep rejects with their
// extracted text. Providers call it before building a text-only request.
func InlineDocumentsAsText(ctx context.Context, parts []Part, keep func(mimeType string) bool) ([]Part, error) {
	out := make([]Part, 0, len(parts))
	for _, part := range parts {
		if !part.IsMedia() || (keep != nil && keep(part.Media.MimeType)) {
			out = appendPart(out, part)
			continue
		}
		text, err := extract.Text(ctx, part.Media.Data, part.Media.MimeType, part.Media.FileName)
		if err != nil {
			return nil, fmt.Errorf("read document for model: %w", err)
		}
		out = appendPart(out, TextPart("\n"+text+"\n"))
	}
	return out, nil
}

func appendPart(parts []Part, p Part) []Part {
	if !p.IsMedia() && len(parts) > 0 && !parts[len(parts)-1].IsMedia() {
		parts[len(parts)-1].Text += p.Text
		return parts
	}
	return append(parts, p)
}
