// Package datauri converts resume documents to and from base64 data URIs of
// the form data:<mimetype>;base64,<data>.
package datauri

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var ErrInvalid = errors.New("invalid data uri")

// Document is a decoded data URI.
type Document struct {
	// MediaType is the bare type/subtype, lower-cased.
	MediaType string
	// Params holds media type parameters such as charset.
	Params map[string]string
	Data   []byte
}

// Parse decodes a base64 data URI.
func Parse(s string) (Document, error) {
	s = strings.TrimSpace(s)
	if len(s) < 5 || !strings.EqualFold(s[:5], "data:") {
		return Document{}, fmt.Errorf("%w: missing data: prefix", ErrInvalid)
	}
	header, payload, ok := strings.Cut(s[5:], ",")
	if !ok {
		return Document{}, fmt.Errorf("%w: missing payload separator", ErrInvalid)
	}

	head, hasBase64 := strings.CutSuffix(header, ";base64")
	if !hasBase64 {
		return Document{}, fmt.Errorf("%w: only base64 payloads are supported", ErrInvalid)
	}
	mediaType, params, err := mime.ParseMediaType(head)
	if err != nil {
		return Document{}, fmt.Errorf("%w: media type: %v", ErrInvalid, err)
	}
	if !strings.Contains(mediaType, "/") {
		return Document{}, fmt.Errorf("%w: media type %q is not type/subtype", ErrInvalid, mediaType)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			return Document{}, fmt.Errorf("%w: payload: %v", ErrInvalid, err)
		}
	}
	if len(data) == 0 {
		return Document{}, fmt.Errorf("%w: empty payload", ErrInvalid)
	}

	return Document{MediaType: mediaType, Params: params, Data: data}, nil
}

// FromBytes builds a Document, sniffing the media type when none is given.
func FromBytes(data []byte, mediaType string) Document {
	mediaType = strings.TrimSpace(mediaType)
	var params map[string]string
	if mediaType != "" {
		if mt, p, err := mime.ParseMediaType(mediaType); err == nil {
			mediaType, params = mt, p
		}
	}
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType, params = splitSniffed(mimetype.Detect(data).String())
	}
	return Document{MediaType: mediaType, Params: params, Data: data}
}

// Encode renders the document as a data URI.
func Encode(d Document) string {
	mediaType := d.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	full := mime.FormatMediaType(mediaType, d.Params)
	if full == "" {
		full = mediaType
	}
	return "data:" + full + ";base64," + base64.StdEncoding.EncodeToString(d.Data)
}

// String renders the document as a data URI.
func (d Document) String() string { return Encode(d) }

func splitSniffed(s string) (string, map[string]string) {
	mt, params, err := mime.ParseMediaType(s)
	if err != nil {
		return "application/octet-stream", nil
	}
	return mt, params
}
