package backend

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/qyinm/yentui/types"
)

// AnalyzeProductImage uploads an image and returns the identified product,
// its company and, when the company is known, the company profile.
//
// A 404 naming a product but an unknown company yields both a partial
// identification and an error.
func (c *Client) AnalyzeProductImage(ctx context.Context, image []byte, filename string) (types.ProductIdentification, error) {
	if len(image) == 0 {
		return types.ProductIdentification{}, &types.ValidationError{Field: "image", Message: "No image selected or captured to analyze."}
	}
	if strings.TrimSpace(filename) == "" {
		filename = "product_capture.jpg"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="product_image"; filename=%q`, filepath.Base(filename)))
	h.Set("Content-Type", http.DetectContentType(image))
	part, err := w.CreatePart(h)
	if err != nil {
		return types.ProductIdentification{}, fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return types.ProductIdentification{}, fmt.Errorf("write image: %w", err)
	}
	if err := w.Close(); err != nil {
		return types.ProductIdentification{}, fmt.Errorf("close multipart: %w", err)
	}

	status, body, err := c.do(ctx, "analyze product image", http.MethodPost, productPath, nil, &buf, w.FormDataContentType())
	if err != nil {
		return types.ProductIdentification{}, err
	}
	ident, err := decodeProductAnalysis(status, body)
	if err == nil && ident.Profile != nil {
		c.store("profile:"+strings.ToLower(ident.Company), *ident.Profile)
	}
	return ident, err
}
