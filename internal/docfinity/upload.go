package docfinity

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"

	edmerrors "github.com/Aman-CERP/edmindex/internal/errors"
	"github.com/Aman-CERP/edmindex/pkg/indexer"
)

// UploadFile streams a file to the server and returns the new document id.
func (c *Client) UploadFile(ctx context.Context, upload indexer.Upload) (string, error) {
	var src io.Reader
	if upload.Path != "" {
		f, err := os.Open(upload.Path)
		if err != nil {
			return "", edmerrors.IOError("failed to open "+upload.Path, err)
		}
		defer func() { _ = f.Close() }()
		src = f
	} else {
		src = bytes.NewReader(upload.Content)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUpload(mw, upload.FileName, src))
	}()
	defer func() { _ = pr.Close() }()

	req := request{
		method:      http.MethodPost,
		path:        pathUpload,
		bodyReader:  pr,
		contentType: mw.FormDataContentType(),
	}
	var documentID string
	if err := c.write(ctx, req, &documentID); err != nil {
		return "", err
	}
	if documentID == "" {
		return "", edmerrors.New(edmerrors.ErrCodeBackendResponse, "upload returned no document id", nil).
			WithDetail("file", upload.FileName)
	}

	c.logger.Debug("file uploaded",
		slog.String("file", upload.FileName),
		slog.String("document_id", documentID))
	return documentID, nil
}

func writeUpload(mw *multipart.Writer, fileName string, src io.Reader) error {
	if err := mw.WriteField("json", "1"); err != nil {
		return err
	}
	if err := mw.WriteField("entryMethod", "FILE_UPLOAD"); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("upload_files", fileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, src); err != nil {
		return err
	}
	return mw.Close()
}
