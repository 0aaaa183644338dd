package slack

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// maxUploadBytes is Slack's per-file ceiling. A file of exactly this size
// is accepted; anything larger is rejected before any network call.
const maxUploadBytes int64 = 1 << 30

// UploadRequest describes one file to upload.
type UploadRequest struct {
	Path    string
	Channel string
	Title   string // defaults to the file's base name
	Comment string
}

// IntegrityError reports a mismatch between the local file size and the
// size the upload endpoint acknowledged. A truncated upload must never be
// presented as a successful file element, regardless of HTTP status.
type IntegrityError struct {
	Path   string
	Local  int64
	Remote int64
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("upload integrity check failed for %s: sent %d bytes, server acknowledged %d", e.Path, e.Local, e.Remote)
}

// IsRetryable returns false: a corrupted transfer needs investigation,
// not another attempt.
func (e *IntegrityError) IsRetryable() bool { return false }

type uploadURLResponse struct {
	Envelope
	UploadURL string `json:"upload_url"`
	FileID    string `json:"file_id"`
}

type completedFile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Permalink string `json:"permalink"`
}

type completeUploadResponse struct {
	Envelope
	Files []completedFile `json:"files"`
}

type completeUploadRequest struct {
	Files          []completeUploadFile `json:"files"`
	ChannelID      string               `json:"channel_id,omitempty"`
	InitialComment string               `json:"initial_comment,omitempty"`
}

type completeUploadFile struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// UploadFile runs the three-phase external upload protocol (negotiate a
// one-time URL, transfer the bytes, complete the upload) and returns the
// message block representing the file: an image block for image types,
// otherwise a section block linking to the uploaded file.
func (c *Client) UploadFile(ctx context.Context, req UploadRequest) (Block, error) {
	var zero Block

	info, err := os.Stat(req.Path)
	if err != nil {
		return zero, &PreconditionError{Message: fmt.Sprintf("stat upload file: %v", err)}
	}
	size := info.Size()
	if size > c.uploadLimit {
		return zero, &PreconditionError{Message: fmt.Sprintf("file %s is %d bytes, exceeding the %d byte upload limit", req.Path, size, c.uploadLimit)}
	}

	file, err := os.Open(req.Path)
	if err != nil {
		return zero, &PreconditionError{Message: fmt.Sprintf("open upload file: %v", err)}
	}
	defer func() { _ = file.Close() }()

	title := req.Title
	if title == "" {
		title = filepath.Base(req.Path)
	}

	// Phase 1: negotiate a one-time upload URL and remote file ID.
	query := url.Values{
		"filename": {filepath.Base(req.Path)},
		"length":   {strconv.FormatInt(size, 10)},
	}
	var negotiated uploadURLResponse
	if err := c.getForm(ctx, "files.getUploadURLExternal", query, &negotiated); err != nil {
		return zero, err
	}
	if !negotiated.OK {
		return zero, Classify(negotiated.Envelope, "file_upload")
	}

	// Phase 2: stream the bytes and verify the acknowledged size.
	if err := c.transferFile(ctx, negotiated.UploadURL, file, size, req.Path); err != nil {
		return zero, err
	}

	// Phase 3: finalize with channel, title and comment.
	completeReq := completeUploadRequest{
		Files:          []completeUploadFile{{ID: negotiated.FileID, Title: title}},
		ChannelID:      req.Channel,
		InitialComment: req.Comment,
	}
	var completed completeUploadResponse
	if err := c.postJSON(ctx, "files.completeUploadExternal", completeReq, &completed); err != nil {
		return zero, err
	}
	if !completed.OK {
		return zero, Classify(completed.Envelope, "file_upload")
	}
	if len(completed.Files) == 0 {
		return zero, &TransportError{Op: "files.completeUploadExternal", Err: fmt.Errorf("response contains no files")}
	}

	remote := completed.Files[0]
	slog.Info("file uploaded",
		"path", req.Path,
		"file_id", remote.ID,
		"size", size,
	)

	if isImageFile(req.Path) {
		return ImageBlock(remote.Permalink, title), nil
	}
	return SectionBlock(fmt.Sprintf("*<%s|%s>*", remote.Permalink, remote.Name)), nil
}

// transferFile POSTs the file bytes to the negotiated one-time URL. The
// endpoint answers with a plain "OK - <size>" line; the trailing size
// must equal the pre-flight byte count from the filesystem.
func (c *Client) transferFile(ctx context.Context, uploadURL string, file io.Reader, size int64, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, file)
	if err != nil {
		return fmt.Errorf("create transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.ContentLength = size

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "file_transfer", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: "file_transfer", Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Op: "file_transfer", Err: fmt.Errorf("status %d: %s", resp.StatusCode, truncateBody(body))}
	}

	reported, err := parseTransferAck(string(body))
	if err != nil {
		return &TransportError{Op: "file_transfer", Err: err}
	}
	if reported != size {
		return &IntegrityError{Path: path, Local: size, Remote: reported}
	}

	return nil
}

// parseTransferAck extracts N from an "OK - N" acknowledgement line.
func parseTransferAck(body string) (int64, error) {
	line := strings.TrimSpace(body)
	rest, ok := strings.CutPrefix(line, "OK - ")
	if !ok {
		return 0, fmt.Errorf("unexpected transfer acknowledgement %q", line)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected transfer acknowledgement %q", line)
	}
	return n, nil
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

func isImageFile(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}
