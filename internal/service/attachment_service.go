package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/weiawesome/wes-io-dm/internal/audit"
	"github.com/weiawesome/wes-io-dm/internal/domain"
	"github.com/weiawesome/wes-io-dm/internal/idgen"
	"github.com/weiawesome/wes-io-dm/pkg/log"
	"github.com/weiawesome/wes-io-dm/pkg/storage"
)

var allowedAttachmentTypes = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/webp",
}

// AttachmentOptions configures where and how attachments are stored.
type AttachmentOptions struct {
	Prefix   string
	URLTTL   time.Duration
	MaxBytes int64
}

type attachmentServiceImpl struct {
	store storage.Storage
	ids   idgen.Generator
	opts  AttachmentOptions
}

func NewAttachmentService(store storage.Storage, ids idgen.Generator, opts AttachmentOptions) AttachmentService {
	opts.Prefix = strings.Trim(opts.Prefix, "/")
	if opts.Prefix == "" {
		opts.Prefix = "attachments"
	}
	return &attachmentServiceImpl{
		store: store,
		ids:   ids,
		opts:  opts,
	}
}

// Upload stores an image under attachments/{userID}/{id}{ext} and returns
// the reference to put into a message.
func (s *attachmentServiceImpl) Upload(ctx context.Context, userID, filename string, r io.Reader) (*domain.Attachment, error) {
	l := log.Ctx(ctx)

	limit := s.opts.MaxBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, domain.NewValidationError("file", "is empty")
	}
	if int64(len(data)) > limit {
		return nil, domain.NewValidationError("file", fmt.Sprintf("must be at most %d bytes", limit))
	}

	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), allowedAttachmentTypes...) {
		return nil, domain.NewValidationError("file", fmt.Sprintf("unsupported content type %s", mtype.String()))
	}

	id, err := s.ids.Generate()
	if err != nil {
		return nil, err
	}
	key := path.Join(s.opts.Prefix, userID, id+mtype.Extension())

	if err := s.store.Write(ctx, key, bytes.NewReader(data), int64(len(data)), mtype.String()); err != nil {
		l.Error().Err(err).Str("key", key).Msg("failed to store attachment")
		return nil, domain.TimeoutAware(err)
	}

	url, err := s.store.GetURL(ctx, key, s.opts.URLTTL)
	if err != nil {
		return nil, err
	}

	audit.LogWithTarget(ctx, audit.ActionUpload, userID, key, fmt.Sprintf("attachment uploaded (%s)", filename))
	return &domain.Attachment{
		Ref:         key,
		URL:         url,
		ContentType: mtype.String(),
		Size:        int64(len(data)),
	}, nil
}

// Open streams a stored attachment with its content type.
func (s *attachmentServiceImpl) Open(ctx context.Context, ref string) (io.ReadCloser, string, error) {
	if !s.isStorageKey(ref) {
		return nil, "", domain.NotFoundf("attachment %s", ref)
	}

	rc, err := s.store.Read(ctx, ref)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", domain.NotFoundf("attachment %s", ref)
		}
		return nil, "", domain.TimeoutAware(err)
	}

	contentType := mime.TypeByExtension(path.Ext(ref))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return rc, contentType, nil
}

// Verify checks that ownerID may attach ref to a message. Hosted URLs pass
// as-is; storage keys must sit directly under the owner's prefix and exist.
func (s *attachmentServiceImpl) Verify(ctx context.Context, ownerID, ref string) error {
	if domain.IsHostedRef(ref) {
		return nil
	}
	if !s.isStorageKey(ref) {
		return domain.NewValidationError("attachment_ref", "is not a known attachment")
	}
	if !s.ownedBy(ownerID, ref) {
		return domain.NewValidationError("attachment_ref", "belongs to another user")
	}

	ok, err := s.store.Exists(ctx, ref)
	if err != nil {
		return domain.TimeoutAware(fmt.Errorf("failed to check attachment: %w", err))
	}
	if !ok {
		return domain.NewValidationError("attachment_ref", "attachment not found")
	}
	return nil
}

// ownedBy reports whether ref is an object uploaded by ownerID, i.e.
// {prefix}/{ownerID}/{name} with no further path segments.
func (s *attachmentServiceImpl) ownedBy(ownerID, ref string) bool {
	if ownerID == "" {
		return false
	}
	name, ok := strings.CutPrefix(ref, path.Join(s.opts.Prefix, ownerID)+"/")
	return ok && name != "" && !strings.Contains(name, "/")
}

func (s *attachmentServiceImpl) isStorageKey(ref string) bool {
	return strings.HasPrefix(ref, s.opts.Prefix+"/") && !strings.Contains(ref, "..")
}
