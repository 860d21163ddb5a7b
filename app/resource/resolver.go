// Package resource turns opaque attachment ids into concrete content:
// binary attachments for email, shortened public links for sms.
package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cloudcore-labs/notification-hub/app/message"
	"github.com/cloudcore-labs/notification-hub/app/shortener"
	"github.com/cloudcore-labs/notification-hub/app/storage"
)

var ErrAttachmentNotFound = errors.New("attachment not found")
var ErrLinkGeneration = errors.New("link generation failed")

const defaultContentType = "application/octet-stream"

// Resolver resolves attachment ids against object storage and the link
// shortener. Stateless; safe for concurrent use across dispatch cycles.
type Resolver struct {
	store     storage.ObjectStore
	shortener shortener.Shortener
	container string
	urlTTL    time.Duration
}

// NewResolver builds a resolver over the attachment container.
func NewResolver(store storage.ObjectStore, short shortener.Shortener, container string, urlTTL time.Duration) *Resolver {
	return &Resolver{
		store:     store,
		shortener: short,
		container: container,
		urlTTL:    urlTTL,
	}
}

// ResolveAttachment fetches the attachment content and metadata for
// embedding in an email. The display name and content type come from the
// stored object metadata; the content type falls back to a generic binary
// type when absent.
func (r *Resolver) ResolveAttachment(ctx context.Context, attachmentID string) (message.Attachment, error) {
	path := attachmentID

	info, err := r.store.Get(ctx, path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return message.Attachment{}, fmt.Errorf("cannot find attachment at %s/%s: %w", r.container, path, ErrAttachmentNotFound)
		}
		return message.Attachment{}, fmt.Errorf("lookup attachment %s/%s: %w", r.container, path, err)
	}

	name := info.Metadata["name"]
	if name == "" {
		name = attachmentID
	}
	contentType := info.Metadata["type"]
	if contentType == "" {
		contentType = info.ContentType
	}
	if contentType == "" {
		contentType = defaultContentType
	}

	body, err := r.store.Download(ctx, path)
	if err != nil {
		return message.Attachment{}, fmt.Errorf("download attachment %s/%s: %w", r.container, path, err)
	}
	defer body.Close()

	content, err := io.ReadAll(body)
	if err != nil {
		return message.Attachment{}, fmt.Errorf("read attachment %s/%s: %w", r.container, path, err)
	}

	return message.Attachment{
		Name:        name,
		ContentType: contentType,
		Content:     content,
	}, nil
}

// ResolveLink produces a shareable short link for an attachment: the
// object is copied to a public path, a time-boxed signed URL is generated
// for the copy, and that URL is shortened. Each step touches a separate
// external system, so failures name the step and the computed paths. A
// shorten failure leaves the public copy in place; there is no rollback.
func (r *Resolver) ResolveLink(ctx context.Context, attachmentID string) (message.ResourceLink, error) {
	path := attachmentID

	info, err := r.store.Get(ctx, path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return message.ResourceLink{}, fmt.Errorf("cannot find attachment at %s/%s: %w", r.container, path, ErrAttachmentNotFound)
		}
		return message.ResourceLink{}, fmt.Errorf("lookup attachment %s/%s: %w", r.container, path, err)
	}

	name := info.Metadata["name"]
	if name == "" {
		name = attachmentID
	}
	publicPath := fmt.Sprintf("public/%s/%s", attachmentID, name)

	if err := r.store.Copy(ctx, path, publicPath); err != nil {
		return message.ResourceLink{}, fmt.Errorf("copy %s/%s to public path %s/%s: %v: %w", r.container, path, r.container, publicPath, err, ErrLinkGeneration)
	}

	signedURL, err := r.store.SignedURL(ctx, publicPath, r.urlTTL)
	if err != nil {
		return message.ResourceLink{}, fmt.Errorf("sign public path %s/%s: %v: %w", r.container, publicPath, err, ErrLinkGeneration)
	}

	short, err := r.shortener.Shorten(ctx, signedURL)
	if err != nil {
		return message.ResourceLink{}, fmt.Errorf("shorten link for %s/%s [public path: %s/%s, signed url: %s]: %v: %w",
			r.container, path, r.container, publicPath, signedURL, err, ErrLinkGeneration)
	}
	if !short.Success {
		return message.ResourceLink{}, fmt.Errorf("could not generate shortened link for %s/%s [public path: %s/%s, signed url: %s]: %w",
			r.container, path, r.container, publicPath, signedURL, ErrLinkGeneration)
	}

	return message.ResourceLink{
		Title: name,
		URL:   short.ShortURL,
	}, nil
}
