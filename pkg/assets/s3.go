package assets

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Publisher uploads built assets to an S3 bucket for CDN serving.
//
// Example usage:
//
//	cfg, _ := config.LoadDefaultConfig(context.Background())
//	pub := assets.NewS3Publisher(s3.NewFromConfig(cfg), "my-bucket", "assets/")
//	err := pub.Publish(ctx, "dist")
type S3Publisher struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Publisher creates a publisher targeting bucket with an optional
// key prefix (e.g. "assets/").
func NewS3Publisher(client *s3.Client, bucket, prefix string) *S3Publisher {
	return &S3Publisher{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// Publish uploads every asset named by the build dir's manifest.
// Fingerprinted objects are uploaded with an immutable cache header,
// everything else with a short max-age.
func (p *S3Publisher) Publish(ctx context.Context, dir string) error {
	m, err := LoadManifest(dir)
	if err != nil {
		return fmt.Errorf("loading manifest: %w", err)
	}

	for _, name := range m.Names() {
		printed := m.Resolve(name)
		if err := p.uploadFile(ctx, dir, printed); err != nil {
			return err
		}
	}

	// The manifest itself goes last so a partially published
	// bucket never points at missing objects.
	return p.uploadFile(ctx, dir, ManifestName)
}

func (p *S3Publisher) uploadFile(ctx context.Context, dir, rel string) error {
	content, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		return fmt.Errorf("reading %s: %w", rel, err)
	}

	contentType := mime.TypeByExtension(path.Ext(rel))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	cacheControl := "public, max-age=300"
	if IsFingerprinted(rel) {
		cacheControl = "public, max-age=31536000, immutable"
	}

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(p.bucket),
		Key:          aws.String(p.prefix + rel),
		Body:         bytes.NewReader(content),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(cacheControl),
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", rel, err)
	}
	return nil
}
