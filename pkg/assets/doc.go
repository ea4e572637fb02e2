// Package assets manages built client assets: content fingerprinting,
// the build manifest, and publishing to S3 for CDN serving.
package assets
