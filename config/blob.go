package config

import "strings"

// BlobConfig controls where generated files and archived uploads are stored.
type BlobConfig struct {
	// Dir is the base directory for the filesystem blob store.
	Dir string `env:"DIR" envDefault:"./var/blobs"`
}

// Sanitize normalises blob storage configuration.
func (c *BlobConfig) Sanitize() {
	c.Dir = strings.TrimSpace(c.Dir)
	if c.Dir == "" {
		c.Dir = "./var/blobs"
	}
}
