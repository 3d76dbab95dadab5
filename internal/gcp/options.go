// Package gcp builds the client options shared by the Google Cloud adapters.
package gcp

import (
	"fmt"
	"os"

	"google.golang.org/api/option"
)

// Credentials selects how Google Cloud clients authenticate. When both
// fields are empty the clients use application default credentials.
type Credentials struct {
	// JSON holds inline service account credentials
	JSON string `yaml:"-"`
	// File is the path of a service account key file
	File string `yaml:"file"`
}

// FromEnv fills empty fields from GOOGLE_CREDENTIALS and
// GOOGLE_APPLICATION_CREDENTIALS
func (c Credentials) FromEnv() Credentials {
	if c.JSON == "" && c.File == "" {
		c.JSON = os.Getenv("GOOGLE_CREDENTIALS")
	}
	if c.JSON == "" && c.File == "" {
		c.File = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	return c
}

// IsSet reports whether explicit credentials are configured
func (c Credentials) IsSet() bool {
	return c.JSON != "" || c.File != ""
}

// ClientOptions returns the options authenticating with c against endpoint.
// An empty endpoint keeps the client default.
func ClientOptions(c Credentials, endpoint string) []option.ClientOption {
	var opts []option.ClientOption
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	switch {
	case c.JSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(c.JSON)))
	case c.File != "":
		opts = append(opts, option.WithCredentialsFile(c.File))
	}
	return opts
}

// RegionalEndpoint returns the endpoint of service in location. The "us"
// location and an empty one use the global endpoint.
func RegionalEndpoint(service, location string) string {
	if location == "" || location == "us" {
		return ""
	}
	return fmt.Sprintf("%s-%s.googleapis.com:443", location, service)
}
