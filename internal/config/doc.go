// Package config provides persistent settings for packshelf.
//
// Settings are stored as a JSON file. Environment variables prefixed
// with PACKSHELF_ (optionally via a .env file) override individual
// values after the file is read.
package config
