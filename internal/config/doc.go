// Package config provides configuration management for the fastdl mirror tool.
package config
