// Package commands implements the skep CLI subcommands.
package commands
