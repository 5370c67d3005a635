package app

import (
	"skep/internal/crypto"
	"skep/internal/domain"
	"skep/internal/relay"
	contactsvc "skep/internal/services/contact"
	identitysvc "skep/internal/services/identity"
	messagesvc "skep/internal/services/message"
	"skep/internal/store"
)

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	Identity domain.IdentityService
	Contacts domain.ContactService
	Messages domain.MessageService
	Relay    domain.RelayClient
	Store    *store.FileStore
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config) *Wire {
	suite := crypto.P256()
	fs := store.NewFileStore(cfg.Home, suite)

	var rc domain.RelayClient
	if cfg.RelayURL != "" {
		rc = relay.NewHTTP(cfg.RelayURL, cfg.HTTP)
	}

	return &Wire{
		Identity: identitysvc.New(suite, fs),
		Contacts: contactsvc.New(fs, fs),
		Messages: messagesvc.New(suite, fs, fs, fs, rc),
		Relay:    rc,
		Store:    fs,
	}
}
