package message

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skep/internal/crypto"
	"skep/internal/domain"
	"skep/internal/engine"
	"skep/internal/protocol/transport"
)

const (
	pollInterval      = 500 * time.Millisecond
	handshakeDeadline = 30 * time.Second
)

var (
	// ErrNoSession indicates there is no confirmed session with the peer.
	ErrNoSession = errors.New("no confirmed session with peer; run handshake first")

	// ErrHandshakeTimeout means the peer did not answer within the deadline.
	// The partial session is discarded; retrying starts from scratch.
	ErrHandshakeTimeout = errors.New("handshake timed out")
)

// Service runs the protocol engine against the relay and persists the
// results.
type Service struct {
	suite        crypto.Suite
	idStore      domain.IdentityStore
	peerStore    domain.PeerStore
	sessionStore domain.SessionStore
	relayClient  domain.RelayClient
}

// New constructs a message service with the given stores and relay client.
func New(
	suite crypto.Suite,
	idStore domain.IdentityStore,
	peerStore domain.PeerStore,
	sessionStore domain.SessionStore,
	relayClient domain.RelayClient,
) *Service {
	return &Service{
		suite:        suite,
		idStore:      idStore,
		peerStore:    peerStore,
		sessionStore: sessionStore,
		relayClient:  relayClient,
	}
}

// Handshake establishes a confirmed session with the peer, pumping envelopes
// through the relay until the engine reports confirmation.
func (s *Service) Handshake(ctx context.Context, passphrase string, peer domain.UserID) error {
	eng, err := s.newEngine(passphrase)
	if err != nil {
		return err
	}

	hello, err := eng.StartHandshake(ctx, peer, time.Now())
	if err != nil {
		return err
	}
	if err := s.relayClient.SendEnvelope(ctx, hello); err != nil {
		return fmt.Errorf("send hello: %w", err)
	}

	me := hello.From
	deadline := time.Now().Add(handshakeDeadline)
	for time.Now().Before(deadline) {
		if err := s.pump(ctx, eng, me, peer); err != nil {
			return err
		}
		if eng.Confirmed(peer) {
			return s.persistSession(eng, peer)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	return ErrHandshakeTimeout
}

// Send encrypts and posts plaintext to the peer under the stored session.
// Expired session state is purged and reported as if no session existed.
func (s *Service) Send(ctx context.Context, passphrase string, peer domain.UserID, plaintext []byte) error {
	eng, err := s.newEngine(passphrase)
	if err != nil {
		return err
	}
	st, ok, err := s.sessionStore.LoadSessionState(peer)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoSession
	}
	if err := eng.ImportState(st, time.Now()); err != nil {
		if errors.Is(err, engine.ErrSessionExpired) {
			_ = s.sessionStore.DeleteSessionState(peer)
			return fmt.Errorf("%w: previous session expired", ErrNoSession)
		}
		return err
	}

	env, err := eng.Seal(peer, plaintext, time.Now())
	if err != nil {
		return err
	}
	if err := s.relayClient.SendEnvelope(ctx, env); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return s.persistSession(eng, peer)
}

// Receive fetches queued envelopes and processes them in order: handshake
// traffic is answered, application messages decrypted. An envelope that
// fails validation — replayed, stale, tampered, or under an expired session —
// is dropped and reported rather than left to jam the queue: refetching it
// could never produce a different outcome. Only envelopes waiting on state
// we do not have yet (no session) stay queued.
func (s *Service) Receive(ctx context.Context, passphrase string, limit int) ([]domain.DecryptedMessage, []domain.RejectedMessage, error) {
	eng, err := s.newEngine(passphrase)
	if err != nil {
		return nil, nil, err
	}
	id, err := s.idStore.LoadIdentity(passphrase)
	if err != nil {
		return nil, nil, err
	}

	envs, err := s.relayClient.FetchEnvelopes(ctx, id.UserID, limit)
	if err != nil {
		return nil, nil, err
	}

	out := make([]domain.DecryptedMessage, 0, len(envs))
	var rejected []domain.RejectedMessage
	processed := 0
	reject := func(env domain.Envelope, reason error) {
		rejected = append(rejected, domain.RejectedMessage{
			From:      env.From,
			Timestamp: env.Timestamp,
			Reason:    reason.Error(),
		})
	}

	for i, env := range envs {
		if env.Type == domain.TypeEncryptedMessage {
			st, ok, err := s.sessionStore.LoadSessionState(env.From)
			if err != nil {
				return out, rejected, err
			}
			if !ok {
				break // no session yet; leave queued
			}
			if !eng.Confirmed(env.From) {
				if err := eng.ImportState(st, time.Now()); err != nil {
					if !errors.Is(err, engine.ErrSessionExpired) {
						return out, rejected, err
					}
					_ = s.sessionStore.DeleteSessionState(env.From)
					reject(env, err)
					processed = i + 1
					continue
				}
			}
			plain, err := eng.Open(env, time.Now())
			if err != nil {
				if !perMessageFailure(err) {
					return out, rejected, fmt.Errorf("decrypt from %q: %w", env.From, err)
				}
				reject(env, err)
				processed = i + 1
				continue
			}
			if err := s.persistSession(eng, env.From); err != nil {
				return out, rejected, err
			}
			out = append(out, domain.DecryptedMessage{
				From:      env.From,
				To:        env.To,
				Plaintext: plain,
				Timestamp: env.Timestamp,
			})
			processed = i + 1
			continue
		}

		replies, err := eng.Handle(env, time.Now())
		if err != nil {
			// Handshake envelopes are one-shot: a failure here (malformed,
			// stale, bad signature) will fail identically on every refetch.
			reject(env, err)
			processed = i + 1
			continue
		}
		for _, reply := range replies {
			if err := s.relayClient.SendEnvelope(ctx, reply); err != nil {
				return out, rejected, err
			}
		}
		if eng.Confirmed(env.From) {
			if err := s.persistSession(eng, env.From); err != nil {
				return out, rejected, err
			}
		}
		if rec, ok := eng.Peer(env.From); ok {
			if _, known, _ := s.peerStore.LoadPeer(env.From); !known {
				if err := s.peerStore.SavePeer(rec); err != nil {
					return out, rejected, err
				}
			}
		}
		processed = i + 1
	}

	if processed > 0 {
		if err := s.relayClient.AckEnvelopes(ctx, id.UserID, processed); err != nil {
			return out, rejected, fmt.Errorf("ack %d envelopes: %w", processed, err)
		}
	}
	return out, rejected, nil
}

// perMessageFailure reports whether a decrypt error condemns only the single
// envelope, leaving the session usable for the ones after it.
func perMessageFailure(err error) bool {
	return errors.Is(err, transport.ErrMessageTooOld) ||
		errors.Is(err, transport.ErrReplayDetected) ||
		errors.Is(err, transport.ErrSequenceMismatch) ||
		errors.Is(err, transport.ErrTampered)
}

// pump drains the relay queue through the engine once, sending any replies.
// Failures from the peer we are handshaking with surface immediately;
// unprocessable envelopes from anyone else are dropped so they cannot block
// the exchange.
func (s *Service) pump(ctx context.Context, eng *engine.Engine, me, peer domain.UserID) error {
	envs, err := s.relayClient.FetchEnvelopes(ctx, me, 0)
	if err != nil {
		return err
	}
	processed := 0
	for i, env := range envs {
		if env.Type == domain.TypeEncryptedMessage {
			break // application traffic is for Receive, leave it queued
		}
		replies, err := eng.Handle(env, time.Now())
		if err != nil {
			if env.From == peer {
				return err
			}
			processed = i + 1
			continue
		}
		for _, reply := range replies {
			if err := s.relayClient.SendEnvelope(ctx, reply); err != nil {
				return err
			}
		}
		if rec, ok := eng.Peer(env.From); ok {
			if _, known, _ := s.peerStore.LoadPeer(env.From); !known {
				if err := s.peerStore.SavePeer(rec); err != nil {
					return err
				}
			}
		}
		processed = i + 1
	}
	if processed > 0 {
		return s.relayClient.AckEnvelopes(ctx, me, processed)
	}
	return nil
}

func (s *Service) newEngine(passphrase string) (*engine.Engine, error) {
	id, err := s.idStore.LoadIdentity(passphrase)
	if err != nil {
		return nil, err
	}
	dir, _ := s.relayClient.(domain.Directory)
	eng := engine.New(s.suite, id, dir)

	peers, err := s.peerStore.ListPeers()
	if err != nil {
		return nil, err
	}
	for _, rec := range peers {
		eng.AddPeer(rec)
	}
	return eng, nil
}

func (s *Service) persistSession(eng *engine.Engine, peer domain.UserID) error {
	st, err := eng.ExportState(peer)
	if err != nil {
		return err
	}
	if err := s.sessionStore.SaveSessionState(peer, st); err != nil {
		return fmt.Errorf("persist session with %q: %w", peer, err)
	}
	if rec, ok := eng.Peer(peer); ok {
		if _, known, _ := s.peerStore.LoadPeer(peer); !known {
			return s.peerStore.SavePeer(rec)
		}
	}
	return nil
}

// Compile-time assertion that Service implements domain.MessageService.
var _ domain.MessageService = (*Service)(nil)
