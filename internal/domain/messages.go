package domain

// Wire message type tags. Every message carries its tag and an epoch-millis
// timestamp used for freshness checks.
const (
	TypeHello            = "KEY_EXCHANGE_HELLO"
	TypeEphemeral        = "EPHEMERAL_KEY_EXCHANGE"
	TypeChallenge        = "KEY_CONFIRMATION_CHALLENGE"
	TypeResponse         = "KEY_CONFIRMATION_RESPONSE"
	TypeSessionReady     = "SESSION_READY"
	TypeEncryptedMessage = "ENCRYPTED_MESSAGE"
)

// ProtocolVersion is sent in every hello; both sides must agree.
const ProtocolVersion = "1.0"

// HelloMessage opens a handshake: it announces the sender's long-term public
// keys (SPKI-encoded) to the peer.
type HelloMessage struct {
	Type         string `json:"type"`
	Version      string `json:"version"`
	UserID       UserID `json:"user_id"`
	PeerID       UserID `json:"peer_id"`
	AgreementKey []byte `json:"ecdh_public_key"`
	SigningKey   []byte `json:"ecdsa_public_key"`
	Nonce        []byte `json:"nonce"`
	Timestamp    int64  `json:"timestamp"`
}

// EphemeralMessage carries one party's fresh ephemeral public key (raw
// uncompressed point), signed with their long-term ECDSA key. The responder
// also generates the HKDF salt for the session and sends it here; the
// initiator echoes it back so both sides provably derive from the same salt.
type EphemeralMessage struct {
	Type               string    `json:"type"`
	SessionID          SessionID `json:"session_id"`
	UserID             UserID    `json:"user_id"`
	EphemeralPublicKey []byte    `json:"ephemeral_public_key"`
	Signature          []byte    `json:"signature"`
	Salt               []byte    `json:"salt"`
	Timestamp          int64     `json:"timestamp"`
}

// ChallengeMessage asks the peer to prove it derived the same confirmation
// key. Only the challenge bytes travel; the expected HMAC stays local.
type ChallengeMessage struct {
	Type        string      `json:"type"`
	SessionID   SessionID   `json:"session_id"`
	ChallengeID ChallengeID `json:"challenge_id"`
	Challenge   []byte      `json:"challenge"`
	Timestamp   int64       `json:"timestamp"`
}

// ResponseMessage is the HMAC over the challenge under the responder's
// confirmation key.
type ResponseMessage struct {
	Type        string      `json:"type"`
	SessionID   SessionID   `json:"session_id"`
	ChallengeID ChallengeID `json:"challenge_id"`
	Response    []byte      `json:"response"`
	Timestamp   int64       `json:"timestamp"`
}

// ReadyMessage tells the responder the initiator verified the confirmation
// response; both sides may now use the session for application traffic.
type ReadyMessage struct {
	Type      string    `json:"type"`
	SessionID SessionID `json:"session_id"`
	Status    string    `json:"status"`
	Timestamp int64     `json:"timestamp"`
}

// EncryptedMessage is one application message under a confirmed session.
// Nonce is a random replay-guard value, distinct from the AES-GCM IV.
type EncryptedMessage struct {
	SenderID       UserID `json:"sender_id"`
	ReceiverID     UserID `json:"receiver_id"`
	Ciphertext     []byte `json:"ciphertext"`
	IV             []byte `json:"iv"`
	AuthTag        []byte `json:"auth_tag"`
	Nonce          []byte `json:"nonce"`
	SequenceNumber uint64 `json:"sequence_number"`
	Timestamp      int64  `json:"timestamp"`
}

// Envelope is the wire unit posted to and fetched from the relay. Exactly one
// payload pointer is set, matching Type.
type Envelope struct {
	From      UserID            `json:"from"`
	To        UserID            `json:"to"`
	Type      string            `json:"type"`
	Hello     *HelloMessage     `json:"hello,omitempty"`
	Ephemeral *EphemeralMessage `json:"ephemeral,omitempty"`
	Challenge *ChallengeMessage `json:"challenge,omitempty"`
	Response  *ResponseMessage  `json:"response,omitempty"`
	Ready     *ReadyMessage     `json:"ready,omitempty"`
	Encrypted *EncryptedMessage `json:"encrypted,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

// DecryptedMessage is what the message service hands back to callers.
type DecryptedMessage struct {
	From      UserID `json:"from"`
	To        UserID `json:"to"`
	Plaintext []byte `json:"plaintext"`
	Timestamp int64  `json:"timestamp"`
}

// RejectedMessage reports an inbound envelope that failed validation and was
// dropped: replayed, stale, tampered, or under a dead session. Dropping is
// final; the envelope is acked so it cannot block the rest of the queue.
type RejectedMessage struct {
	From      UserID `json:"from"`
	Timestamp int64  `json:"timestamp"`
	Reason    string `json:"reason"`
}
