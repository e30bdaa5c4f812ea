// Package engine binds the application to the gopenpgp OpenPGP
// implementation. It is the only package that touches key material or
// ciphertext; everything above it works with armored strings and byte
// slices. All engine failures are reported as domain.EngineError values
// carrying the engine's status text.
package engine

import (
	"github.com/ProtonMail/gopenpgp/v3/crypto"

	"github.com/kmorales/pgpvault/internal/app"
	"github.com/kmorales/pgpvault/internal/domain"
)

// Ensure Engine implements the application port.
var _ app.Engine = (*Engine)(nil)

// Engine wraps a gopenpgp handle. It is stateless and safe for concurrent
// use; key material is supplied per call.
type Engine struct {
	pgp *crypto.PGPHandle
}

// New returns an Engine using the default gopenpgp profile.
func New() *Engine {
	return &Engine{pgp: crypto.PGP()}
}

// Encrypt encrypts data for every key in recipientArmors (public or private
// armored keys; private keys contribute only their public half). Output is
// ASCII-armored when armored is true, binary otherwise.
func (e *Engine) Encrypt(data []byte, recipientArmors []string, armored bool) ([]byte, error) {
	if len(recipientArmors) == 0 {
		return nil, domain.ErrNoRecipients
	}
	var ring *crypto.KeyRing
	for _, arm := range recipientArmors {
		key, err := crypto.NewKeyFromArmored(arm)
		if err != nil {
			return nil, domain.Enginef("encryption failed: %v", err)
		}
		pub, err := key.ToPublic()
		if err != nil {
			return nil, domain.Enginef("encryption failed: %v", err)
		}
		if ring == nil {
			if ring, err = crypto.NewKeyRing(pub); err != nil {
				return nil, domain.Enginef("encryption failed: %v", err)
			}
		} else if err = ring.AddKey(pub); err != nil {
			return nil, domain.Enginef("encryption failed: %v", err)
		}
	}
	enc, err := e.pgp.Encryption().Recipients(ring).New()
	if err != nil {
		return nil, domain.Enginef("encryption failed: %v", err)
	}
	msg, err := enc.Encrypt(data)
	if err != nil {
		return nil, domain.Enginef("encryption failed: %v", err)
	}
	if armored {
		out, err := msg.ArmorBytes()
		if err != nil {
			return nil, domain.Enginef("encryption failed: %v", err)
		}
		return out, nil
	}
	return msg.Bytes(), nil
}

// Decrypt decrypts data with the first usable key from privateArmors.
// Locked keys are unlocked with passphrase; keys that fail to unlock are
// skipped so one stale key cannot block a decryptable message. A missing
// required passphrase therefore surfaces as the engine's "no decryption
// key" failure, not as a pre-validated error.
func (e *Engine) Decrypt(data []byte, privateArmors []string, passphrase string) ([]byte, error) {
	var (
		ring       *crypto.KeyRing
		unlockErrs int
	)
	for _, arm := range privateArmors {
		key, err := crypto.NewKeyFromArmored(arm)
		if err != nil || !key.IsPrivate() {
			continue
		}
		if locked, lockErr := key.IsLocked(); lockErr == nil && locked {
			if passphrase == "" {
				unlockErrs++
				continue
			}
			unlocked, uErr := key.Unlock([]byte(passphrase))
			if uErr != nil {
				unlockErrs++
				continue
			}
			key = unlocked
		}
		if ring == nil {
			if ring, err = crypto.NewKeyRing(key); err != nil {
				continue
			}
		} else if err = ring.AddKey(key); err != nil {
			continue
		}
	}
	if ring == nil {
		if unlockErrs > 0 {
			return nil, domain.Enginef("decryption failed: bad passphrase or missing passphrase for all private keys")
		}
		return nil, domain.Enginef("decryption failed: no private key available")
	}
	dec, err := e.pgp.Decryption().DecryptionKeys(ring).New()
	if err != nil {
		return nil, domain.Enginef("decryption failed: %v", err)
	}
	defer dec.ClearPrivateParams()
	res, err := dec.Decrypt(data, crypto.Auto)
	if err != nil {
		return nil, domain.Enginef("decryption failed: %v", err)
	}
	return res.Bytes(), nil
}
